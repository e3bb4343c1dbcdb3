package submission

import "fmt"

// Stage is one step of the writing workflow.
type Stage string

const (
	StageStart   Stage = "Start"
	StageDraft   Stage = "Draft"
	StageFinal   Stage = "Final"
	StageAICheck Stage = "AI Check"
	StageSubmit  Stage = "Submit"
)

// Stages in workflow order.
var Stages = []Stage{StageStart, StageDraft, StageFinal, StageAICheck, StageSubmit}

// Progress places a status on the workflow.
type Progress struct {
	// Done is the number of completed leading stages.
	Done int `json:"done"`
	// Current is the stage in progress, "" when everything is done.
	Current Stage `json:"current,omitempty"`
	// Next is the suggested next action, "" when submitted.
	Next string `json:"next,omitempty"`
}

// Workflow maps a status to its position in the workflow.
func Workflow(st Status) Progress {
	switch st.State {
	case SubmittedToCanvas:
		return Progress{Done: len(Stages)}
	case WorkStarted, DraftInProgress:
		return Progress{Done: 1, Current: StageDraft, Next: "Continue writing and save as final.md when done"}
	case FinalReady:
		return Progress{Done: 3, Current: StageAICheck, Next: "Run AI detection on final.md"}
	case AIHigh:
		score := 0.0
		if st.HumanizedScore != nil {
			score = *st.HumanizedScore
		} else if st.Score != nil {
			score = *st.Score
		}
		return Progress{Done: 3, Current: StageAICheck, Next: fmt.Sprintf("AI score is %.0f%% - revise before submitting", score)}
	case ReadyToSubmit:
		return Progress{Done: 4, Current: StageSubmit, Next: "Ready! Submit in the LMS"}
	default:
		return Progress{Current: StageStart, Next: "Start writing draft.md"}
	}
}

// Line renders the workflow as "✓ Start ✓ Draft ● Final ○ AI Check ○ Submit".
func (p Progress) Line() string {
	var out string
	for i, s := range Stages {
		mark := "○"
		switch {
		case i < p.Done:
			mark = "✓"
		case s == p.Current:
			mark = "●"
		}
		if i > 0 {
			out += " "
		}
		out += mark + " " + string(s)
	}
	return out
}
