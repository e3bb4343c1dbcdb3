package canvas

// User is the authenticated account (GET /api/v1/users/self).
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	LoginID      string `json:"login_id"`
	PrimaryEmail string `json:"primary_email"`
}

// Term is the enrollment term a course belongs to.
type Term struct {
	Name string `json:"name"`
}

// Course is an active enrollment, with syllabus and term included.
type Course struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	CourseCode   string `json:"course_code"`
	Term         *Term  `json:"term"`
	SyllabusBody string `json:"syllabus_body"`
}

// TermName returns the term label or "".
func (c Course) TermName() string {
	if c.Term == nil {
		return ""
	}
	return c.Term.Name
}

// Submission is the current user's submission as embedded in an assignment.
type Submission struct {
	WorkflowState string   `json:"workflow_state"`
	SubmittedAt   *string  `json:"submitted_at"`
	Score         *float64 `json:"score"`
	Grade         *string  `json:"grade"`
}

// RubricRating is one column of a rubric criterion.
type RubricRating struct {
	Description     string  `json:"description"`
	LongDescription string  `json:"long_description"`
	Points          float64 `json:"points"`
}

// RubricCriterion is one row of an assignment rubric.
type RubricCriterion struct {
	Description string         `json:"description"`
	Points      float64        `json:"points"`
	Ratings     []RubricRating `json:"ratings"`
}

// Assignment is an assignment with rubric and submission included.
type Assignment struct {
	ID                int64             `json:"id"`
	Name              string            `json:"name"`
	Description       string            `json:"description"`
	DueAt             *string           `json:"due_at"`
	PointsPossible    *float64          `json:"points_possible"`
	SubmissionTypes   []string          `json:"submission_types"`
	AllowedExtensions []string          `json:"allowed_extensions"`
	HTMLURL           string            `json:"html_url"`
	Rubric            []RubricCriterion `json:"rubric"`
	Submission        *Submission       `json:"submission"`
}

// WorkflowState returns the submission workflow state, "unsubmitted" when
// no submission is attached.
func (a Assignment) WorkflowState() string {
	if a.Submission == nil || a.Submission.WorkflowState == "" {
		return "unsubmitted"
	}
	return a.Submission.WorkflowState
}

// ModuleItem is one entry of a course module. Which fields are set depends
// on Type (Page, ExternalUrl, File, ExternalTool, SubHeader, Quiz, ...).
type ModuleItem struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	Position    int    `json:"position"`
	ContentID   int64  `json:"content_id"`
	HTMLURL     string `json:"html_url"`
	URL         string `json:"url"`
	PageURL     string `json:"page_url"`
	ExternalURL string `json:"external_url"`
}

// Module is a named, ordered group of items.
type Module struct {
	ID         int64        `json:"id"`
	Name       string       `json:"name"`
	Position   int          `json:"position"`
	ItemsCount int          `json:"items_count"`
	Items      []ModuleItem `json:"items"`
}

// Page is a wiki page body.
type Page struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// File is file metadata; URL is the signed download URL.
type File struct {
	ID            int64  `json:"id"`
	DisplayName   string `json:"display_name"`
	Filename      string `json:"filename"`
	ContentType   string `json:"content-type"`
	URL           string `json:"url"`
	Size          int64  `json:"size"`
	UpdatedAt     string `json:"updated_at"`
	LockedForUser bool   `json:"locked_for_user"`
}
