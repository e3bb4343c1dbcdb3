package extract

import (
	"regexp"
	"strings"
)

var (
	cueNumber   = regexp.MustCompile(`^\d+$`)
	cueID       = regexp.MustCompile(`^[a-f0-9-]+$`)
	inlineTag   = regexp.MustCompile(`<[^>]+>`)
	timingArrow = "-->"
)

// ParseCaptions flattens a WebVTT or SRT caption file into one line of
// spoken text. Headers, NOTE blocks, timing lines, cue numbers and cue ids
// are dropped, inline tags are stripped and the surviving lines are joined
// with single spaces.
func ParseCaptions(raw string) string {
	var kept []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "WEBVTT"), strings.HasPrefix(line, "NOTE"):
			continue
		case strings.Contains(line, timingArrow):
			continue
		case cueNumber.MatchString(line), cueID.MatchString(line):
			continue
		}
		line = strings.TrimSpace(inlineTag.ReplaceAllString(line, ""))
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, " ")
}
