// Package selection tracks which hit-target, if any, the user has selected.
package selection

import "strings"

// Phase is the controller's state.
type Phase int

const (
	// Idle means nothing is selected and no description is shown.
	Idle Phase = iota
	// Selected means a region's text is selected.
	Selected
)

func (p Phase) String() string {
	if p == Selected {
		return "selected"
	}
	return "idle"
}

// Selection is an immutable Idle/Selected(text) state. The zero value is Idle.
type Selection struct {
	text string
}

// Select enters Selected with t trimmed of surrounding whitespace. Selecting
// while already selected replaces the text. A text that trims to empty
// leaves the selection Idle.
func (s Selection) Select(t string) Selection {
	return Selection{text: strings.TrimSpace(t)}
}

// Dismiss returns to Idle.
func (s Selection) Dismiss() Selection {
	return Selection{}
}

// Phase reports Idle or Selected.
func (s Selection) Phase() Phase {
	if s.text == "" {
		return Idle
	}
	return Selected
}

// Text returns the selected text, or "" when Idle. It is the lookup key.
func (s Selection) Text() string { return s.text }
