package grading

import "strings"

// Category is the grading bucket a question attempt falls into.
type Category string

const (
	// Unclassified covers empty, in-progress and unknown engine states.
	Unclassified Category = ""
	// NeedsGrading marks responses waiting for a manual mark.
	NeedsGrading Category = "needsgrading"
	// AutoGraded marks responses fully graded by the question engine.
	AutoGraded Category = "autograded"
	// ManuallyGraded marks responses a teacher has already graded.
	ManuallyGraded Category = "manuallygraded"
	// All is a request-only pseudo category that matches every configured slot.
	All Category = "all"
)

const (
	stateNeedsGrading       = "needsgrading"
	stateAutoGradedPrefix   = "graded"
	stateManualGradedPrefix = "mangr"
)

// Classify maps a raw question engine state label to its grading category.
// Matching is case-sensitive; the graded and mangr families are matched by prefix.
func Classify(state string) Category {
	switch {
	case state == "":
		return Unclassified
	case state == stateNeedsGrading:
		return NeedsGrading
	case strings.HasPrefix(state, stateAutoGradedPrefix):
		return AutoGraded
	case strings.HasPrefix(state, stateManualGradedPrefix):
		return ManuallyGraded
	default:
		return Unclassified
	}
}

// ParseCategory interprets the grade request parameter. Unrecognised values
// report false and should be treated as absent.
func ParseCategory(value string) (Category, bool) {
	switch Category(value) {
	case All, NeedsGrading, AutoGraded, ManuallyGraded:
		return Category(value), true
	default:
		return Unclassified, false
	}
}

// Matches reports whether a classified state belongs to the requested category.
func (c Category) Matches(classified Category) bool {
	if c == All {
		return true
	}
	return c != Unclassified && c == classified
}

func (c Category) String() string {
	if c == Unclassified {
		return "unclassified"
	}
	return string(c)
}
