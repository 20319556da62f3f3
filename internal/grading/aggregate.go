package grading

import "sort"

// QuestionState is the resolved current state of one question attempt,
// i.e. the state of its latest step by sequence number.
type QuestionState struct {
	QuestionAttemptID uint
	UsageID           uint
	Slot              int
	QuestionID        uint
	State             string
}

// RawAttempt is a quiz attempt row with the student identity already joined in.
type RawAttempt struct {
	AttemptID     uint
	UsageID       uint
	AttemptNumber int
	StudentID     uint
	FullName      string
	IDNumber      string
	Email         string
}

// Summary aggregates the grading status of a single attempt.
type Summary struct {
	RawAttempt

	// Questions holds configured slots only.
	Questions map[int]QuestionState

	NeedsGrading   int
	AutoGraded     int
	ManuallyGraded int
	Total          int
}

// Count returns the counter backing a category. All maps to Total and
// Unclassified to zero.
func (s Summary) Count(category Category) int {
	switch category {
	case NeedsGrading:
		return s.NeedsGrading
	case AutoGraded:
		return s.AutoGraded
	case ManuallyGraded:
		return s.ManuallyGraded
	case All:
		return s.Total
	default:
		return 0
	}
}

// SlotsFor lists, in ascending order, the slots of this attempt whose state
// falls into the category.
func (s Summary) SlotsFor(category Category) []int {
	slots := make([]int, 0, len(s.Questions))
	for slot, question := range s.Questions {
		if category.Matches(Classify(question.State)) {
			slots = append(slots, slot)
		}
	}
	sort.Ints(slots)
	return slots
}

// SlotSet is the set of slots in the quiz's current question configuration.
type SlotSet map[int]struct{}

// NewSlotSet builds a set from the given slots.
func NewSlotSet(slots ...int) SlotSet {
	set := make(SlotSet, len(slots))
	for _, slot := range slots {
		set[slot] = struct{}{}
	}
	return set
}

// Has reports whether the slot is configured.
func (s SlotSet) Has(slot int) bool {
	_, ok := s[slot]
	return ok
}

// Aggregate joins attempts with their question states and counts each
// attempt's configured slots per category. Output order follows attempts.
// Attempts without any question state rows are omitted.
func Aggregate(attempts []RawAttempt, states []QuestionState, configured SlotSet) []Summary {
	if len(attempts) == 0 || len(states) == 0 {
		return []Summary{}
	}

	byUsage := make(map[uint][]QuestionState, len(attempts))
	for _, state := range states {
		byUsage[state.UsageID] = append(byUsage[state.UsageID], state)
	}

	summaries := make([]Summary, 0, len(attempts))
	for _, attempt := range attempts {
		rows, ok := byUsage[attempt.UsageID]
		if !ok {
			continue
		}

		summary := Summary{
			RawAttempt: attempt,
			Questions:  make(map[int]QuestionState, len(rows)),
		}
		for _, row := range rows {
			if !configured.Has(row.Slot) {
				continue
			}
			summary.Questions[row.Slot] = row
			switch Classify(row.State) {
			case NeedsGrading:
				summary.NeedsGrading++
			case AutoGraded:
				summary.AutoGraded++
			case ManuallyGraded:
				summary.ManuallyGraded++
			}
			summary.Total++
		}
		summaries = append(summaries, summary)
	}

	return summaries
}

// Find returns the summary for a usage id.
func Find(summaries []Summary, usageID uint) (Summary, bool) {
	for _, summary := range summaries {
		if summary.UsageID == usageID {
			return summary, true
		}
	}
	return Summary{}, false
}
