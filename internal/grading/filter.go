package grading

// Filter drops attempts with nothing to show. Attempts with no countable
// question are always dropped; attempts that are only auto-graded are dropped
// unless includeAutoGraded is set. Relative order is preserved.
func Filter(summaries []Summary, includeAutoGraded bool) []Summary {
	filtered := make([]Summary, 0, len(summaries))
	for _, summary := range summaries {
		if summary.Total == 0 {
			continue
		}
		if !includeAutoGraded && summary.NeedsGrading == 0 && summary.ManuallyGraded == 0 {
			continue
		}
		filtered = append(filtered, summary)
	}
	return filtered
}
