package domain

// Outcome is the terminal state of one transfer entry.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeSkipped
	OutcomeSucceeded
	OutcomeFailed
)

var outcomeLabels = map[Outcome]string{
	OutcomePending:   "pending",
	OutcomeSkipped:   "skipped",
	OutcomeSucceeded: "succeeded",
	OutcomeFailed:    "failed",
}

// String returns the lower-case label of the outcome.
func (o Outcome) String() string {
	if label, ok := outcomeLabels[o]; ok {
		return label
	}

	return "unknown"
}
