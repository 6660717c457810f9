package domain

// TransferError pairs a key with the message of the error that failed it.
type TransferError struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// TransferResult tallies a transfer run.
type TransferResult struct {
	Successful int             `json:"successful"`
	Failed     int             `json:"failed"`
	Skipped    int             `json:"skipped"`
	Errors     []TransferError `json:"errors"`
}

// Total is the number of entries that reached a terminal state.
func (r TransferResult) Total() int {
	return r.Successful + r.Failed + r.Skipped
}

// OK reports whether no entry failed.
func (r TransferResult) OK() bool {
	return r.Failed == 0
}

// FailedKeys lists the keys of failed entries in the order they failed.
func (r TransferResult) FailedKeys() []string {
	keys := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		keys = append(keys, e.Key)
	}
	return keys
}

// TransferTally accumulates outcomes during a run. Result hands out a copy,
// so later Record calls never reach a result already returned.
type TransferTally struct {
	result TransferResult
}

// Record moves one entry from Pending to its terminal outcome.
func (t *TransferTally) Record(key string, outcome Outcome, err error) {
	switch outcome {
	case OutcomeSucceeded:
		t.result.Successful++
	case OutcomeSkipped:
		t.result.Skipped++
	case OutcomeFailed:
		t.result.Failed++
		msg := "unknown error"
		if err != nil {
			msg = err.Error()
		}
		t.result.Errors = append(t.result.Errors, TransferError{Key: key, Message: msg})
	}
}

// Result returns a snapshot of the tally.
func (t *TransferTally) Result() TransferResult {
	out := t.result
	out.Errors = append([]TransferError(nil), t.result.Errors...)
	return out
}
