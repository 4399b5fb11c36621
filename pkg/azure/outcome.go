package azure

// Outcome is the local execution status of a test.
type Outcome string

const (
	OutcomePassed      Outcome = "passed"
	OutcomeFailed      Outcome = "failed"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeTimedOut    Outcome = "timedOut"
	OutcomeInterrupted Outcome = "interrupted"
)

// ParseOutcome maps a raw status onto a known Outcome. Anything
// unrecognised collapses to failed.
func ParseOutcome(raw string) Outcome {
	switch o := Outcome(raw); o {
	case OutcomePassed, OutcomeFailed, OutcomeSkipped,
		OutcomeTimedOut, OutcomeInterrupted:
		return o
	default:
		return OutcomeFailed
	}
}

var remoteCodes = map[string]int{
	string(OutcomePassed):      2,
	string(OutcomeFailed):      3,
	string(OutcomeSkipped):     4,
	string(OutcomeTimedOut):    4,
	string(OutcomeInterrupted): 1,
}

// RemoteCode returns the test point outcome code for a raw status:
// 0 unspecified, 1 interrupted, 2 passed, 3 failed, 4 skipped or
// timed out. Unknown statuses map to 0.
func RemoteCode(outcome string) int {
	return remoteCodes[outcome]
}

var resultOutcomes = map[string]string{
	string(OutcomePassed):      "Passed",
	string(OutcomeFailed):      "Failed",
	string(OutcomeSkipped):     "NotExecuted",
	string(OutcomeTimedOut):    "Timeout",
	string(OutcomeInterrupted): "Aborted",
}

// ResultOutcome returns the outcome name used on test results.
func ResultOutcome(outcome string) string {
	if name, ok := resultOutcomes[outcome]; ok {
		return name
	}
	return "Unspecified"
}
