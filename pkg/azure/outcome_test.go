package azure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestRemoteCode(t *testing.T) {
	tests := map[string]int{
		"passed":      2,
		"failed":      3,
		"skipped":     4,
		"timedOut":    4,
		"interrupted": 1,
		"":            0,
		"Passed":      0,
		"flaky":       0,
	}
	for in, want := range tests {
		assert.Equal(t, want, RemoteCode(in), in)
	}
}

func TestRemoteCode_PropertyUnknownIsZero(t *testing.T) {
	known := map[string]bool{
		"passed": true, "failed": true, "skipped": true,
		"timedOut": true, "interrupted": true,
	}
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "status")
		got := RemoteCode(s)
		if known[s] {
			if got == 0 {
				t.Fatalf("known status %q mapped to 0", s)
			}
			return
		}
		if got != 0 {
			t.Fatalf("RemoteCode(%q) = %d, want 0", s, got)
		}
		if RemoteCode(s) != got {
			t.Fatalf("RemoteCode(%q) is not deterministic", s)
		}
	})
}

func TestParseOutcome(t *testing.T) {
	assert.Equal(t, OutcomePassed, ParseOutcome("passed"))
	assert.Equal(t, OutcomeTimedOut, ParseOutcome("timedOut"))
	assert.Equal(t, OutcomeInterrupted, ParseOutcome("interrupted"))
	assert.Equal(t, OutcomeFailed, ParseOutcome("broken"))
	assert.Equal(t, OutcomeFailed, ParseOutcome(""))
}

func TestResultOutcome(t *testing.T) {
	assert.Equal(t, "Passed", ResultOutcome("passed"))
	assert.Equal(t, "Failed", ResultOutcome("failed"))
	assert.Equal(t, "NotExecuted", ResultOutcome("skipped"))
	assert.Equal(t, "Timeout", ResultOutcome("timedOut"))
	assert.Equal(t, "Aborted", ResultOutcome("interrupted"))
	assert.Equal(t, "Unspecified", ResultOutcome("other"))
}
