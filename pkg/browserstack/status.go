// Package browserstack integrates with the BrowserStack device farm:
// it builds the remote Playwright endpoint, reports session status and
// triggers Lighthouse audits through the in-page executor channel.
package browserstack

import (
	"fmt"
	"regexp"
	"strings"
)

// Session statuses understood by the device farm.
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
)

// SessionStatus is the payload of a setSessionStatus action.
type SessionStatus struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type reasonPattern struct {
	re     *regexp.Regexp
	reason func(m []string) string
}

// knownErrors is ordered; the first match wins. Matching is
// case-insensitive and `.` stops at a newline.
var knownErrors = []reasonPattern{
	{
		re:     regexp.MustCompile(`(?i)Session was idle for more than the set timeout`),
		reason: func([]string) string { return "Test failed: Session timed out due to inactivity" },
	},
	{
		re:     regexp.MustCompile(`(?i)Session execution errored out on BrowserStack`),
		reason: func([]string) string { return "Test failed: BrowserStack session execution errored out" },
	},
	{
		re:     regexp.MustCompile(`(?i)timed out`),
		reason: func([]string) string { return "Test failed: Operation timed out" },
	},
	{
		re: regexp.MustCompile(`(?i)Expected(?: string)?:\s*"([^"]+)".*element\(s\) not found`),
		reason: func(m []string) string {
			return `Test failed: Expected "` + m[1] + `" but element was not found`
		},
	},
	{
		re: regexp.MustCompile(`(?i)Expected(?: string)?:\s*"([^"]+)".*Received(?: string)?:\s*"([^"]+)"`),
		reason: func(m []string) string {
			return `Test failed: Expected "` + m[1] + `" but received "` + m[2] + `"`
		},
	},
}

var locatorPattern = regexp.MustCompile(`Locator:\s*(locator\([^)]+\))`)

// Reason derives the human readable session reason of an outcome.
func Reason(outcome, errMsg string) string {
	if outcome == StatusPassed {
		return "Test passed"
	}
	if errMsg == "" {
		return "Test failed"
	}
	for _, p := range knownErrors {
		if m := p.re.FindStringSubmatch(errMsg); m != nil {
			return p.reason(m)
		}
	}

	firstLine := strings.TrimSpace(strings.SplitN(errMsg, "\n", 2)[0])
	if m := locatorPattern.FindStringSubmatch(errMsg); m != nil {
		return fmt.Sprintf("Test failed at %s: %s", m[1], firstLine)
	}
	return "Test failed: " + firstLine
}

// StatusFor maps a test outcome onto a session status. Skipped tests
// report nothing and return false.
func StatusFor(outcome, errMsg string) (SessionStatus, bool) {
	if outcome == "skipped" {
		return SessionStatus{}, false
	}
	status := StatusFailed
	if outcome == StatusPassed {
		status = StatusPassed
	}
	return SessionStatus{Status: status, Reason: Reason(outcome, errMsg)}, true
}
