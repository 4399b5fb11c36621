package azure

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	planPattern  = regexp.MustCompile(`@PLAN_ID=(\d+)`)
	suitePattern = regexp.MustCompile(`@SUITE_ID=(\d+)`)
	casePattern  = regexp.MustCompile(`@\[(\d+)\]`)
)

// TitleFormat documents the annotation grammar of test titles.
const TitleFormat = "@PLAN_ID=xxx @SUITE_ID=xxx @[testCaseId]"

// TestMetadata identifies the remote test case a test reports to.
type TestMetadata struct {
	PlanID     string `json:"planId"`
	SuiteID    string `json:"suiteId"`
	TestCaseID string `json:"testCaseId"`
}

func (m TestMetadata) String() string {
	return fmt.Sprintf("plan=%s suite=%s case=%s", m.PlanID, m.SuiteID, m.TestCaseID)
}

// MetadataError is returned when a title lacks one or more of the
// required annotations.
type MetadataError struct {
	Title   string
	Missing []string
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf(
		"missing metadata %s in test title %q, expected format: %s",
		strings.Join(e.Missing, ", "), e.Title, TitleFormat,
	)
}

// Extract parses the plan, suite and case ids out of a test title.
// Annotations may appear anywhere; the first occurrence of each wins.
func Extract(title string) (TestMetadata, error) {
	var (
		meta    TestMetadata
		missing []string
	)
	if m := planPattern.FindStringSubmatch(title); m != nil {
		meta.PlanID = m[1]
	} else {
		missing = append(missing, "@PLAN_ID")
	}
	if m := suitePattern.FindStringSubmatch(title); m != nil {
		meta.SuiteID = m[1]
	} else {
		missing = append(missing, "@SUITE_ID")
	}
	if m := casePattern.FindStringSubmatch(title); m != nil {
		meta.TestCaseID = m[1]
	} else {
		missing = append(missing, "@[id]")
	}
	if len(missing) > 0 {
		return TestMetadata{}, &MetadataError{Title: title, Missing: missing}
	}
	return meta, nil
}

// CaseID returns the bracketed test case id of a title, if any.
func CaseID(title string) (string, bool) {
	m := casePattern.FindStringSubmatch(title)
	if m == nil {
		return "", false
	}
	return m[1], true
}
