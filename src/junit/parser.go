// Package junit parses JUnit XML reports left behind by the test command so
// failure descriptions can name the tests that broke the build.
package junit

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// TestSuites is the root element for multiple test suites.
type TestSuites struct {
	XMLName    xml.Name    `xml:"testsuites"`
	TestSuites []TestSuite `xml:"testsuite"`
}

// TestSuite represents a <testsuite> element.
type TestSuite struct {
	Name      string     `xml:"name,attr"`
	Tests     int        `xml:"tests,attr"`
	Failures  int        `xml:"failures,attr"`
	Errors    int        `xml:"errors,attr"`
	TestCases []TestCase `xml:"testcase"`
}

// TestCase represents a <testcase> element.
type TestCase struct {
	Name      string   `xml:"name,attr"`
	ClassName string   `xml:"classname,attr"`
	Failure   *Failure `xml:"failure"`
	Error     *Failure `xml:"error"`
}

// Failure represents a test failure or error element.
type Failure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Content string `xml:",chardata"`
}

// TestFailure is a parsed failing test.
type TestFailure struct {
	TestName  string
	ClassName string
	SuiteName string
	Message   string
}

// Parse parses JUnit XML data and returns only failing tests.
// Returns an empty slice if all tests passed.
func Parse(data []byte) ([]TestFailure, error) {
	// Try parsing as <testsuites> (multiple suites) first
	var suites TestSuites
	if err := xml.Unmarshal(data, &suites); err == nil && len(suites.TestSuites) > 0 {
		return extractFailures(suites.TestSuites), nil
	}

	// Try parsing as single <testsuite>
	var suite TestSuite
	if err := xml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("failed to parse JUnit XML: %w", err)
	}

	return extractFailures([]TestSuite{suite}), nil
}

func extractFailures(suites []TestSuite) []TestFailure {
	var failures []TestFailure

	for _, suite := range suites {
		for _, tc := range suite.TestCases {
			f := tc.Failure
			if f == nil {
				f = tc.Error
			}
			if f == nil {
				continue
			}
			failures = append(failures, TestFailure{
				TestName:  tc.Name,
				ClassName: tc.ClassName,
				SuiteName: suite.Name,
				Message:   f.Message,
			})
		}
	}

	return failures
}

// Summarize renders failures into a short human-readable description
// suitable for the status API. At most max test names are listed.
func Summarize(failures []TestFailure, max int) string {
	if len(failures) == 0 {
		return ""
	}

	names := make([]string, 0, max)
	for i, f := range failures {
		if i >= max {
			names = append(names, "...")
			break
		}
		names = append(names, f.TestName)
	}

	noun := "tests"
	if len(failures) == 1 {
		noun = "test"
	}
	return fmt.Sprintf("%d %s failed: %s", len(failures), noun, strings.Join(names, ", "))
}
