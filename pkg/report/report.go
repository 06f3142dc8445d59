// Package report collects case outcomes and renders run summaries.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Status of one case.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// CaseResult is the result of one expectation.
type CaseResult struct {
	Suite    string        `json:"suite"`
	Name     string        `json:"name"`
	Selector string        `json:"selector,omitempty"`
	Kind     string        `json:"kind,omitempty"`
	Status   Status        `json:"status"`
	Reason   string        `json:"reason,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// SuiteResult holds the cases of one suite in run order.
type SuiteResult struct {
	Name     string        `json:"name"`
	PageURL  string        `json:"page_url"`
	Source   string        `json:"source,omitempty"`
	Cases    []CaseResult  `json:"cases"`
	Duration time.Duration `json:"duration_ns"`
}

// Counts returns the number of passed, failed and skipped cases.
func (s SuiteResult) Counts() (passed, failed, skipped int) {
	for _, c := range s.Cases {
		switch c.Status {
		case StatusPassed:
			passed++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	return passed, failed, skipped
}

// Summary is the result of a whole run.
type Summary struct {
	Driver   string        `json:"driver"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration_ns"`
	Suites   []SuiteResult `json:"suites"`
	Total    int           `json:"total"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Skipped  int           `json:"skipped"`
	Warnings int           `json:"warnings"`
}

// NewSummary totals suites. Duration is measured from started.
func NewSummary(driver string, started time.Time, suites []SuiteResult) Summary {
	s := Summary{
		Driver:   driver,
		Started:  started,
		Duration: time.Since(started),
		Suites:   suites,
	}
	for _, sr := range suites {
		p, f, k := sr.Counts()
		s.Passed += p
		s.Failed += f
		s.Skipped += k
		s.Total += len(sr.Cases)
		for _, c := range sr.Cases {
			s.Warnings += len(c.Warnings)
		}
	}
	return s
}

// OK reports whether no case failed.
func (s Summary) OK() bool { return s.Failed == 0 }

// Failures returns every failed case across suites.
func (s Summary) Failures() []CaseResult {
	var out []CaseResult
	for _, sr := range s.Suites {
		for _, c := range sr.Cases {
			if c.Status == StatusFailed {
				out = append(out, c)
			}
		}
	}
	return out
}

// Headline is a one-line summary, e.g. "12 passed, 1 failed, 2 skipped".
func (s Summary) Headline() string {
	return fmt.Sprintf("%d passed, %d failed, %d skipped (%d cases in %s)",
		s.Passed, s.Failed, s.Skipped, s.Total, s.Duration.Round(time.Millisecond))
}

// WriteJSON writes the summary as indented JSON, creating parent directories.
func WriteJSON(path string, s Summary) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
