package suite

import (
	"fmt"
	"io"
	"sync"
	"testing"

	"SiteProbe/pkg/browser"
	"SiteProbe/pkg/expectation"
	"SiteProbe/pkg/report"
)

// Collector keeps every reported result and, when Out is set, prints one
// progress line per case.
type Collector struct {
	Out io.Writer

	mu      sync.Mutex
	results []report.CaseResult
}

// NewCollector returns a Collector printing progress to out (may be nil).
func NewCollector(out io.Writer) *Collector {
	return &Collector{Out: out}
}

func (c *Collector) Pass(r report.CaseResult) { c.add("PASS", r) }
func (c *Collector) Fail(r report.CaseResult) { c.add("FAIL", r) }
func (c *Collector) Skip(r report.CaseResult) { c.add("SKIP", r) }

func (c *Collector) add(label string, r report.CaseResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, r)
	if c.Out == nil {
		return
	}
	line := fmt.Sprintf("%s %s/%s", label, r.Suite, r.Name)
	if r.Reason != "" {
		line += ": " + r.Reason
	}
	fmt.Fprintln(c.Out, line)
}

// Results returns a copy of the collected results in report order.
func (c *Collector) Results() []report.CaseResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]report.CaseResult(nil), c.results...)
}

// TestingReporter reports one case to a *testing.T: a failure is fatal to
// the test, a skip skips it and warnings are logged.
type TestingReporter struct {
	T testing.TB
}

func (tr TestingReporter) Pass(r report.CaseResult) {
	tr.T.Helper()
	for _, w := range r.Warnings {
		tr.T.Logf("warning: %s", w)
	}
}

func (tr TestingReporter) Fail(r report.CaseResult) {
	tr.T.Helper()
	tr.T.Fatalf("%s", r.Reason)
}

func (tr TestingReporter) Skip(r report.CaseResult) {
	tr.T.Helper()
	tr.T.Skipf("%s", r.Reason)
}

// RunTest runs s as a table-driven test: one subtest per record, named by
// its case name, on session. An empty suite skips t.
func RunTest(t *testing.T, r *Runner, session browser.Session, s *expectation.Suite) report.SuiteResult {
	t.Helper()
	if s.Len() == 0 {
		t.Skipf("no data for suite %s", s.Name)
	}
	return r.run(t.Context(), session, s, func(name string, exec func() report.CaseResult) report.CaseResult {
		var res report.CaseResult
		t.Run(name, func(t *testing.T) {
			res = exec()
			dispatch(TestingReporter{T: t}, res)
		})
		return res
	})
}
