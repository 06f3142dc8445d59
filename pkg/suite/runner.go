// Package suite runs expectation suites case by case: navigate, verify,
// report. One record is one case.
package suite

import (
	"context"
	"fmt"
	"time"

	"SiteProbe/pkg/browser"
	"SiteProbe/pkg/expectation"
	"SiteProbe/pkg/logger"
	"SiteProbe/pkg/report"
	"SiteProbe/pkg/verify"
)

// Reporter is told the result of every case as it completes.
type Reporter interface {
	Pass(c report.CaseResult)
	Fail(c report.CaseResult)
	Skip(c report.CaseResult)
}

// Runner runs the cases of a suite sequentially against one session.
type Runner struct {
	Navigator *verify.Navigator
	Verifier  *verify.Verifier
	Log       *logger.Logger
	// FreshPagePerCase opens and closes a new page for every case instead of
	// reusing one page for the whole suite. Every case navigates either way.
	FreshPagePerCase bool
}

// NewRunner wires a runner from its parts.
func NewRunner(log *logger.Logger, nav *verify.Navigator, v *verify.Verifier, freshPage bool) *Runner {
	return &Runner{Navigator: nav, Verifier: v, Log: log, FreshPagePerCase: freshPage}
}

// caseFunc runs exec as the case called name and returns its result.
type caseFunc func(name string, exec func() report.CaseResult) report.CaseResult

// Run executes every case of s in order and reports each to rep. An empty
// suite is reported as one skip and yields no cases. Once ctx is done the
// remaining cases are skipped.
func (r *Runner) Run(ctx context.Context, session browser.Session, s *expectation.Suite, rep Reporter) report.SuiteResult {
	if s.Len() == 0 {
		r.Log.Warn("Suite %s has no data, skipping", s.Name)
		rep.Skip(report.CaseResult{Suite: s.Name, Name: s.Name, Status: report.StatusSkipped, Reason: "no data"})
		return report.SuiteResult{Name: s.Name, PageURL: s.PageURL, Source: s.Source}
	}
	return r.run(ctx, session, s, func(_ string, exec func() report.CaseResult) report.CaseResult {
		res := exec()
		dispatch(rep, res)
		return res
	})
}

func (r *Runner) run(ctx context.Context, session browser.Session, s *expectation.Suite, each caseFunc) report.SuiteResult {
	start := time.Now()
	result := report.SuiteResult{Name: s.Name, PageURL: s.PageURL, Source: s.Source}
	r.Log.Info("Running suite %s (%d cases) against %s", s.Name, s.Len(), s.PageURL)

	pages := &pageSource{session: session, fresh: r.FreshPagePerCase}
	defer pages.closeShared(r.Log)

	for _, exp := range s.Expectations {
		name := exp.CaseName()
		res := each(name, func() report.CaseResult {
			return r.runCase(ctx, pages, s, exp, name)
		})
		result.Cases = append(result.Cases, res)
	}

	result.Duration = time.Since(start)
	p, f, k := result.Counts()
	r.Log.Info("Suite %s finished: %d passed, %d failed, %d skipped in %s", s.Name, p, f, k, result.Duration.Round(time.Millisecond))
	return result
}

func (r *Runner) runCase(ctx context.Context, pages *pageSource, s *expectation.Suite, exp expectation.Expectation, name string) (res report.CaseResult) {
	start := time.Now()
	res = report.CaseResult{Suite: s.Name, Name: name, Selector: exp.Selector, Kind: exp.RawKind}
	defer func() { res.Duration = time.Since(start) }()

	if err := ctx.Err(); err != nil {
		return skipped(res, fmt.Sprintf("run cancelled: %v", err))
	}
	if !exp.Supported() {
		r.Log.Warn("Unsupported element type %q for case %s", exp.RawKind, name)
		return skipped(res, fmt.Sprintf("unsupported element type: %s", exp.RawKind))
	}

	pageURL := s.PageURL
	if pageURL == "" {
		pageURL = exp.PageURL
	}
	if pageURL == "" {
		return failed(res, "no page URL for this case")
	}

	page, release, err := pages.acquire()
	if err != nil {
		r.Log.Error("Could not open page for %s: %v", name, err)
		return failed(res, fmt.Sprintf("could not open page: %v", err))
	}
	defer release(r.Log)

	if !r.Navigator.Navigate(page, pageURL) {
		return failed(res, fmt.Sprintf("Failed to navigate to %s for %s", pageURL, name))
	}

	out := r.Verifier.Verify(page, exp)
	res.Warnings = out.Warnings
	if !out.Success {
		return failed(res, out.Reason)
	}
	res.Status = report.StatusPassed
	return res
}

func skipped(res report.CaseResult, reason string) report.CaseResult {
	res.Status = report.StatusSkipped
	res.Reason = reason
	return res
}

func failed(res report.CaseResult, reason string) report.CaseResult {
	res.Status = report.StatusFailed
	res.Reason = reason
	return res
}

func dispatch(rep Reporter, res report.CaseResult) {
	switch res.Status {
	case report.StatusPassed:
		rep.Pass(res)
	case report.StatusFailed:
		rep.Fail(res)
	default:
		rep.Skip(res)
	}
}

// pageSource hands out the page a case runs on.
type pageSource struct {
	session browser.Session
	fresh   bool
	shared  browser.Page
}

func (ps *pageSource) acquire() (browser.Page, func(*logger.Logger), error) {
	if ps.fresh {
		p, err := ps.session.NewPage()
		if err != nil {
			return nil, nil, err
		}
		return p, func(log *logger.Logger) {
			if err := p.Close(); err != nil {
				log.Warn("Closing page: %v", err)
			}
		}, nil
	}
	if ps.shared == nil {
		p, err := ps.session.NewPage()
		if err != nil {
			return nil, nil, err
		}
		ps.shared = p
	}
	return ps.shared, func(*logger.Logger) {}, nil
}

func (ps *pageSource) closeShared(log *logger.Logger) {
	if ps.shared == nil {
		return
	}
	if err := ps.shared.Close(); err != nil {
		log.Warn("Closing page: %v", err)
	}
	ps.shared = nil
}
