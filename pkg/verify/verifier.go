package verify

import (
	"strings"
	"time"

	"SiteProbe/pkg/browser"
	"SiteProbe/pkg/expectation"
	"SiteProbe/pkg/logger"
)

// Verifier checks one expectation at a time against a loaded page. It never
// navigates or closes the page it is given; liveness checks use their own
// sibling page which is always closed. Nothing is retried.
type Verifier struct {
	Timeouts  Timeouts
	Sentinels SentinelTable
	Log       *logger.Logger
}

// NewVerifier returns a Verifier. A nil sentinel table disables sentinels.
func NewVerifier(log *logger.Logger, timeouts Timeouts, sentinels SentinelTable) *Verifier {
	return &Verifier{Timeouts: timeouts, Sentinels: sentinels, Log: log}
}

// Verify checks exp on page. Every fatal condition, error or panic ends up
// as a failed Outcome naming the selector.
func (v *Verifier) Verify(page browser.Page, exp expectation.Expectation) (out Outcome) {
	start := time.Now()
	out = Outcome{Selector: exp.Selector, Kind: exp.Kind}

	defer func() {
		if r := recover(); r != nil {
			v.Log.Error("Error verifying %s with selector '%s': %v", exp.Kind, exp.Selector, r)
			out.fail(fatal(exp.Selector, StageInternal, nil, "error verifying %s %s: %v", exp.Kind, exp.Selector, r))
		}
		out.Duration = time.Since(start)
	}()

	var f *Failure
	switch exp.Kind {
	case expectation.KindContent:
		f = v.verifyContent(page, exp)
	case expectation.KindLink:
		f = v.verifyLink(page, exp, &out)
	default:
		f = fatal(exp.Selector, StageInternal, expectation.ErrUnsupportedKind,
			"cannot verify %s: element type %q", exp.Selector, exp.RawKind)
	}
	if f != nil {
		v.Log.Error("%s", f.Error())
		out.fail(f)
		return out
	}
	out.Success = true
	return out
}

// locate runs the shared preamble: first match, scroll, visibility, text.
func (v *Verifier) locate(page browser.Page, selector string) (browser.Element, string, *Failure) {
	el := page.Locate(selector)
	if err := el.ScrollIntoView(v.Timeouts.Scroll); err != nil {
		return nil, "", fatal(selector, StageLocate, err, "element '%s' not found or not visible", selector)
	}
	if err := el.WaitVisible(v.Timeouts.Visible); err != nil {
		return nil, "", fatal(selector, StageLocate, err, "element '%s' not found or not visible", selector)
	}
	raw, err := el.InnerText()
	if err != nil {
		return nil, "", fatal(selector, StageText, err, "could not read text of '%s'", selector)
	}
	return el, NormalizeText(raw), nil
}

func (v *Verifier) verifyContent(page browser.Page, exp expectation.Expectation) *Failure {
	sel := exp.Selector
	expected := NormalizeText(exp.ExpectedText)
	v.Log.Info("Verifying content on %s with selector '%s', expected text '%s'", page.URL(), sel, expected)

	_, actual, f := v.locate(page, sel)
	if f != nil {
		return f
	}
	if actual != expected {
		return fatal(sel, StageText, nil, "content MISMATCH for %s. Expected: '%s', Got: '%s'", sel, expected, actual)
	}
	v.Log.Info("Content MATCH: selector '%s', text '%s'", sel, actual)
	return nil
}

func (v *Verifier) verifyLink(page browser.Page, exp expectation.Expectation, out *Outcome) *Failure {
	sel := exp.Selector
	expectedText := NormalizeText(exp.ExpectedText)
	expectedHref := NormalizeHref(exp.ExpectedHref)
	v.Log.Info("Verifying link on %s with selector '%s', expected text '%s', expected href '%s'",
		page.URL(), sel, expectedText, expectedHref)

	el, actualText, f := v.locate(page, sel)
	if f != nil {
		return f
	}

	if s, ok := v.Sentinels.Lookup(expectedText); ok {
		if warning, detail := s.check(el); warning != "" {
			v.Log.Warn("Sentinel check failed for '%s': %s", sel, warning)
			out.Warnings = append(out.Warnings, warning)
		} else {
			v.Log.Info("Sentinel %q matched for '%s' (%s)", s.Text, sel, detail)
		}
	} else if expectedText != "" {
		if actualText != expectedText {
			return fatal(sel, StageText, nil, "link text MISMATCH for %s. Expected: '%s', Got: '%s'", sel, expectedText, actualText)
		}
		v.Log.Info("Link text MATCH: selector '%s', text '%s'", sel, actualText)
	}

	rawHref, present, err := el.Attribute("href")
	if err != nil {
		return fatal(sel, StageHref, err, "could not read href of '%s'", sel)
	}
	actualHref := NormalizeHref(rawHref)
	switch {
	case present && actualHref != expectedHref:
		return fatal(sel, StageHref, nil, "link href MISMATCH for %s. Expected: '%s', Got: '%s'", sel, expectedHref, actualHref)
	case present:
		v.Log.Info("Link href MATCH: selector '%s', href '%s'", sel, actualHref)
	case expectedHref != "":
		return fatal(sel, StageHref, nil, "link href MISSING for %s. Expected: '%s'", sel, expectedHref)
	}

	target := strings.TrimSpace(exp.ExpectedHref)
	if present {
		target = strings.TrimSpace(rawHref)
	}
	if target == "" || skipLiveness(target) {
		return nil
	}
	return v.checkLiveness(page, sel, target)
}

// checkLiveness loads href in a sibling page of the same session. Status
// 400 and above, a missing response and navigation errors are fatal.
func (v *Verifier) checkLiveness(page browser.Page, sel, href string) *Failure {
	target, err := ResolveHref(page.URL(), href)
	if err != nil {
		return fatal(sel, StageLiveness, err, "link %s (selector '%s') cannot be resolved", href, sel)
	}
	v.Log.Info("Checking link accessibility: %s", target)

	sibling, err := page.OpenSibling()
	if err != nil {
		return fatal(sel, StageLiveness, err, "link %s (selector '%s') could not open a page", target, sel)
	}
	defer func() {
		if err := sibling.Close(); err != nil {
			v.Log.Warn("Closing liveness page for %s: %v", target, err)
		}
	}()

	resp, err := sibling.Goto(target, browser.GotoOptions{
		WaitUntil: browser.WaitDOMContentLoaded,
		Timeout:   v.Timeouts.Liveness,
	})
	if err != nil {
		return fatal(sel, StageLiveness, err, "link %s (selector '%s') failed during navigation", target, sel)
	}
	if resp == nil {
		return fatal(sel, StageLiveness, browser.ErrNoResponse, "link %s (selector '%s') returned no response", target, sel)
	}
	if resp.Status >= 400 {
		return fatal(sel, StageLiveness, nil, "link %s (selector '%s') is broken. Status: %d", target, sel, resp.Status)
	}
	v.Log.Info("Link %s is reachable. Status: %d", target, resp.Status)
	return nil
}
