package browser

import (
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

// playwrightDriver runs one Playwright server and one browser for the run.
type playwrightDriver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    Options
	expect  playwright.PlaywrightAssertions
}

func launchPlaywright(opts Options) (Driver, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright (run `siteprobe install` first?): %w", err)
	}

	var bt playwright.BrowserType
	switch opts.Engine {
	case "firefox":
		bt = pw.Firefox
	case "webkit":
		bt = pw.WebKit
	default:
		bt = pw.Chromium
	}

	launch := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	if opts.SlowMo > 0 {
		launch.SlowMo = playwright.Float(ms(opts.SlowMo))
	}
	if opts.ExecutablePath != "" {
		launch.ExecutablePath = playwright.String(opts.ExecutablePath)
	}

	b, err := bt.Launch(launch)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch %s: %w", bt.Name(), err)
	}

	return &playwrightDriver{
		pw:      pw,
		browser: b,
		opts:    opts,
		expect:  playwright.NewPlaywrightAssertions(),
	}, nil
}

func (d *playwrightDriver) Name() string { return "playwright/" + d.browser.BrowserType().Name() }

func (d *playwrightDriver) NewSession() (Session, error) {
	ctxOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: d.opts.ViewportWidth, Height: d.opts.ViewportHeight},
	}
	if d.opts.UserAgent != "" {
		ctxOpts.UserAgent = playwright.String(d.opts.UserAgent)
	}
	if d.opts.IgnoreHTTPSErrors {
		ctxOpts.IgnoreHttpsErrors = playwright.Bool(true)
	}
	bctx, err := d.browser.NewContext(ctxOpts)
	if err != nil {
		return nil, fmt.Errorf("new browser context: %w", err)
	}
	return &playwrightSession{driver: d, ctx: bctx}, nil
}

func (d *playwrightDriver) Close() error {
	var firstErr error
	if err := d.browser.Close(); err != nil {
		firstErr = fmt.Errorf("close browser: %w", err)
	}
	if err := d.pw.Stop(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("stop playwright: %w", err)
	}
	return firstErr
}

type playwrightSession struct {
	driver *playwrightDriver
	ctx    playwright.BrowserContext
}

func (s *playwrightSession) NewPage() (Page, error) {
	p, err := s.ctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("new page: %w", err)
	}
	return &playwrightPage{driver: s.driver, page: p}, nil
}

func (s *playwrightSession) Close() error {
	return s.ctx.Close()
}

type playwrightPage struct {
	driver *playwrightDriver
	page   playwright.Page
}

func (p *playwrightPage) Goto(url string, opts GotoOptions) (*Response, error) {
	gotoOpts := playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}
	if opts.WaitUntil == WaitLoad {
		gotoOpts.WaitUntil = playwright.WaitUntilStateLoad
	}
	if opts.Timeout > 0 {
		gotoOpts.Timeout = playwright.Float(ms(opts.Timeout))
	}

	resp, err := p.page.Goto(url, gotoOpts)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	return &Response{URL: resp.URL(), Status: resp.Status()}, nil
}

func (p *playwrightPage) WaitForURL(url string, timeout time.Duration) error {
	return p.driver.expect.Page(p.page).ToHaveURL(url, playwright.PageAssertionsToHaveURLOptions{
		Timeout: playwright.Float(ms(timeout)),
	})
}

func (p *playwrightPage) URL() string { return p.page.URL() }

func (p *playwrightPage) Locate(selector string) Element {
	return &playwrightElement{
		driver:   p.driver,
		selector: selector,
		loc:      p.page.Locator(selector).First(),
	}
}

func (p *playwrightPage) OpenSibling() (Page, error) {
	np, err := p.page.Context().NewPage()
	if err != nil {
		return nil, fmt.Errorf("open sibling page: %w", err)
	}
	return &playwrightPage{driver: p.driver, page: np}, nil
}

func (p *playwrightPage) Close() error { return p.page.Close() }

type playwrightElement struct {
	driver   *playwrightDriver
	selector string
	loc      playwright.Locator
}

func (e *playwrightElement) Selector() string { return e.selector }

func (e *playwrightElement) ScrollIntoView(timeout time.Duration) error {
	return e.loc.ScrollIntoViewIfNeeded(playwright.LocatorScrollIntoViewIfNeededOptions{
		Timeout: playwright.Float(ms(timeout)),
	})
}

func (e *playwrightElement) WaitVisible(timeout time.Duration) error {
	return e.driver.expect.Locator(e.loc).ToBeVisible(playwright.LocatorAssertionsToBeVisibleOptions{
		Timeout: playwright.Float(ms(timeout)),
	})
}

func (e *playwrightElement) InnerText() (string, error) {
	return e.loc.InnerText(playwright.LocatorInnerTextOptions{
		Timeout: playwright.Float(ms(e.driver.opts.OpTimeout)),
	})
}

func (e *playwrightElement) Attribute(name string) (string, bool, error) {
	v, err := e.loc.GetAttribute(name, playwright.LocatorGetAttributeOptions{
		Timeout: playwright.Float(ms(e.driver.opts.OpTimeout)),
	})
	if err != nil {
		return "", false, err
	}
	return v, v != "", nil
}

func (e *playwrightElement) Locate(selector string) Element {
	return &playwrightElement{
		driver:   e.driver,
		selector: e.selector + " >> " + selector,
		loc:      e.loc.Locator(selector).First(),
	}
}

// ms converts a duration to the float milliseconds playwright expects.
func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
