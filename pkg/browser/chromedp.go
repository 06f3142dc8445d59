package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

// chromedpDriver drives the system Chrome/Chromium over the DevTools
// protocol. One Chrome process is shared; every session is its own browser
// context and every page its own tab.
//
// chromedp.Navigate waits for the load event, so WaitDOMContentLoaded is
// treated as WaitLoad by this driver.
type chromedpDriver struct {
	opts       Options
	allocCnl   context.CancelFunc
	browserCtx context.Context
	browserCnl context.CancelFunc
}

func launchChromedp(parent context.Context, opts Options) (Driver, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("window-size", fmt.Sprintf("%d,%d", opts.ViewportWidth, opts.ViewportHeight)),
		chromedp.UserAgent(opts.UserAgent),
	)
	if opts.IgnoreHTTPSErrors {
		allocOpts = append(allocOpts, chromedp.Flag("ignore-certificate-errors", true))
	}
	if opts.ExecutablePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecutablePath))
	}

	// The browser must outlive parent's cancellation only through Close.
	allocCtx, allocCnl := chromedp.NewExecAllocator(context.WithoutCancel(parent), allocOpts...)
	browserCtx, browserCnl := chromedp.NewContext(allocCtx)

	// Run with no actions starts Chrome and fails fast when it is missing.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCnl()
		allocCnl()
		return nil, fmt.Errorf("Chrome failed to start: %w\nEnsure Google Chrome or Chromium is installed on this machine", err)
	}

	return &chromedpDriver{
		opts:       opts,
		allocCnl:   allocCnl,
		browserCtx: browserCtx,
		browserCnl: browserCnl,
	}, nil
}

func (d *chromedpDriver) Name() string { return "chromedp" }

func (d *chromedpDriver) NewSession() (Session, error) {
	return &chromedpSession{driver: d}, nil
}

// Close shuts down all tabs and the Chrome process.
func (d *chromedpDriver) Close() error {
	d.browserCnl()
	d.allocCnl()
	return nil
}

type chromedpSession struct {
	driver *chromedpDriver

	mu       sync.Mutex
	root     context.Context // first tab; owns the browser context
	rootCnl  context.CancelFunc
	rootUsed bool
}

// NewPage opens a tab. The first tab creates the session's browser context;
// later tabs are opened from it so they share cookies and storage.
func (s *chromedpSession) NewPage() (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.root == nil {
		ctx, cancel := chromedp.NewContext(s.driver.browserCtx, chromedp.WithNewBrowserContext())
		if err := s.driver.initTab(ctx); err != nil {
			cancel()
			return nil, err
		}
		s.root, s.rootCnl = ctx, cancel
	}
	if !s.rootUsed {
		s.rootUsed = true
		return &chromedpPage{driver: s.driver, session: s, ctx: s.root, cancel: s.releaseRoot}, nil
	}
	return s.openTab()
}

func (s *chromedpSession) openTab() (Page, error) {
	ctx, cancel := chromedp.NewContext(s.root)
	if err := s.driver.initTab(ctx); err != nil {
		cancel()
		return nil, err
	}
	return &chromedpPage{driver: s.driver, session: s, ctx: ctx, cancel: cancel}, nil
}

// releaseRoot marks the root tab free; it stays open until the session
// closes because closing it would dispose the browser context.
func (s *chromedpSession) releaseRoot() {
	s.mu.Lock()
	s.rootUsed = false
	s.mu.Unlock()
}

func (s *chromedpSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rootCnl != nil {
		s.rootCnl()
		s.root, s.rootCnl = nil, nil
	}
	return nil
}

// initTab creates the target behind ctx and sizes its viewport. The first
// Run binds the tab's event loop to its context, so it must run on ctx
// itself; only later actions may use derived timeouts.
func (d *chromedpDriver) initTab(ctx context.Context) error {
	if err := chromedp.Run(ctx); err != nil {
		return fmt.Errorf("open tab: %w", err)
	}
	tctx, cancel := context.WithTimeout(ctx, d.opts.OpTimeout)
	defer cancel()
	err := chromedp.Run(tctx,
		emulation.SetDeviceMetricsOverride(int64(d.opts.ViewportWidth), int64(d.opts.ViewportHeight), 1.0, false),
	)
	if err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}
	return nil
}

type chromedpPage struct {
	driver  *chromedpDriver
	session *chromedpSession
	ctx     context.Context
	cancel  func()

	mu      sync.Mutex
	lastURL string
	closed  bool
}

// withTimeout runs fn with a per-call timeout derived from the tab context.
func (p *chromedpPage) withTimeout(timeout time.Duration, fn func(ctx context.Context) error) error {
	if p.isClosed() {
		return ErrPageClosed
	}
	if timeout <= 0 {
		timeout = p.driver.opts.OpTimeout
	}
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	return fn(ctx)
}

func (p *chromedpPage) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *chromedpPage) Goto(url string, opts GotoOptions) (*Response, error) {
	var resp *Response
	err := p.withTimeout(opts.Timeout, func(ctx context.Context) error {
		r, err := chromedp.RunResponse(ctx, chromedp.Navigate(url))
		if err != nil {
			return err
		}
		if r != nil {
			resp = &Response{URL: r.URL, Status: int(r.Status)}
		}
		return nil
	})
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("navigate %q: timeout after %s: %w", url, opts.Timeout, err)
		}
		return nil, fmt.Errorf("navigate %q: %w", url, err)
	}
	// refresh lastURL while the tab is known to be responsive
	_ = p.URL()
	return resp, nil
}

func (p *chromedpPage) WaitForURL(url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		current := p.URL()
		if current == url {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: want %q, got %q", ErrURLMismatch, url, current)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// URL returns the tab location, or the last known one when it cannot be read.
func (p *chromedpPage) URL() string {
	var loc string
	err := p.withTimeout(2*time.Second, func(ctx context.Context) error {
		return chromedp.Run(ctx, chromedp.Location(&loc))
	})
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		p.lastURL = loc
	}
	return p.lastURL
}

func (p *chromedpPage) Locate(selector string) Element {
	return &chromedpElement{page: p, selector: selector}
}

func (p *chromedpPage) OpenSibling() (Page, error) {
	if p.isClosed() {
		return nil, ErrPageClosed
	}
	p.session.mu.Lock()
	defer p.session.mu.Unlock()
	return p.session.openTab()
}

func (p *chromedpPage) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	p.cancel()
	return nil
}

// chromedpElement resolves its selector on every call; a child element is
// scoped to the first node of its parent.
type chromedpElement struct {
	page     *chromedpPage
	parent   *chromedpElement
	selector string
	query    string
}

func (e *chromedpElement) Selector() string {
	if e.parent != nil {
		return e.parent.Selector() + " >> " + e.query
	}
	return e.selector
}

func (e *chromedpElement) sel() string {
	if e.parent != nil {
		return e.query
	}
	return e.selector
}

// queryOptions returns the options scoping the query to the parent node.
func (e *chromedpElement) queryOptions(ctx context.Context, extra ...chromedp.QueryOption) ([]chromedp.QueryOption, error) {
	opts := []chromedp.QueryOption{chromedp.ByQuery}
	if e.parent != nil {
		node, err := e.parent.node(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, chromedp.FromNode(node))
	}
	return append(opts, extra...), nil
}

func (e *chromedpElement) node(ctx context.Context) (*cdp.Node, error) {
	opts, err := e.queryOptions(ctx)
	if err != nil {
		return nil, err
	}
	var nodes []*cdp.Node
	if err := chromedp.Run(ctx, chromedp.Nodes(e.sel(), &nodes, opts...)); err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, e.Selector())
		}
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, e.Selector())
	}
	return nodes[0], nil
}

func (e *chromedpElement) ScrollIntoView(timeout time.Duration) error {
	return e.page.withTimeout(timeout, func(ctx context.Context) error {
		opts, err := e.queryOptions(ctx)
		if err != nil {
			return err
		}
		if err := chromedp.Run(ctx, chromedp.ScrollIntoView(e.sel(), opts...)); err != nil {
			if isTimeout(err) {
				return fmt.Errorf("%w: %s", ErrNotFound, e.Selector())
			}
			return err
		}
		return nil
	})
}

func (e *chromedpElement) WaitVisible(timeout time.Duration) error {
	return e.page.withTimeout(timeout, func(ctx context.Context) error {
		opts, err := e.queryOptions(ctx)
		if err != nil {
			return err
		}
		if err := chromedp.Run(ctx, chromedp.WaitVisible(e.sel(), opts...)); err != nil {
			if isTimeout(err) {
				return fmt.Errorf("%w: %s", ErrNotVisible, e.Selector())
			}
			return err
		}
		return nil
	})
}

func (e *chromedpElement) InnerText() (string, error) {
	var text string
	err := e.page.withTimeout(0, func(ctx context.Context) error {
		opts, err := e.queryOptions(ctx)
		if err != nil {
			return err
		}
		return chromedp.Run(ctx, chromedp.Text(e.sel(), &text, opts...))
	})
	if err != nil {
		return "", fmt.Errorf("inner text of %s: %w", e.Selector(), err)
	}
	return text, nil
}

func (e *chromedpElement) Attribute(name string) (string, bool, error) {
	var (
		value string
		ok    bool
	)
	err := e.page.withTimeout(0, func(ctx context.Context) error {
		opts, err := e.queryOptions(ctx)
		if err != nil {
			return err
		}
		return chromedp.Run(ctx, chromedp.AttributeValue(e.sel(), name, &value, &ok, opts...))
	})
	if err != nil {
		return "", false, fmt.Errorf("attribute %s of %s: %w", name, e.Selector(), err)
	}
	return value, ok && value != "", nil
}

func (e *chromedpElement) Locate(selector string) Element {
	return &chromedpElement{page: e.page, parent: e, query: selector}
}
