// Package browser is the browser-automation capability SiteProbe verifies
// pages through. Three drivers implement it: playwright (default), chromedp
// (Chrome DevTools Protocol) and static (plain HTTP + goquery, no JavaScript).
package browser

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"SiteProbe/pkg/config"
	"SiteProbe/pkg/logger"
	"SiteProbe/pkg/utils"
)

var (
	ErrUnknownDriver = errors.New("unknown browser driver")
	ErrNotFound      = errors.New("no element matches selector")
	ErrNotVisible    = errors.New("element is not visible")
	ErrURLMismatch   = errors.New("page URL does not match")
	ErrPageClosed    = errors.New("page is closed")
)

// ErrNoResponse is returned by callers when a navigation produced no
// main-document response (same-document navigation, aborted load).
var ErrNoResponse = errors.New("navigation returned no response")

// WaitUntil is the page readiness a navigation waits for.
type WaitUntil string

const (
	WaitDOMContentLoaded WaitUntil = "domcontentloaded"
	WaitLoad             WaitUntil = "load"
)

// GotoOptions bounds a navigation.
type GotoOptions struct {
	WaitUntil WaitUntil
	Timeout   time.Duration
}

// Response is the main-document response of a navigation.
type Response struct {
	URL    string
	Status int
}

// Driver owns the browser process (or HTTP client) for a run.
type Driver interface {
	Name() string
	// NewSession opens an isolated browsing session (cookies, storage).
	NewSession() (Session, error)
	Close() error
}

// Session is one isolated browsing context.
type Session interface {
	NewPage() (Page, error)
	Close() error
}

// Page is a single tab. Every call blocks until completion or timeout.
type Page interface {
	// Goto navigates and returns the main-document response, which may be
	// nil without an error.
	Goto(url string, opts GotoOptions) (*Response, error)
	// WaitForURL waits until the displayed URL equals url.
	WaitForURL(url string, timeout time.Duration) error
	URL() string
	// Locate returns a lazy handle to the first element matching selector.
	Locate(selector string) Element
	// OpenSibling opens a new page in the same session.
	OpenSibling() (Page, error)
	Close() error
}

// Element is a lazy handle to the first element matching a selector; it is
// resolved again on every call.
type Element interface {
	Selector() string
	ScrollIntoView(timeout time.Duration) error
	WaitVisible(timeout time.Duration) error
	InnerText() (string, error)
	// Attribute returns the attribute value and whether it is present with a
	// non-empty value.
	Attribute(name string) (string, bool, error)
	// Locate returns the first descendant matching selector.
	Locate(selector string) Element
}

// Options configures a driver.
type Options struct {
	Driver            string
	Engine            string
	Headless          bool
	UserAgent         string
	ViewportWidth     int
	ViewportHeight    int
	SlowMo            time.Duration
	ExecutablePath    string
	IgnoreHTTPSErrors bool
	// OpTimeout bounds reads (text, attributes) that have no timeout of
	// their own.
	OpTimeout time.Duration
	Retry     utils.RetryConfig
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		Driver:         "playwright",
		Engine:         "chromium",
		Headless:       true,
		UserAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		OpTimeout:      10 * time.Second,
		Retry:          utils.DefaultRetryConfig(),
	}
}

// OptionsFromConfig maps the browser and launch_retry sections.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := DefaultOptions()
	b := cfg.Browser
	opts.Driver = b.Driver
	if b.Engine != "" {
		opts.Engine = b.Engine
	}
	opts.Headless = b.Headless
	if b.UserAgent != "" {
		opts.UserAgent = b.UserAgent
	}
	opts.ViewportWidth, opts.ViewportHeight = b.GetViewport()
	opts.SlowMo = time.Duration(b.SlowMo) * time.Millisecond
	opts.ExecutablePath = b.ExecutablePath
	opts.IgnoreHTTPSErrors = b.IgnoreHTTPSErrors

	r := cfg.LaunchRetry
	opts.Retry.MaxRetries = r.MaxRetries
	if r.InitialDelayMs > 0 {
		opts.Retry.InitialDelay = time.Duration(r.InitialDelayMs) * time.Millisecond
	}
	if r.MaxDelayMs > 0 {
		opts.Retry.MaxDelay = time.Duration(r.MaxDelayMs) * time.Millisecond
	}
	return opts
}

// Launch starts the configured driver. Start-up is retried with exponential
// backoff; an unknown driver name fails immediately.
func Launch(ctx context.Context, opts Options, log *logger.Logger) (Driver, error) {
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 10 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultOptions().UserAgent
	}

	var start func() (Driver, error)
	switch strings.ToLower(opts.Driver) {
	case "", "playwright":
		start = func() (Driver, error) {
			if err := checkExecutable(opts.ExecutablePath); err != nil {
				return nil, err
			}
			d, err := launchPlaywright(opts)
			if err != nil && !CheckDeps() {
				return nil, utils.Permanent(err)
			}
			return d, err
		}
	case "chromedp":
		start = func() (Driver, error) {
			if err := checkExecutable(opts.ExecutablePath); err != nil {
				return nil, err
			}
			d, err := launchChromedp(ctx, opts)
			if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
				return nil, utils.Permanent(err)
			}
			return d, err
		}
	case "static":
		start = func() (Driver, error) { return NewStaticDriver(opts), nil }
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}

	var d Driver
	err := utils.ExecuteWithRetry(ctx, func() error {
		var err error
		d, err = start()
		return err
	}, opts.Retry, func(err error, next time.Duration) {
		log.Warn("Browser launch failed, retrying in %s: %v", next, err)
	})
	if err != nil {
		return nil, fmt.Errorf("launch %s driver: %w", opts.Driver, err)
	}
	log.Info("Browser driver %s started (headless=%v)", d.Name(), opts.Headless)
	return d, nil
}

// checkExecutable fails permanently when a configured browser binary is
// missing; retrying cannot make it appear.
func checkExecutable(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return utils.Permanent(fmt.Errorf("browser executable: %w", err))
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "deadline") || strings.Contains(s, "timeout")
}
