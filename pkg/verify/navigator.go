// Package verify navigates pages and checks expected elements on them.
package verify

import (
	"fmt"
	"net/url"
	"time"

	"SiteProbe/pkg/browser"
	"SiteProbe/pkg/config"
	"SiteProbe/pkg/logger"
)

// Timeouts bounds each browser operation separately.
type Timeouts struct {
	Navigation time.Duration
	URLMatch   time.Duration
	Scroll     time.Duration
	Visible    time.Duration
	Liveness   time.Duration
}

// DefaultTimeouts returns 30s navigation, 15s URL match, 5s scroll,
// 10s visibility and 20s liveness.
func DefaultTimeouts() Timeouts {
	return TimeoutsFromConfig(config.TimeoutConfig{})
}

// TimeoutsFromConfig converts configured milliseconds, applying defaults.
func TimeoutsFromConfig(t config.TimeoutConfig) Timeouts {
	return Timeouts{
		Navigation: t.GetNavigation(),
		URLMatch:   t.GetURLMatch(),
		Scroll:     t.GetScroll(),
		Visible:    t.GetVisible(),
		Liveness:   t.GetLiveness(),
	}
}

// Navigator loads the page under test.
type Navigator struct {
	Timeouts Timeouts
	Log      *logger.Logger
}

// NewNavigator returns a Navigator logging to log.
func NewNavigator(log *logger.Logger, timeouts Timeouts) *Navigator {
	return &Navigator{Timeouts: timeouts, Log: log}
}

// Navigate loads targetURL and waits until the page reports exactly that
// URL, catching silent redirects. Failures are logged and reported as false;
// the caller decides whether they are fatal.
func (n *Navigator) Navigate(page browser.Page, targetURL string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			n.Log.Error("Failed to navigate to %s: %v", targetURL, r)
			ok = false
		}
	}()

	n.Log.Info("Navigating to URL: %s", targetURL)

	if err := checkTarget(targetURL); err != nil {
		n.Log.Error("Failed to navigate to %s: %v", targetURL, err)
		return false
	}

	_, err := page.Goto(targetURL, browser.GotoOptions{
		WaitUntil: browser.WaitDOMContentLoaded,
		Timeout:   n.Timeouts.Navigation,
	})
	if err != nil {
		n.Log.Error("Failed to navigate to %s: %v", targetURL, err)
		return false
	}

	if err := page.WaitForURL(targetURL, n.Timeouts.URLMatch); err != nil {
		n.Log.Error("Failed to navigate to %s: %v", targetURL, err)
		return false
	}

	n.Log.Info("Successfully navigated to %s", targetURL)
	return true
}

func checkTarget(target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return err
	}
	if !u.IsAbs() {
		return fmt.Errorf("URL %q is not absolute", target)
	}
	return nil
}
