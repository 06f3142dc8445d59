package browser

import (
	"fmt"

	"SiteProbe/pkg/logger"

	"github.com/playwright-community/playwright-go"
)

// InstallDeps downloads the Playwright driver and the given browser engines
// (chromium when none are named). Only the playwright driver needs it.
func InstallDeps(log *logger.Logger, engines ...string) error {
	if len(engines) == 0 {
		engines = []string{"chromium"}
	}
	log.Info("Installing Playwright driver and browsers %v...", engines)
	err := playwright.Install(&playwright.RunOptions{
		Browsers: engines,
		Verbose:  true,
	})
	if err != nil {
		return fmt.Errorf("failed to install Playwright browsers: %w", err)
	}
	log.Info("Playwright installation complete.")
	return nil
}

// CheckDeps returns true if the Playwright driver is already installed.
func CheckDeps() bool {
	driver, err := playwright.NewDriver(&playwright.RunOptions{
		SkipInstallBrowsers: true,
		Verbose:             false,
	})
	if err != nil {
		return false
	}
	// Fails when the driver binary is missing.
	cmd := driver.Command("--version")
	return cmd.Run() == nil
}
