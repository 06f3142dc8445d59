//go:build e2e

// Package e2e runs the configured suites against the live site as Go tests:
//
//	go test -tags e2e ./e2e -run TestSite/careers
//
// SITEPROBE_CONFIG selects the configuration file (default ../siteprobe.json).
package e2e

import (
	"os"
	"testing"

	"SiteProbe/pkg/browser"
	"SiteProbe/pkg/config"
	"SiteProbe/pkg/logger"
	"SiteProbe/pkg/suite"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSite(t *testing.T) {
	path := os.Getenv("SITEPROBE_CONFIG")
	if path == "" {
		path = "../siteprobe.json"
	}
	cfg, _, err := config.Load(path)
	require.NoError(t, err)

	log := logger.FromZap(zaptest.NewLogger(t))

	suites, err := suite.LoadConfigured(cfg, nil, log)
	require.NoError(t, err)
	runner, err := suite.RunnerFromConfig(cfg, log)
	require.NoError(t, err)

	driver, err := browser.Launch(t.Context(), browser.OptionsFromConfig(cfg), log)
	require.NoError(t, err)
	t.Cleanup(func() { driver.Close() })

	for _, s := range suites {
		t.Run(s.Name, func(t *testing.T) {
			session, err := driver.NewSession()
			require.NoError(t, err)
			defer session.Close()

			suite.RunTest(t, runner, session, s)
		})
	}
}
