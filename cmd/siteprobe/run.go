package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SiteProbe/pkg/browser"
	"SiteProbe/pkg/config"
	"SiteProbe/pkg/expectation"
	"SiteProbe/pkg/logger"
	"SiteProbe/pkg/notify"
	"SiteProbe/pkg/report"
	"SiteProbe/pkg/suite"

	"github.com/spf13/cobra"
)

var errRunFailed = errors.New("one or more cases failed")

type runOptions struct {
	suites     []string
	driver     string
	headed     bool
	baseURL    string
	reportPath string
	fresh      bool
	quiet      bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the configured suites",
		Long: `Run loads every configured suite (or the ones named with --suite),
verifies each row against the live page and prints a summary table.

The command exits non-zero when any case fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			opts.apply(cmd, cfg)

			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			err = runSuites(ctx, cfg, opts, log, cmd.OutOrStdout())
			if err != nil && !errors.Is(err, errRunFailed) {
				if tail := log.GetLastLines(10); tail != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Last log lines (%s):\n%s\n", log.Path(), tail)
				}
			}
			return err
		},
	}

	cmd.Flags().StringSliceVarP(&opts.suites, "suite", "s", nil, "Suite to run (repeatable, default all)")
	cmd.Flags().StringVar(&opts.driver, "driver", "", "Browser driver: playwright, chromedp or static")
	cmd.Flags().BoolVar(&opts.headed, "headed", false, "Show the browser window")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "Rebase every page URL onto this origin")
	cmd.Flags().StringVar(&opts.reportPath, "report", "", "Write the JSON report to this path")
	cmd.Flags().BoolVar(&opts.fresh, "fresh-page", false, "Open a new page for every case")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print per-case progress")

	return cmd
}

// apply lets explicitly set flags override the configuration.
func (o runOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	if o.driver != "" {
		cfg.Browser.Driver = o.driver
	}
	if cmd.Flags().Changed("headed") {
		cfg.Browser.Headless = !o.headed
	}
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	if o.reportPath != "" {
		cfg.Report.JSONPath = o.reportPath
	}
	if cmd.Flags().Changed("fresh-page") {
		cfg.FreshPagePerCase = o.fresh
	}
}

func runSuites(ctx context.Context, cfg *config.Config, opts runOptions, log *logger.Logger, out io.Writer) error {
	suites, err := suite.LoadConfigured(cfg, opts.suites, log)
	if err != nil {
		return err
	}
	if len(suites) == 0 {
		return fmt.Errorf("no suites configured")
	}
	runner, err := suite.RunnerFromConfig(cfg, log)
	if err != nil {
		return err
	}

	started := time.Now()
	driver, err := browser.Launch(ctx, browser.OptionsFromConfig(cfg), log)
	if err != nil {
		return err
	}
	defer func() {
		if err := driver.Close(); err != nil {
			log.Warn("Failed to close browser: %v", err)
		}
	}()

	var progress io.Writer
	if !opts.quiet {
		progress = out
	}
	collector := suite.NewCollector(progress)

	results := make([]report.SuiteResult, 0, len(suites))
	for _, s := range suites {
		results = append(results, runSuite(ctx, driver, runner, s, collector, log))
	}

	summary := report.NewSummary(driver.Name(), started, results)
	fmt.Fprintln(out)
	fmt.Fprintln(out, report.Render(summary, cfg.Report.MaxReasonWidth))
	fmt.Fprintf(out, "Log: %s\n", log.Path())

	if cfg.Report.JSONPath != "" {
		if err := report.WriteJSON(cfg.Report.JSONPath, summary); err != nil {
			log.Error("Failed to write report: %v", err)
		} else {
			log.Info("Report written to %s", cfg.Report.JSONPath)
		}
	}

	notifySummary(cfg, summary, log)

	if !summary.OK() {
		return errRunFailed
	}
	return nil
}

// runSuite gives each suite its own browsing session.
func runSuite(ctx context.Context, driver browser.Driver, runner *suite.Runner, s *expectation.Suite, rep suite.Reporter, log *logger.Logger) report.SuiteResult {
	session, err := driver.NewSession()
	if err != nil {
		log.Error("Suite %s: failed to open session: %v", s.Name, err)
		res := report.SuiteResult{Name: s.Name, PageURL: s.PageURL, Source: s.Source}
		for _, exp := range s.Expectations {
			c := report.CaseResult{
				Suite: s.Name, Name: exp.CaseName(), Selector: exp.Selector, Kind: exp.RawKind,
				Status: report.StatusFailed, Reason: fmt.Sprintf("failed to open browser session: %v", err),
			}
			rep.Fail(c)
			res.Cases = append(res.Cases, c)
		}
		return res
	}
	defer session.Close()
	return runner.Run(ctx, session, s, rep)
}

func notifySummary(cfg *config.Config, summary report.Summary, log *logger.Logger) {
	if !cfg.Telegram.Enabled {
		return
	}
	n, err := notify.New(notify.Options{
		Token:         cfg.Telegram.BotToken,
		ChatID:        cfg.Telegram.ChatID,
		OnlyOnFailure: cfg.Telegram.OnlyOnFailure,
	}, log)
	if err != nil {
		log.Error("Telegram notifier unavailable: %v", err)
		return
	}
	if err := n.NotifySummary(summary); err != nil {
		log.Error("Failed to send Telegram summary: %v", err)
	}
}
