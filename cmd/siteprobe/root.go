package main

import (
	"fmt"

	"SiteProbe/pkg/config"
	"SiteProbe/pkg/logger"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// NewRootCommand creates the root command for siteprobe.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "siteprobe",
		Short: "Data-driven page verification",
		Long: `siteprobe loads a page, checks that the elements listed in a CSV data
file are visible and carry the expected text and links, and reports one
result per row.

Broken links (HTTP status 400 and above) fail the row; mailto:, tel: and
fragment links are never requested.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file")

	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewListCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewInstallCommand())
	cmd.AddCommand(NewInitCommand())

	return cmd
}

// loadConfig reads the --config flag and loads the configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, _, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.New(logger.Options{
		Dir:     cfg.Log.Dir,
		File:    cfg.Log.File,
		Level:   cfg.Log.Level,
		Console: cfg.Log.Console,
		Append:  cfg.Log.Append,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open log: %w", err)
	}
	return log, nil
}
