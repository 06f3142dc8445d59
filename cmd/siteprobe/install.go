package main

import (
	"fmt"

	"SiteProbe/pkg/browser"

	"github.com/spf13/cobra"
)

// NewInstallCommand creates the install command.
func NewInstallCommand() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "install [engine...]",
		Short: "Install the Playwright driver and browsers",
		Long: `Install downloads the Playwright driver and the named browser engines
(chromium by default). Only the playwright driver needs it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if check {
				if !browser.CheckDeps() {
					return fmt.Errorf("playwright driver is not installed")
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Playwright driver is installed")
				return nil
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()
			return browser.InstallDeps(log, args...)
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Only report whether the driver is installed")
	return cmd
}
