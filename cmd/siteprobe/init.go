package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"SiteProbe/pkg/config"

	"github.com/spf13/cobra"
)

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default configuration file",
		Long: `Init writes the default configuration to path (siteprobe.json by
default) with one example suite. An existing file is kept unless --force
is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "siteprobe.json"
			if len(args) == 1 {
				path = args[0]
			}
			if err := writeDefaultConfig(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing file")
	return cmd
}

func writeDefaultConfig(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	cfg := config.DefaultConfig()
	cfg.Suites = []config.SuiteConfig{
		{Name: "careers", Data: "data/careers_data.csv", PageURL: "https://platotech.com/careers/"},
	}
	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
