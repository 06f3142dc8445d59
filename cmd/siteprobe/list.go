package main

import (
	"fmt"
	"io"

	"SiteProbe/pkg/expectation"
	"SiteProbe/pkg/logger"
	"SiteProbe/pkg/suite"

	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand() *cobra.Command {
	var names []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured suites and their cases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			suites, err := suite.LoadConfigured(cfg, names, logger.Nop())
			if err != nil {
				return err
			}
			listSuites(suites, cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&names, "suite", "s", nil, "Suite to list (repeatable, default all)")
	return cmd
}

func listSuites(suites []*expectation.Suite, out io.Writer) {
	for _, s := range suites {
		fmt.Fprintf(out, "%s (%s, %d cases)\n", s.Name, s.Source, s.Len())
		for i, name := range s.CaseNames() {
			exp := s.Expectations[i]
			marker := " "
			if !exp.Supported() {
				marker = "-"
			}
			fmt.Fprintf(out, "  %s %s  %s\n", marker, name, exp.Selector)
		}
	}
}
