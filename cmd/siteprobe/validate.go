package main

import (
	"fmt"
	"io"

	"SiteProbe/pkg/config"
	"SiteProbe/pkg/expectation"
	"SiteProbe/pkg/verify"

	"github.com/spf13/cobra"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file.csv...]",
		Short: "Validate configuration and suite data without opening a browser",
		Long: `Validate checks the configuration, the sentinel table and every suite
data file. Rows that would be dropped or skipped at run time are listed.

CSV files given as arguments are validated instead of the configured suites.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return validateSuites(cfg, args, cmd.OutOrStdout())
		},
	}
}

type dataFile struct {
	name, path, pageURL string
}

func validateSuites(cfg *config.Config, files []string, out io.Writer) error {
	problems := 0
	if _, err := verify.SentinelsFromConfig(cfg.Sentinels); err != nil {
		fmt.Fprintf(out, "✗ sentinels: %v\n", err)
		problems++
	}

	var targets []dataFile
	if len(files) > 0 {
		for _, f := range files {
			targets = append(targets, dataFile{name: f, path: f})
		}
	} else {
		for _, sc := range cfg.Suites {
			targets = append(targets, dataFile{name: sc.Name, path: cfg.DataPath(sc), pageURL: sc.PageURL})
		}
	}

	for _, t := range targets {
		s, rejected, err := expectation.LoadFile(t.name, t.path, t.pageURL)
		if err != nil {
			fmt.Fprintf(out, "✗ %s: %v\n", t.name, err)
			problems++
			continue
		}
		fmt.Fprintf(out, "✓ %s: %d cases\n", t.name, s.Len())
		for _, re := range rejected {
			fmt.Fprintf(out, "    dropped %s\n", re.Error())
			problems++
		}
		for _, exp := range s.Expectations {
			if !exp.Supported() {
				fmt.Fprintf(out, "    %s will be skipped: unsupported element type %q\n", exp.CaseName(), exp.RawKind)
			}
			if exp.PageURL == "" && s.PageURL == "" {
				fmt.Fprintf(out, "    %s has no page URL\n", exp.CaseName())
				problems++
			}
		}
	}

	if problems > 0 {
		fmt.Fprintf(out, "Validation failed: %d problem(s)\n", problems)
		return fmt.Errorf("validation failed")
	}
	fmt.Fprintln(out, "Configuration is valid")
	return nil
}
