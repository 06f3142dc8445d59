package suite

import (
	"fmt"

	"SiteProbe/pkg/config"
	"SiteProbe/pkg/expectation"
	"SiteProbe/pkg/logger"
	"SiteProbe/pkg/verify"
)

// RunnerFromConfig wires a Runner with the configured timeouts and sentinels.
func RunnerFromConfig(cfg *config.Config, log *logger.Logger) (*Runner, error) {
	sentinels, err := verify.SentinelsFromConfig(cfg.Sentinels)
	if err != nil {
		return nil, fmt.Errorf("sentinels: %w", err)
	}
	timeouts := verify.TimeoutsFromConfig(cfg.Timeouts)
	return NewRunner(log,
		verify.NewNavigator(log, timeouts),
		verify.NewVerifier(log, timeouts, sentinels),
		cfg.FreshPagePerCase,
	), nil
}

// LoadConfigured loads the named suites in the order given, or every
// configured suite when names is empty. Dropped rows are logged as warnings.
// Page URLs are rebased onto cfg.BaseURL when one is set.
func LoadConfigured(cfg *config.Config, names []string, log *logger.Logger) ([]*expectation.Suite, error) {
	var selected []config.SuiteConfig
	if len(names) == 0 {
		selected = cfg.Suites
	} else {
		for _, name := range names {
			sc := cfg.FindSuite(name)
			if sc == nil {
				return nil, fmt.Errorf("unknown suite %q", name)
			}
			selected = append(selected, *sc)
		}
	}

	suites := make([]*expectation.Suite, 0, len(selected))
	for _, sc := range selected {
		s, rejected, err := expectation.LoadFile(sc.Name, cfg.DataPath(sc), sc.PageURL)
		if err != nil {
			return nil, fmt.Errorf("suite %s: %w", sc.Name, err)
		}
		for _, re := range rejected {
			log.Warn("Suite %s: skipping %s: %s", sc.Name, s.Source, re.Error())
		}
		rebase(cfg, s)
		log.Info("Loaded suite %s: %d cases from %s", s.Name, s.Len(), s.Source)
		suites = append(suites, s)
	}
	return suites, nil
}

func rebase(cfg *config.Config, s *expectation.Suite) {
	if cfg.BaseURL == "" {
		return
	}
	s.PageURL = cfg.RebaseURL(s.PageURL)
	for i := range s.Expectations {
		s.Expectations[i].PageURL = cfg.RebaseURL(s.Expectations[i].PageURL)
	}
}
