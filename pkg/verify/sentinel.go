package verify

import (
	"errors"
	"fmt"
	"strings"

	"SiteProbe/pkg/browser"
	"SiteProbe/pkg/config"
)

// Strategy is an alternate, lenient check replacing the link text comparison.
type Strategy string

// StrategyImageAlt checks that a child image's alt text contains a substring.
const StrategyImageAlt Strategy = config.StrategyImageAlt

var (
	ErrUnknownStrategy   = errors.New("unknown sentinel strategy")
	ErrDuplicateSentinel = errors.New("duplicate sentinel text")
)

// Sentinel maps an expected link text to a Strategy.
type Sentinel struct {
	Text     string
	Strategy Strategy
	Selector string
	Contains string
}

// SentinelTable is keyed by normalised, lower-cased expected text.
type SentinelTable map[string]Sentinel

// NewSentinelTable validates and indexes entries. Texts that normalise to
// the same key are rejected, as is an empty Contains, which would match
// every alt text.
func NewSentinelTable(entries ...Sentinel) (SentinelTable, error) {
	t := make(SentinelTable, len(entries))
	for _, s := range entries {
		key := sentinelKey(s.Text)
		if key == "" {
			return nil, fmt.Errorf("sentinel text is empty")
		}
		if _, dup := t[key]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSentinel, s.Text)
		}
		switch s.Strategy {
		case StrategyImageAlt:
			if s.Selector == "" {
				s.Selector = "img"
			}
			if strings.TrimSpace(s.Contains) == "" {
				return nil, fmt.Errorf("sentinel %q: contains is required", s.Text)
			}
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, s.Strategy)
		}
		t[key] = s
	}
	return t, nil
}

// DefaultSentinels is the site logo check: an image whose alt mentions plato.
func DefaultSentinels() SentinelTable {
	t, _ := NewSentinelTable(Sentinel{
		Text:     "plato logo",
		Strategy: StrategyImageAlt,
		Selector: "img",
		Contains: "plato",
	})
	return t
}

// SentinelsFromConfig builds the table from configuration entries.
func SentinelsFromConfig(entries []config.SentinelConfig) (SentinelTable, error) {
	ss := make([]Sentinel, 0, len(entries))
	for _, e := range entries {
		ss = append(ss, Sentinel{
			Text:     e.Text,
			Strategy: Strategy(e.Strategy),
			Selector: e.Selector,
			Contains: e.Contains,
		})
	}
	return NewSentinelTable(ss...)
}

// Lookup finds the sentinel for an expected text, ignoring case and
// whitespace differences.
func (t SentinelTable) Lookup(text string) (Sentinel, bool) {
	s, ok := t[sentinelKey(text)]
	return s, ok
}

func sentinelKey(text string) string {
	return config.SentinelKey(text)
}

// check runs the strategy against the link element. A non-empty return is a
// warning; sentinel checks never fail an expectation.
func (s Sentinel) check(el browser.Element) (warning string, detail string) {
	switch s.Strategy {
	case StrategyImageAlt:
		alt, ok, err := el.Locate(s.Selector).Attribute("alt")
		if err != nil {
			return fmt.Sprintf("%s: no %q inside %s", s.Text, s.Selector, el.Selector()), ""
		}
		if !ok {
			return fmt.Sprintf("%s: %s has no alt text", s.Text, s.Selector), ""
		}
		if !strings.Contains(strings.ToLower(alt), strings.ToLower(s.Contains)) {
			return fmt.Sprintf("%s: alt text %q does not contain %q", s.Text, alt, s.Contains), ""
		}
		return "", alt
	}
	return fmt.Sprintf("%s: unknown strategy %q", s.Text, s.Strategy), ""
}
