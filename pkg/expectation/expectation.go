// Package expectation holds the element expectation records a suite is made
// of and loads them from CSV data files.
package expectation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Kind selects the verification routine for an expectation.
type Kind string

const (
	KindLink    Kind = "link"
	KindContent Kind = "content"
)

var (
	// ErrUnsupportedKind is returned for element_type values other than link and content.
	ErrUnsupportedKind = errors.New("unsupported element type")
	// ErrDataNotFound is returned when a suite data file does not exist.
	ErrDataNotFound = errors.New("data file not found")
)

// ParseKind maps an element_type cell to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindLink:
		return KindLink, nil
	case KindContent:
		return KindContent, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
	}
}

// Expectation is one row of verification input: the expected state of one
// DOM element on a page.
type Expectation struct {
	Index        int
	Selector     string
	Kind         Kind // empty when RawKind is unsupported
	RawKind      string
	ExpectedText string
	ExpectedHref string // only meaningful for KindLink
	PageURL      string
}

// Supported reports whether the expectation has a kind the verifier handles.
func (e Expectation) Supported() bool {
	return e.Kind == KindLink || e.Kind == KindContent
}

var nonIdent = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// SanitizeName turns free text into a lower-case identifier of at most 50
// characters.
func SanitizeName(name string) string {
	name = nonIdent.ReplaceAllString(name, "_")
	name = strings.ToLower(strings.Trim(name, "_"))
	if name == "" {
		return "element"
	}
	if len(name) > 50 {
		name = name[:50]
	}
	return name
}

// CaseName returns a stable, readable test case name such as
// "link_apply_now_3".
func (e Expectation) CaseName() string {
	kind := e.RawKind
	if kind == "" {
		kind = "unknown"
	}

	base := e.ExpectedText
	if strings.TrimSpace(base) == "" && strings.TrimSpace(e.Selector) != "" {
		base = e.Selector
	}
	if strings.TrimSpace(base) == "" {
		base = fmt.Sprintf("%s_item_%d", kind, e.Index)
	}
	return fmt.Sprintf("%s_%d", SanitizeName(kind+"_"+base), e.Index)
}

// Suite is the ordered expectation table for one page.
type Suite struct {
	Name         string
	PageURL      string
	Source       string
	Expectations []Expectation
}

// Len returns the number of expectations.
func (s *Suite) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Expectations)
}

// CaseNames lists the case names in table order.
func (s *Suite) CaseNames() []string {
	names := make([]string, 0, s.Len())
	for _, e := range s.Expectations {
		names = append(names, e.CaseName())
	}
	return names
}
