package expectation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// Column names understood by the loader. Other columns are ignored.
const (
	ColSelector    = "selector"
	ColSelectorCSS = "selector_css"
	ColText        = "text"
	ColHref        = "href"
	ColElementType = "element_type"
	ColPageURL     = "page_url"
)

// RowError describes a data row that was dropped at load time.
type RowError struct {
	Line   int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// LoadFile reads a suite from a CSV file. A missing file wraps
// ErrDataNotFound. pageURL, when non-empty, overrides the page_url column.
func LoadFile(name, path, pageURL string) (*Suite, []RowError, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrDataNotFound, path)
		}
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	s, rejected, err := Load(name, f, pageURL)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", path, err)
	}
	s.Source = path
	return s, rejected, nil
}

// Load parses CSV rows into a suite. The first record is the header; an
// empty input yields an empty suite. Rows without a selector are returned as
// RowErrors and left out of the suite.
func Load(name string, r io.Reader, pageURL string) (*Suite, []RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	s := &Suite{Name: name, PageURL: strings.TrimSpace(pageURL)}

	header, err := reader.Read()
	if err == io.EOF {
		return s, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	selectorCol := ColSelector
	if _, ok := cols[ColSelector]; !ok {
		selectorCol = ColSelectorCSS
	}

	cell := func(rec []string, col string) string {
		i, ok := cols[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rejected []RowError
	for index := 0; ; index++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", index+1, err)
		}
		line, _ := reader.FieldPos(0)

		if isBlank(rec) {
			index--
			continue
		}

		e := Expectation{
			Index:        index,
			Selector:     cell(rec, selectorCol),
			RawKind:      cell(rec, ColElementType),
			ExpectedText: cell(rec, ColText),
			ExpectedHref: cell(rec, ColHref),
			PageURL:      cell(rec, ColPageURL),
		}
		if e.Selector == "" {
			rejected = append(rejected, RowError{Line: line, Reason: "selector is empty"})
			continue
		}
		if kind, err := ParseKind(e.RawKind); err == nil {
			e.Kind = kind
		}
		if s.PageURL == "" {
			s.PageURL = e.PageURL
		}
		s.Expectations = append(s.Expectations, e)
	}

	if s.PageURL != "" {
		for i := range s.Expectations {
			if s.Expectations[i].PageURL == "" {
				s.Expectations[i].PageURL = s.PageURL
			}
		}
	}
	return s, rejected, nil
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
