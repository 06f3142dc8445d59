package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/reflow/truncate"
)

var (
	primaryColor = lipgloss.Color("#6366F1") // Indigo 500
	successColor = lipgloss.Color("#10B981") // Emerald 500
	errorColor   = lipgloss.Color("#EF4444") // Red 500
	warnColor    = lipgloss.Color("#F59E0B") // Amber 500
	mutedColor   = lipgloss.Color("#64748B") // Slate 500

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	passStyle = cellStyle.Foreground(successColor)
	failStyle = cellStyle.Foreground(errorColor).Bold(true)
	skipStyle = cellStyle.Foreground(mutedColor)
	warnStyle = lipgloss.NewStyle().Foreground(warnColor)

	okLine   = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	failLine = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
)

// DefaultReasonWidth is used when Render is given a non-positive width.
const DefaultReasonWidth = 80

// Render formats the summary as one table per suite followed by a headline.
// Reasons longer than reasonWidth cells are truncated with an ellipsis.
func Render(s Summary, reasonWidth int) string {
	if reasonWidth <= 0 {
		reasonWidth = DefaultReasonWidth
	}

	var b strings.Builder
	for _, sr := range s.Suites {
		p, f, k := sr.Counts()
		b.WriteString(titleStyle.Render(fmt.Sprintf("%s  %s", sr.Name, sr.PageURL)))
		b.WriteString("\n")

		if len(sr.Cases) == 0 {
			b.WriteString(skipStyle.Render("no cases"))
			b.WriteString("\n\n")
			continue
		}

		rows := make([][]string, 0, len(sr.Cases))
		for _, c := range sr.Cases {
			detail := c.Reason
			if detail == "" && len(c.Warnings) > 0 {
				detail = "warning: " + strings.Join(c.Warnings, "; ")
			}
			rows = append(rows, []string{
				statusLabel(c.Status),
				c.Name,
				truncate.StringWithTail(singleLine(detail), uint(reasonWidth), "..."),
			})
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(lipgloss.NewStyle().Foreground(mutedColor)).
			Headers("STATUS", "CASE", "DETAIL").
			Rows(rows...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				if col != 0 || row < 0 || row >= len(sr.Cases) {
					return cellStyle
				}
				switch sr.Cases[row].Status {
				case StatusPassed:
					return passStyle
				case StatusFailed:
					return failStyle
				default:
					return skipStyle
				}
			})
		b.WriteString(t.String())
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%d passed, %d failed, %d skipped in %s\n\n", p, f, k, sr.Duration.Round(time.Millisecond)))
	}

	headline := s.Headline()
	if s.OK() {
		b.WriteString(okLine.Render("PASS " + headline))
	} else {
		b.WriteString(failLine.Render("FAIL " + headline))
	}
	if s.Warnings > 0 {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render(fmt.Sprintf("%d warning(s), see the run log", s.Warnings)))
	}
	b.WriteString("\n")
	return b.String()
}

func statusLabel(s Status) string {
	switch s {
	case StatusPassed:
		return "PASS"
	case StatusFailed:
		return "FAIL"
	default:
		return "SKIP"
	}
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
