// Package notify sends run summaries to a Telegram chat using the tgbotapi
// library.
package notify

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"SiteProbe/pkg/logger"
	"SiteProbe/pkg/report"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxMessageLen keeps each message under Telegram's 4096 character limit.
const maxMessageLen = 4000

// maxListedFailures bounds how many failures a summary lists.
const maxListedFailures = 20

// Options configures a Notifier.
type Options struct {
	Token         string
	ChatID        int64
	OnlyOnFailure bool
	// Endpoint overrides the Bot API URL format, e.g. for a local server.
	Endpoint string
}

// Notifier wraps tgbotapi.BotAPI for run summaries.
type Notifier struct {
	api           *tgbotapi.BotAPI
	chatID        int64
	onlyOnFailure bool
	logger        *logger.Logger
	mu            sync.Mutex
}

// New validates the token via an API call and returns a ready Notifier.
// Returns (nil, nil) when the token or chat is empty (not configured).
func New(opts Options, log *logger.Logger) (*Notifier, error) {
	if opts.Token == "" || opts.ChatID == 0 {
		return nil, nil
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api, err := tgbotapi.NewBotAPIWithAPIEndpoint(opts.Token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}
	api.Debug = false

	return &Notifier{
		api:           api,
		chatID:        opts.ChatID,
		onlyOnFailure: opts.OnlyOnFailure,
		logger:        log,
	}, nil
}

// NotifySummary sends the run summary. A nil Notifier does nothing, and a
// passing run is not sent when only failures were asked for.
func (n *Notifier) NotifySummary(s report.Summary) error {
	if n == nil {
		return nil
	}
	if n.onlyOnFailure && s.OK() {
		n.logf("Run passed, Telegram summary skipped")
		return nil
	}
	return n.SendMessage(FormatSummary(s))
}

// SendMessage sends a Markdown-formatted message to the configured chat.
// Messages longer than 4000 characters are split.
func (n *Notifier) SendMessage(text string) error {
	for _, part := range splitText(text, maxMessageLen) {
		if err := n.sendSingleMessage(part); err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
	}
	return nil
}

// sendSingleMessage sends one message with Markdown parse mode.
// On parse error, it retries without formatting.
func (n *Notifier) sendSingleMessage(text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	_, err := n.api.Send(msg)
	if err != nil && isParseError(err) {
		n.logf("Markdown parse error, retrying without formatting: %v", err)
		msg.ParseMode = ""
		_, err = n.api.Send(msg)
	}
	return err
}

// FormatSummary renders the summary as Telegram Markdown.
func FormatSummary(s report.Summary) string {
	var b strings.Builder
	icon := "✅"
	if !s.OK() {
		icon = "❌"
	}
	fmt.Fprintf(&b, "%s *SiteProbe run* (%s)\n", icon, escapeMarkdown(s.Driver))
	fmt.Fprintf(&b, "%s\n", escapeMarkdown(s.Headline()))

	for _, sr := range s.Suites {
		p, f, k := sr.Counts()
		fmt.Fprintf(&b, "\n*%s*: %d passed, %d failed, %d skipped\n", escapeMarkdown(sr.Name), p, f, k)
	}

	failures := s.Failures()
	if len(failures) > 0 {
		b.WriteString("\n*Failures*\n")
		for i, c := range failures {
			if i == maxListedFailures {
				fmt.Fprintf(&b, "... and %d more\n", len(failures)-maxListedFailures)
				break
			}
			fmt.Fprintf(&b, "• `%s/%s`: %s\n", strings.ReplaceAll(c.Suite, "`", "'"), strings.ReplaceAll(c.Name, "`", "'"), escapeMarkdown(c.Reason))
		}
	}
	if s.Warnings > 0 {
		fmt.Fprintf(&b, "\n⚠️ %d warning(s)\n", s.Warnings)
	}
	return strings.TrimRight(b.String(), "\n")
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// splitText splits text into chunks of at most maxLen bytes, preferring to
// break at newlines. Chunks always end on a rune boundary.
func splitText(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var parts []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			parts = append(parts, text)
			break
		}

		splitPos := maxLen
		if nl := strings.LastIndex(text[:maxLen], "\n"); nl > maxLen/2 {
			splitPos = nl + 1
		}
		// never cut inside a multi-byte character
		for splitPos > 0 && !utf8.RuneStart(text[splitPos]) {
			splitPos--
		}
		if splitPos == 0 {
			splitPos = maxLen
		}

		parts = append(parts, text[:splitPos])
		text = text[splitPos:]
	}
	return parts
}

// isParseError returns true if the error is a Telegram parse/markdown error.
func isParseError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "can't parse")
}

// logf writes to the logger if available.
func (n *Notifier) logf(format string, args ...any) {
	if n.logger != nil {
		n.logger.Info(format, args...)
	}
}
