package verify

import (
	"net/url"
	"strings"
)

// NormalizeText collapses every run of whitespace (newlines, tabs and
// non-breaking spaces included) to one space and trims the ends.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeHref trims whitespace and strips a single trailing slash.
func NormalizeHref(href string) string {
	return strings.TrimSuffix(strings.TrimSpace(href), "/")
}

// skipLiveness reports whether href points somewhere a navigation cannot
// check: mail and phone links and same-page anchors.
func skipLiveness(href string) bool {
	lower := strings.ToLower(href)
	return strings.HasPrefix(lower, "mailto:") ||
		strings.HasPrefix(lower, "tel:") ||
		strings.HasPrefix(lower, "#")
}

// ResolveHref returns href as an absolute URL. Hrefs starting with "http"
// are used as-is; anything else is resolved against base.
func ResolveHref(base, href string) (string, error) {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(strings.ToLower(href), "http") {
		return href, nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(ref).String(), nil
}
