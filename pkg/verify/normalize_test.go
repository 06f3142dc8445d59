package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Our   Services", "Our Services"},
		{"  Apply\n\tNow  ", "Apply Now"},
		{"Plato Logo", "Plato Logo"},
		{"", ""},
		{" \n ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeText(tt.in), "input %q", tt.in)
	}
}

func TestNormalizeHref(t *testing.T) {
	assert.Equal(t, NormalizeHref("/about/"), NormalizeHref("/about"))
	assert.Equal(t, "/about", NormalizeHref(" /about/ "))
	assert.Equal(t, "/about/", NormalizeHref("/about//"), "only one trailing slash is stripped")
	assert.Equal(t, "", NormalizeHref("/"))

	for _, h := range []string{"/about", "/about/", "https://platotech.com/careers/"} {
		once := NormalizeHref(h)
		assert.Equal(t, once, NormalizeHref(once), "idempotent for %q", h)
	}
}

func TestSkipLiveness(t *testing.T) {
	for _, h := range []string{"mailto:jobs@platotech.com", "tel:+15550100", "#top", "MAILTO:x@y.z"} {
		assert.True(t, skipLiveness(h), h)
	}
	for _, h := range []string{"/careers", "https://platotech.com", "careers#top"} {
		assert.False(t, skipLiveness(h), h)
	}
}

func TestResolveHref(t *testing.T) {
	tests := []struct {
		base, href, want string
	}{
		{"https://platotech.com/careers/", "/careers/apply", "https://platotech.com/careers/apply"},
		{"https://platotech.com/careers/", "apply", "https://platotech.com/careers/apply"},
		{"https://platotech.com/careers/", "../services", "https://platotech.com/services"},
		{"https://platotech.com/careers/", "https://example.com/x", "https://example.com/x"},
		{"https://platotech.com/careers/", "//cdn.platotech.com/a", "https://cdn.platotech.com/a"},
	}
	for _, tt := range tests {
		got, err := ResolveHref(tt.base, tt.href)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestSentinelTable(t *testing.T) {
	table := DefaultSentinels()
	s, ok := table.Lookup("  PLATO   Logo ")
	require.True(t, ok)
	assert.Equal(t, StrategyImageAlt, s.Strategy)
	assert.Equal(t, "plato", s.Contains)

	_, ok = table.Lookup("Apply Now")
	assert.False(t, ok)

	_, err := NewSentinelTable(Sentinel{Text: "x", Strategy: "regex"})
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	_, err = NewSentinelTable(Sentinel{Text: " ", Strategy: StrategyImageAlt})
	assert.Error(t, err)

	_, err = NewSentinelTable(Sentinel{Text: "Acme Logo", Strategy: StrategyImageAlt, Contains: "  "})
	assert.ErrorContains(t, err, "contains is required", "an empty substring matches every alt")

	_, err = NewSentinelTable(
		Sentinel{Text: "Acme Logo", Strategy: StrategyImageAlt, Contains: "acme"},
		Sentinel{Text: "acme   LOGO", Strategy: StrategyImageAlt, Contains: "other"},
	)
	assert.ErrorIs(t, err, ErrDuplicateSentinel)

	custom, err := NewSentinelTable(Sentinel{Text: "Acme Logo", Strategy: StrategyImageAlt, Contains: "acme"})
	require.NoError(t, err)
	s, ok = custom.Lookup("acme logo")
	require.True(t, ok)
	assert.Equal(t, "img", s.Selector, "image selector defaults to img")
}
