package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSummary() Summary {
	suites := []SuiteResult{
		{
			Name:    "careers",
			PageURL: "https://platotech.com/careers/",
			Cases: []CaseResult{
				{Suite: "careers", Name: "link_apply_now_0", Status: StatusPassed},
				{Suite: "careers", Name: "link_plato_logo_1", Status: StatusPassed, Warnings: []string{"plato logo: img has no alt text"}},
				{Suite: "careers", Name: "content_our_services_2", Status: StatusFailed, Reason: "content MISMATCH for h2. Expected: 'Our Services', Got: '" + strings.Repeat("x", 200) + "'"},
				{Suite: "careers", Name: "image_img_hero_3", Status: StatusSkipped, Reason: "unsupported element type: image"},
			},
		},
		{Name: "empty", PageURL: "https://platotech.com/"},
	}
	return NewSummary("static", time.Now().Add(-2*time.Second), suites)
}

func TestNewSummary(t *testing.T) {
	s := sampleSummary()
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Passed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 1, s.Warnings)
	assert.False(t, s.OK())
	assert.GreaterOrEqual(t, s.Duration, 2*time.Second)

	failures := s.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "content_our_services_2", failures[0].Name)
	assert.Contains(t, s.Headline(), "2 passed, 1 failed, 1 skipped")

	assert.True(t, NewSummary("static", time.Now(), nil).OK())
}

func TestRender(t *testing.T) {
	out := Render(sampleSummary(), 40)

	assert.Contains(t, out, "careers")
	assert.Contains(t, out, "link_apply_now_0")
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "SKIP")
	assert.Contains(t, out, "FAIL 2 passed, 1 failed, 1 skipped")
	assert.Contains(t, out, "warning: plato logo")
	assert.Contains(t, out, "no cases")
	assert.Contains(t, out, "...", "long reasons are truncated")
	assert.NotContains(t, out, strings.Repeat("x", 100))
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.json")
	require.NoError(t, WriteJSON(path, sampleSummary()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got Summary
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "static", got.Driver)
	assert.Equal(t, 1, got.Failed)
	require.Len(t, got.Suites, 2)
	assert.Equal(t, StatusSkipped, got.Suites[0].Cases[3].Status)
}
