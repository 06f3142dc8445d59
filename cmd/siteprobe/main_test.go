package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"SiteProbe/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/careers/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>
<a id="cta" href="/careers/apply/">Apply Now</a>
<a id="old" href="/gone">Old posting</a>
<h2>Our Services</h2>
</body></html>`)
	})
	mux.HandleFunc("/careers/apply/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<h1>Apply</h1>")
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// writeProject writes a config and one suite CSV into a temp dir and returns
// the config path.
func writeProject(t *testing.T, pageURL, data string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "careers.csv"), []byte(data), 0644))

	cfg := map[string]any{
		"log":     map[string]any{"dir": filepath.Join(dir, "logs"), "level": "DEBUG"},
		"browser": map[string]any{"driver": "static", "headless": true},
		"suites": []map[string]any{
			{"name": "careers", "data": "careers.csv", "page_url": pageURL},
		},
		"report":       map[string]any{"json_path": filepath.Join(dir, "report.json")},
		"launch_retry": map[string]any{"max_retries": 0},
	}
	raw, err := json.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(dir, "siteprobe.json")
	require.NoError(t, os.WriteFile(path, raw, 0644))
	return path
}

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRunCommand_Pass(t *testing.T) {
	srv := testSite(t)
	cfgPath := writeProject(t, srv.URL+"/careers/",
		"selector,text,href,element_type\n"+
			"#cta,Apply Now,/careers/apply,link\n"+
			"h2,Our Services,,content\n")

	out, err := execute("run", "--config", cfgPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "PASS careers/link_apply_now_0")
	assert.Contains(t, out, "2 passed, 0 failed")

	_, err = os.Stat(filepath.Join(filepath.Dir(cfgPath), "report.json"))
	assert.NoError(t, err, "JSON report written")
}

func TestRunCommand_BrokenLinkFails(t *testing.T) {
	srv := testSite(t)
	cfgPath := writeProject(t, srv.URL+"/careers/",
		"selector,text,href,element_type\n"+
			"#old,Old posting,/gone,link\n")

	out, err := execute("run", "--config", cfgPath, "--report", filepath.Join(t.TempDir(), "r.json"))
	require.ErrorIs(t, err, errRunFailed)
	assert.Contains(t, out, "FAIL careers/link_old_posting_0")
	assert.Contains(t, out, "Status: 410")
}

func TestRunCommand_UnknownSuite(t *testing.T) {
	srv := testSite(t)
	cfgPath := writeProject(t, srv.URL+"/careers/", "selector,text\n#cta,Apply Now\n")

	_, err := execute("run", "--config", cfgPath, "--suite", "pricing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown suite "pricing"`)
}

func TestListCommand(t *testing.T) {
	cfgPath := writeProject(t, "https://platotech.com/careers/",
		"selector,text,href,element_type\n"+
			"#cta,Apply Now,/careers/apply,link\n"+
			"img.hero,,,image\n")

	out, err := execute("list", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "careers (")
	assert.Contains(t, out, "2 cases")
	assert.Contains(t, out, "link_apply_now_0  #cta")
	assert.Contains(t, out, "- image_img_hero_1")
}

func TestValidateCommand(t *testing.T) {
	cfgPath := writeProject(t, "https://platotech.com/careers/",
		"selector,text,href,element_type\n"+
			"#cta,Apply Now,/careers/apply,link\n")

	out, err := execute("validate", "--config", cfgPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ careers: 1 cases")
	assert.Contains(t, out, "Configuration is valid")
}

func TestValidateCommand_DroppedRows(t *testing.T) {
	cfgPath := writeProject(t, "https://platotech.com/careers/",
		"selector,text,href,element_type\n"+
			",Apply Now,/careers/apply,link\n")

	out, err := execute("validate", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, out, "dropped line 2")
	assert.Contains(t, out, "Validation failed")
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "siteprobe.json")

	out, err := execute("init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	cfg, loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, loaded)
	require.NotNil(t, cfg.FindSuite("careers"))
	assert.Equal(t, config.DriverPlaywright, cfg.Browser.Driver)

	_, err = execute("init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute("init", "--force", path)
	assert.NoError(t, err)
}
