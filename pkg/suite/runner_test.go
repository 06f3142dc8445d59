package suite

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"SiteProbe/pkg/browser"
	"SiteProbe/pkg/browser/browsertest"
	"SiteProbe/pkg/expectation"
	"SiteProbe/pkg/logger"
	"SiteProbe/pkg/report"
	"SiteProbe/pkg/verify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageURL = "https://platotech.com/careers/"

func newRunner(fresh bool) *Runner {
	log := logger.Nop()
	return NewRunner(log,
		verify.NewNavigator(log, verify.DefaultTimeouts()),
		verify.NewVerifier(log, verify.DefaultTimeouts(), verify.DefaultSentinels()),
		fresh)
}

func fakeSite() *browsertest.Session {
	return browsertest.NewSession(map[string]*browsertest.Route{
		pageURL: {Elements: map[string]*browsertest.Node{
			"#cta":        {Text: "Apply Now", Attrs: map[string]string{"href": "/careers/apply/"}},
			"h2.services": {Text: "Our Services"},
		}},
		"https://platotech.com/careers/apply/": {},
	})
}

func loadSuite(t *testing.T, data string) *expectation.Suite {
	t.Helper()
	s, _, err := expectation.Load("careers", strings.NewReader(data), "")
	require.NoError(t, err)
	return s
}

const suiteCSV = `page_url,element_type,text,href,selector
https://platotech.com/careers/,link,Apply Now,/careers/apply,#cta
https://platotech.com/careers/,content,Our   Services,,h2.services
https://platotech.com/careers/,content,Our Products,,h2.services
https://platotech.com/careers/,image,,,img.hero
`

func TestRunnerRun(t *testing.T) {
	for _, fresh := range []bool{false, true} {
		t.Run(fmt.Sprintf("fresh=%v", fresh), func(t *testing.T) {
			site := fakeSite()
			col := NewCollector(nil)

			res := newRunner(fresh).Run(context.Background(), site, loadSuite(t, suiteCSV), col)

			require.Len(t, res.Cases, 4)
			assert.Equal(t, report.StatusPassed, res.Cases[0].Status, res.Cases[0].Reason)
			assert.Equal(t, report.StatusPassed, res.Cases[1].Status, res.Cases[1].Reason)
			assert.Equal(t, report.StatusFailed, res.Cases[2].Status)
			assert.Contains(t, res.Cases[2].Reason, "Our Products")
			assert.Equal(t, report.StatusSkipped, res.Cases[3].Status)
			assert.Contains(t, res.Cases[3].Reason, "unsupported element type: image")

			assert.Equal(t, "link_apply_now_0", res.Cases[0].Name)
			assert.Len(t, col.Results(), 4)
			assert.Equal(t, site.Opened(), site.Closed(), "runner closes every page it opens")

			visits := 0
			for _, u := range site.Visited() {
				if u == pageURL {
					visits++
				}
			}
			assert.Equal(t, 3, visits, "every supported case navigates")
		})
	}
}

func TestRunnerNavigationFailure(t *testing.T) {
	site := browsertest.NewSession(map[string]*browsertest.Route{
		pageURL: {RedirectTo: "https://platotech.com/login"},
	})
	res := newRunner(false).Run(context.Background(), site, loadSuite(t, suiteCSV), NewCollector(nil))

	require.Len(t, res.Cases, 4)
	for _, c := range res.Cases[:3] {
		assert.Equal(t, report.StatusFailed, c.Status)
		assert.Contains(t, c.Reason, "Failed to navigate to "+pageURL)
	}
}

func TestRunnerEmptySuite(t *testing.T) {
	col := NewCollector(nil)
	res := newRunner(false).Run(context.Background(), fakeSite(), loadSuite(t, "selector,text\n"), col)

	assert.Empty(t, res.Cases)
	got := col.Results()
	require.Len(t, got, 1)
	assert.Equal(t, report.StatusSkipped, got[0].Status)
	assert.Equal(t, "no data", got[0].Reason)
}

func TestRunnerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	site := fakeSite()

	res := newRunner(false).Run(ctx, site, loadSuite(t, suiteCSV), NewCollector(nil))

	for _, c := range res.Cases {
		assert.Equal(t, report.StatusSkipped, c.Status)
	}
	assert.Empty(t, site.Visited())
}

func TestCollectorOutput(t *testing.T) {
	var buf bytes.Buffer
	col := NewCollector(&buf)
	col.Pass(report.CaseResult{Suite: "careers", Name: "a"})
	col.Fail(report.CaseResult{Suite: "careers", Name: "b", Reason: "boom"})

	assert.Equal(t, "PASS careers/a\nFAIL careers/b: boom\n", buf.String())
}

// RunTest against a real HTTP server through the static driver.
func TestRunTestStatic(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/careers/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, `<html><body>
<header><a class="logo" href="/"><img alt="PLATO logo"></a></header>
<a id="cta" href="/careers/apply/">Apply
  Now</a>
<h2 class="services">Our <em>Services</em></h2>
<a id="mail" href="mailto:jobs@platotech.com">Email us</a>
</body></html>`)
	})
	mux.HandleFunc("/careers/apply/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<h1>Apply</h1>")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<h1>Home</h1>")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	data := "selector,text,href,element_type\n" +
		"#cta,Apply Now,/careers/apply,link\n" +
		"h2.services,Our Services,,content\n" +
		"header a.logo,Plato Logo,/,link\n" +
		"#mail,Email us,mailto:jobs@platotech.com,link\n"
	s, _, err := expectation.Load("careers", strings.NewReader(data), srv.URL+"/careers/")
	require.NoError(t, err)

	session, err := browser.NewStaticDriver(browser.DefaultOptions()).NewSession()
	require.NoError(t, err)
	defer session.Close()

	res := RunTest(t, newRunner(false), session, s)

	require.Len(t, res.Cases, 4)
	for _, c := range res.Cases {
		assert.Equal(t, report.StatusPassed, c.Status, "%s: %s", c.Name, c.Reason)
	}
}
