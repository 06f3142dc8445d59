package browser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// maxBodyBytes caps how much of a page the static driver reads.
const maxBodyBytes = 4 << 20

// staticDriver fetches pages over plain HTTP and queries them with goquery.
// No JavaScript runs, so scrolling is a no-op and visibility is decided from
// markup alone: hidden, aria-hidden="true" and inline display:none or
// visibility:hidden on the element or an ancestor.
type staticDriver struct {
	opts      Options
	transport http.RoundTripper
}

// NewStaticDriver returns the HTTP-only driver. It never fails to start.
func NewStaticDriver(opts Options) Driver {
	return &staticDriver{opts: opts, transport: http.DefaultTransport}
}

func (d *staticDriver) Name() string { return "static" }

func (d *staticDriver) NewSession() (Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	client := &http.Client{
		Transport: d.transport,
		Jar:       jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}
	return &staticSession{driver: d, client: client}, nil
}

func (d *staticDriver) Close() error { return nil }

type staticSession struct {
	driver *staticDriver
	client *http.Client
}

func (s *staticSession) NewPage() (Page, error) {
	return &staticPage{session: s}, nil
}

func (s *staticSession) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

type staticPage struct {
	session *staticSession

	mu     sync.Mutex
	url    string
	doc    *goquery.Document
	closed bool
}

func (p *staticPage) Goto(url string, opts GotoOptions) (*Response, error) {
	if p.isClosed() {
		return nil, ErrPageClosed
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", url, err)
	}
	req.Header.Set("User-Agent", p.session.driver.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := p.session.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("navigate %q: timeout after %s: %w", url, timeout, err)
		}
		return nil, fmt.Errorf("navigate %q: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	// Error pages are parsed too; the status is reported separately.
	var doc *goquery.Document
	if strings.Contains(resp.Header.Get("Content-Type"), "html") || resp.Header.Get("Content-Type") == "" {
		doc, err = goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("parse HTML: %w", err)
		}
	}

	final := resp.Request.URL.String()
	p.mu.Lock()
	p.url = final
	p.doc = doc
	p.mu.Unlock()

	return &Response{URL: final, Status: resp.StatusCode}, nil
}

// WaitForURL compares immediately; without scripts the URL cannot change
// after the response has been read.
func (p *staticPage) WaitForURL(url string, _ time.Duration) error {
	if current := p.URL(); current != url {
		return fmt.Errorf("%w: want %q, got %q", ErrURLMismatch, url, current)
	}
	return nil
}

func (p *staticPage) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.url == "" {
		return "about:blank"
	}
	return p.url
}

func (p *staticPage) Locate(selector string) Element {
	return &staticElement{page: p, selector: selector}
}

func (p *staticPage) OpenSibling() (Page, error) {
	if p.isClosed() {
		return nil, ErrPageClosed
	}
	return p.session.NewPage()
}

func (p *staticPage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.doc = nil
	return nil
}

func (p *staticPage) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *staticPage) document() (*goquery.Document, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, ErrPageClosed
	}
	return p.doc, nil
}

type staticElement struct {
	page     *staticPage
	parent   *staticElement
	selector string
}

func (e *staticElement) Selector() string {
	if e.parent != nil {
		return e.parent.Selector() + " >> " + e.selector
	}
	return e.selector
}

// resolve returns the first match, scoped to the parent's first match.
func (e *staticElement) resolve() (*goquery.Selection, error) {
	var scope *goquery.Selection
	if e.parent != nil {
		s, err := e.parent.resolve()
		if err != nil {
			return nil, err
		}
		scope = s
	} else {
		doc, err := e.page.document()
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, e.Selector())
		}
		scope = doc.Selection
	}
	sel := scope.Find(e.selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, e.Selector())
	}
	return sel, nil
}

func (e *staticElement) ScrollIntoView(time.Duration) error {
	_, err := e.resolve()
	return err
}

func (e *staticElement) WaitVisible(time.Duration) error {
	sel, err := e.resolve()
	if err != nil {
		return err
	}
	if isHidden(sel.Get(0)) {
		return fmt.Errorf("%w: %s", ErrNotVisible, e.Selector())
	}
	return nil
}

func (e *staticElement) InnerText() (string, error) {
	sel, err := e.resolve()
	if err != nil {
		return "", err
	}
	return innerText(sel.Get(0)), nil
}

func (e *staticElement) Attribute(name string) (string, bool, error) {
	sel, err := e.resolve()
	if err != nil {
		return "", false, err
	}
	v, ok := sel.Attr(name)
	return v, ok && v != "", nil
}

func (e *staticElement) Locate(selector string) Element {
	return &staticElement{page: e.page, parent: e, selector: selector}
}

// isHidden reports whether n or one of its ancestors is hidden by markup.
func isHidden(n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if selfHidden(n) {
			return true
		}
	}
	return false
}

func selfHidden(n *html.Node) bool {
	for _, a := range n.Attr {
		switch strings.ToLower(a.Key) {
		case "hidden":
			return true
		case "aria-hidden":
			if strings.EqualFold(strings.TrimSpace(a.Val), "true") {
				return true
			}
		case "style":
			style := strings.ToLower(strings.ReplaceAll(a.Val, " ", ""))
			if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
				return true
			}
		case "type":
			if strings.EqualFold(n.Data, "input") && strings.EqualFold(a.Val, "hidden") {
				return true
			}
		}
	}
	return false
}

var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"blockquote": true, "pre": true, "header": true, "footer": true, "nav": true,
	"ul": true, "ol": true, "table": true,
}

// innerText approximates the rendered text of n: text of hidden subtrees and
// non-rendered elements is skipped and block elements start on a new line.
func innerText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.TextNode:
				// Source line breaks render as spaces.
				sb.WriteString(strings.Map(func(r rune) rune {
					if unicode.IsSpace(r) {
						return ' '
					}
					return r
				}, c.Data))
			case html.ElementNode:
				tag := strings.ToLower(c.Data)
				switch tag {
				case "script", "style", "noscript", "template", "head":
					continue
				case "br":
					sb.WriteString("\n")
					continue
				}
				if selfHidden(c) {
					continue
				}
				if blockTags[tag] {
					sb.WriteString("\n")
				}
				walk(c)
				if blockTags[tag] {
					sb.WriteString("\n")
				}
			}
		}
	}
	walk(n)

	// Collapse runs of spaces inside lines and drop blank lines.
	var out []string
	for _, l := range strings.Split(sb.String(), "\n") {
		l = strings.Join(strings.Fields(l), " ")
		if l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
