// Package browsertest provides an in-memory browser.Session for tests of code
// that drives pages. Pages are served from a route table and every page open
// and close is counted so tests can check for leaks.
package browsertest

import (
	"fmt"
	"net/url"
	"sync"
	"time"

	"SiteProbe/pkg/browser"
)

// Node is a fake DOM element. Children are addressed by selector.
type Node struct {
	Text     string
	Attrs    map[string]string
	Hidden   bool
	Children map[string]*Node
	// Panic makes InnerText panic with this value.
	Panic any
}

// Route is what a URL serves.
type Route struct {
	Status int // default 200
	// RedirectTo is the URL the page ends up on.
	RedirectTo string
	Err        error
	NoResponse bool
	Elements   map[string]*Node
}

// Session is a fake browser.Session.
type Session struct {
	Routes map[string]*Route
	// SiblingErr makes OpenSibling fail.
	SiblingErr error

	mu      sync.Mutex
	opened  int
	closed  int
	visited []string
}

// NewSession returns a session serving routes.
func NewSession(routes map[string]*Route) *Session {
	if routes == nil {
		routes = map[string]*Route{}
	}
	return &Session{Routes: routes}
}

func (s *Session) NewPage() (browser.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened++
	return &Page{session: s, url: "about:blank"}, nil
}

func (s *Session) Close() error { return nil }

// Opened is the number of pages ever opened.
func (s *Session) Opened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

// Closed is the number of pages closed.
func (s *Session) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Visited lists every URL passed to Goto, in order.
func (s *Session) Visited() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.visited...)
}

// Page is a fake browser.Page.
type Page struct {
	session *Session

	mu     sync.Mutex
	url    string
	route  *Route
	closed bool
}

func (p *Page) Goto(rawURL string, _ browser.GotoOptions) (*browser.Response, error) {
	p.session.mu.Lock()
	p.session.visited = append(p.session.visited, rawURL)
	route, ok := p.session.Routes[rawURL]
	p.session.mu.Unlock()

	if _, err := url.ParseRequestURI(rawURL); err != nil {
		return nil, fmt.Errorf("navigate %q: %w", rawURL, err)
	}
	if !ok {
		route = &Route{Status: 404}
	}
	if route.Err != nil {
		return nil, route.Err
	}

	final := rawURL
	if route.RedirectTo != "" {
		final = route.RedirectTo
	}
	p.mu.Lock()
	p.url, p.route = final, route
	p.mu.Unlock()

	if route.NoResponse {
		return nil, nil
	}
	status := route.Status
	if status == 0 {
		status = 200
	}
	return &browser.Response{URL: final, Status: status}, nil
}

func (p *Page) WaitForURL(want string, _ time.Duration) error {
	if got := p.URL(); got != want {
		return fmt.Errorf("%w: want %q, got %q", browser.ErrURLMismatch, want, got)
	}
	return nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) Locate(selector string) browser.Element {
	return &Element{page: p, path: []string{selector}}
}

func (p *Page) OpenSibling() (browser.Page, error) {
	if p.session.SiblingErr != nil {
		return nil, p.session.SiblingErr
	}
	return p.session.NewPage()
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.session.mu.Lock()
	p.session.closed++
	p.session.mu.Unlock()
	return nil
}

// IsClosed reports whether Close was called.
func (p *Page) IsClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Element is a fake browser.Element resolved through a selector path.
type Element struct {
	page *Page
	path []string
}

func (e *Element) Selector() string {
	s := e.path[0]
	for _, p := range e.path[1:] {
		s += " >> " + p
	}
	return s
}

func (e *Element) resolve() (*Node, error) {
	e.page.mu.Lock()
	route := e.page.route
	e.page.mu.Unlock()
	if route == nil {
		return nil, fmt.Errorf("%w: %s", browser.ErrNotFound, e.Selector())
	}
	n := route.Elements[e.path[0]]
	for _, sel := range e.path[1:] {
		if n == nil {
			break
		}
		n = n.Children[sel]
	}
	if n == nil {
		return nil, fmt.Errorf("%w: %s", browser.ErrNotFound, e.Selector())
	}
	return n, nil
}

func (e *Element) ScrollIntoView(time.Duration) error {
	_, err := e.resolve()
	return err
}

func (e *Element) WaitVisible(time.Duration) error {
	n, err := e.resolve()
	if err != nil {
		return err
	}
	if n.Hidden {
		return fmt.Errorf("%w: %s", browser.ErrNotVisible, e.Selector())
	}
	return nil
}

func (e *Element) InnerText() (string, error) {
	n, err := e.resolve()
	if err != nil {
		return "", err
	}
	if n.Panic != nil {
		panic(n.Panic)
	}
	return n.Text, nil
}

func (e *Element) Attribute(name string) (string, bool, error) {
	n, err := e.resolve()
	if err != nil {
		return "", false, err
	}
	v, ok := n.Attrs[name]
	return v, ok && v != "", nil
}

func (e *Element) Locate(selector string) browser.Element {
	path := append(append([]string(nil), e.path...), selector)
	return &Element{page: e.page, path: path}
}
