// Package htmldom implements the dom interfaces over parsed HTML. A Session
// browses an http.Handler or an HTTP server the way a headless test driver
// would: pages are fetched and parsed, form controls keep their state in the
// parsed tree, and clicking a submit control posts the form and loads the
// response. No JavaScript runs.
package htmldom

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/antchfx/htmlquery"
	"github.com/ngauthier/domino/dom"
	"golang.org/x/net/html"
)

var (
	// ErrStale is returned by nodes from a page that has since been replaced.
	ErrStale = errors.New("stale element: page has changed")
	// ErrNoServer is returned when a static session is asked to navigate.
	ErrNoServer = errors.New("session has no server to navigate to")
)

// Session holds the current page.
type Session struct {
	mu      sync.Mutex
	client  *http.Client
	base    *url.URL
	current *url.URL
	root    *html.Node
	gen     uint64
}

var _ dom.Document = (*Session)(nil)

// NewSession browses handler in-process.
func NewSession(handler http.Handler) *Session {
	base, _ := url.Parse("http://domino.test/")
	return &Session{
		client: &http.Client{Transport: handlerTransport{h: handler}},
		base:   base,
		root:   emptyDocument(),
	}
}

// Dial browses the server at baseURL. A nil client uses http.DefaultClient.
func Dial(baseURL string, client *http.Client) (*Session, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Session{client: client, base: base, root: emptyDocument()}, nil
}

// FromHTML returns a session showing src. It cannot navigate.
func FromHTML(src string) (*Session, error) {
	s := &Session{}
	if err := s.Load(strings.NewReader(src)); err != nil {
		return nil, err
	}
	return s, nil
}

func emptyDocument() *html.Node {
	doc, _ := html.Parse(strings.NewReader("<html><head></head><body></body></html>"))
	return doc
}

type handlerTransport struct {
	h http.Handler
}

func (t handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rec := httptest.NewRecorder()
	t.h.ServeHTTP(rec, req)
	resp := rec.Result()
	resp.Request = req
	return resp, nil
}

// Load replaces the current page with the HTML read from r.
func (s *Session) Load(r io.Reader) error {
	doc, err := html.Parse(r)
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}
	s.mu.Lock()
	s.root = doc
	s.gen++
	s.mu.Unlock()
	return nil
}

// Visit loads path, resolved against the session's base URL.
func (s *Session) Visit(ctx context.Context, path string) error {
	return s.navigate(ctx, http.MethodGet, path, nil)
}

// URL is the address of the current page, "" for static sessions.
func (s *Session) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return ""
	}
	return s.current.String()
}

// HTML renders the current page.
func (s *Session) HTML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return htmlquery.OutputHTML(s.root, true)
}

// HasContent reports whether the page text contains text, ignoring
// whitespace differences.
func (s *Session) HasContent(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Contains(normalizeSpace(htmlquery.InnerText(s.root)), normalizeSpace(text))
}

func (s *Session) QueryAll(ctx context.Context, selector string) ([]dom.Node, error) {
	sel, err := compile(selector)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wrapAll(queryAll(s.root, sel)), nil
}

// QueryOne does not wait: a parsed page never changes by itself.
func (s *Session) QueryOne(ctx context.Context, selector string) (dom.Node, error) {
	nodes, err := s.QueryAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, dom.NotFound(selector)
	}
	return nodes[0], nil
}

func (s *Session) wrap(n *html.Node) *node {
	return &node{s: s, n: n, gen: s.gen}
}

func (s *Session) wrapAll(ns []*html.Node) []dom.Node {
	out := make([]dom.Node, len(ns))
	for i, n := range ns {
		out[i] = s.wrap(n)
	}
	return out
}

func (s *Session) resolve(ref string) (*url.URL, error) {
	if s.client == nil {
		return nil, ErrNoServer
	}
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", ref, err)
	}
	from := s.base
	if s.current != nil {
		from = s.current
	}
	return from.ResolveReference(u), nil
}

// navigate performs a request and loads its response as the new page.
// It must be called without s.mu held.
func (s *Session) navigate(ctx context.Context, method, ref string, form url.Values) error {
	s.mu.Lock()
	target, err := s.resolve(ref)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	var body io.Reader
	if method == http.MethodGet && form != nil {
		target.RawQuery = form.Encode()
	} else if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	slog.Debug("htmldom navigate", "method", method, "url", target.String())
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return fmt.Errorf("parse %s: %w", target, err)
	}

	s.mu.Lock()
	s.root = doc
	s.gen++
	s.current = target
	if resp.Request != nil && resp.Request.URL != nil {
		s.current = resp.Request.URL
	}
	s.mu.Unlock()
	return nil
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
