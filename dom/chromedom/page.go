package chromedom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/ngauthier/domino/dom"
)

// Page is one browser tab.
type Page struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wait    time.Duration
	action  time.Duration
	navWait time.Duration
}

var _ dom.Document = (*Page)(nil)

// run executes actions in the tab, bounded by timeout and by ctx.
func (p *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	tctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(tctx, actions...)
}

// Navigate loads url and waits for the document to become interactive.
func (p *Page) Navigate(ctx context.Context, url string) error {
	slog.Debug("chromedom navigate", "url", url)
	err := p.run(ctx, p.navWait, chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, errText, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errText != "" {
			return fmt.Errorf("navigate %s: %s", url, errText)
		}
		return waitReady(ctx)
	}))
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// waitReady polls document.readyState.
func waitReady(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		var state string
		if err := chromedp.Evaluate("document.readyState", &state).Do(ctx); err == nil && (state == "interactive" || state == "complete") {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// URL is the address of the current document.
func (p *Page) URL(ctx context.Context) (string, error) {
	var u string
	err := p.run(ctx, p.action, chromedp.Location(&u))
	return u, err
}

// HTML is the serialized current document.
func (p *Page) HTML(ctx context.Context) (string, error) {
	var s string
	err := p.run(ctx, p.action, chromedp.OuterHTML("html", &s, chromedp.ByQuery))
	return s, err
}

// HasContent reports whether the page text contains text, ignoring
// whitespace differences.
func (p *Page) HasContent(ctx context.Context, text string) (bool, error) {
	var body string
	if err := p.run(ctx, p.action, chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &body)); err != nil {
		return false, err
	}
	return strings.Contains(normalizeSpace(body), normalizeSpace(text)), nil
}

func (p *Page) QueryAll(ctx context.Context, selector string) ([]dom.Node, error) {
	var nodes []*cdp.Node
	err := p.run(ctx, p.action, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return p.wrapAll(nodes), nil
}

// QueryOne waits up to the configured wait timeout for selector to match.
func (p *Page) QueryOne(ctx context.Context, selector string) (dom.Node, error) {
	var nodes []*cdp.Node
	err := p.run(ctx, p.wait, chromedp.Nodes(selector, &nodes, chromedp.ByQuery))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, dom.NotFound(selector)
		}
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	if len(nodes) == 0 {
		return nil, dom.NotFound(selector)
	}
	return p.wrap(nodes[0].NodeID), nil
}

func (p *Page) wrap(id cdp.NodeID) *node {
	return &node{p: p, id: id}
}

func (p *Page) wrapAll(nodes []*cdp.Node) []dom.Node {
	out := make([]dom.Node, len(nodes))
	for i, n := range nodes {
		out[i] = p.wrap(n.NodeID)
	}
	return out
}

// Close closes the tab.
func (p *Page) Close() { p.cancel() }

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
