package chromedom

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	cdpdom "github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/ngauthier/domino/dom"
)

// ErrStale is returned by nodes whose document has been replaced.
var ErrStale = errors.New("stale element: page has changed")

// node is a dom.Node and dom.Control backed by a DevTools node id.
type node struct {
	p  *Page
	id cdp.NodeID
}

var (
	_ dom.Node    = (*node)(nil)
	_ dom.Control = (*node)(nil)
)

func (e *node) String() string {
	return fmt.Sprintf("node(%d)", e.id)
}

// NodeID exposes the DevTools id.
func (e *node) NodeID() cdp.NodeID { return e.id }

func (e *node) do(ctx context.Context, fn func(ctx context.Context) error) error {
	return stale(e.p.run(ctx, e.p.action, chromedp.ActionFunc(fn)))
}

// call runs a JS function with this bound to the element.
func (e *node) call(ctx context.Context, fn string, res any, args ...any) error {
	return e.do(ctx, func(ctx context.Context) error {
		return callFunctionOnNode(ctx, e.id, fn, res, args...)
	})
}

func callFunctionOnNode(ctx context.Context, id cdp.NodeID, fn string, res any, args ...any) error {
	obj, err := cdpdom.ResolveNode().WithNodeID(id).Do(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()
	return chromedp.CallFunctionOn(fn, res,
		func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
			return p.WithObjectID(obj.ObjectID)
		},
		args...,
	).Do(ctx)
}

func stale(err error) error {
	if err != nil && strings.Contains(err.Error(), "node with given id") {
		return fmt.Errorf("%w (%v)", ErrStale, err)
	}
	return err
}

func (e *node) queryAll(ctx context.Context, selector string) ([]cdp.NodeID, error) {
	var ids []cdp.NodeID
	err := e.do(ctx, func(ctx context.Context) error {
		var err error
		ids, err = cdpdom.QuerySelectorAll(e.id, selector).Do(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return ids, nil
}

func (e *node) Find(ctx context.Context, selector string) (dom.Node, error) {
	var id cdp.NodeID
	err := e.do(ctx, func(ctx context.Context) error {
		var err error
		id, err = cdpdom.QuerySelector(e.id, selector).Do(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	if id == 0 {
		return nil, dom.NotFound(selector)
	}
	return e.p.wrap(id), nil
}

func (e *node) FindAll(ctx context.Context, selector string) ([]dom.Node, error) {
	ids, err := e.queryAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	out := make([]dom.Node, len(ids))
	for i, id := range ids {
		out[i] = e.p.wrap(id)
	}
	return out, nil
}

func (e *node) Text(ctx context.Context) (string, error) {
	var s string
	if err := e.call(ctx, jsText, &s); err != nil {
		return "", err
	}
	return normalizeSpace(s), nil
}

type attrResult struct {
	OK bool   `json:"ok"`
	V  string `json:"v"`
}

func (e *node) Attr(ctx context.Context, key string) (string, bool, error) {
	var r attrResult
	if err := e.call(ctx, jsAttr, &r, key); err != nil {
		return "", false, err
	}
	return r.V, r.OK, nil
}

func (e *node) Matches(ctx context.Context, selector string) (bool, error) {
	var ok bool
	err := e.call(ctx, jsMatches, &ok, selector)
	return ok, err
}

func (e *node) TagName(ctx context.Context) (string, error) {
	var s string
	err := e.call(ctx, jsTagName, &s)
	return s, err
}

// Click dispatches a real mouse click. When the element submits a form or
// follows a link, Click waits for the next document to load.
func (e *node) Click(ctx context.Context) error {
	var navigates bool
	if err := e.call(ctx, jsNavigates, &navigates); err != nil {
		return err
	}
	if err := e.do(ctx, func(ctx context.Context) error {
		return chromedp.MouseClickNode(&cdp.Node{NodeID: e.id}).Do(ctx)
	}); err != nil {
		return fmt.Errorf("click: %w", err)
	}
	if !navigates {
		return nil
	}
	slog.Debug("chromedom click navigates, waiting for load")
	return e.p.run(ctx, e.p.navWait, chromedp.ActionFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			var left bool
			if err := chromedp.Evaluate(jsLeftPage, &left).Do(ctx); err == nil && left {
				return waitReady(ctx)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}))
}

func (e *node) LocateControl(ctx context.Context, locator string, hints dom.Hints) (dom.Control, error) {
	var id cdp.NodeID
	exact := strings.EqualFold(hints.Get("exact"), "true")
	err := e.do(ctx, func(ctx context.Context) error {
		var obj *runtime.RemoteObject
		if err := callFunctionOnNode(ctx, e.id, jsLocate, &obj, locator, hints.Get("type"), exact); err != nil {
			return err
		}
		if obj == nil || obj.ObjectID == "" {
			return nil
		}
		defer func() { _ = runtime.ReleaseObject(obj.ObjectID).Do(ctx) }()
		var err error
		id, err = cdpdom.RequestNode(obj.ObjectID).Do(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("locate %q: %w", locator, err)
	}
	if id == 0 {
		return nil, dom.FieldNotFound(locator)
	}
	return e.p.wrap(id), nil
}

func (e *node) Controls(ctx context.Context, selector string) ([]dom.Control, error) {
	ids, err := e.queryAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	var out []dom.Control
	for _, id := range ids {
		n := e.p.wrap(id)
		tag, err := n.TagName(ctx)
		if err != nil {
			return nil, err
		}
		switch tag {
		case "input", "select", "textarea", "button":
			out = append(out, n)
		}
	}
	return out, nil
}

func (e *node) Value(ctx context.Context) (string, error) {
	var s string
	err := e.call(ctx, jsValue, &s)
	return s, err
}

func (e *node) SetValue(ctx context.Context, value string) error {
	var ok bool
	if err := e.call(ctx, jsSetValue, &ok, value); err != nil {
		return err
	}
	if !ok {
		return &dom.NotFoundError{Selector: value, Kind: "option"}
	}
	return nil
}

func (e *node) Checked(ctx context.Context) (bool, error) {
	var ok bool
	err := e.call(ctx, jsChecked, &ok)
	return ok, err
}

func (e *node) SetChecked(ctx context.Context, checked bool) error {
	return e.call(ctx, jsSetChecked, nil, checked)
}

func (e *node) Multiple(ctx context.Context) (bool, error) {
	var ok bool
	err := e.call(ctx, jsMultiple, &ok)
	return ok, err
}

func (e *node) Options(ctx context.Context) ([]dom.Option, error) {
	tag, err := e.TagName(ctx)
	if err != nil {
		return nil, err
	}
	if tag != "select" {
		return nil, fmt.Errorf("<%s> is not a select", tag)
	}
	ids, err := e.queryAll(ctx, "option")
	if err != nil {
		return nil, err
	}
	out := make([]dom.Option, len(ids))
	for i, id := range ids {
		out[i] = &option{node: node{p: e.p, id: id}}
	}
	return out, nil
}

type option struct {
	node
}

var _ dom.Option = (*option)(nil)

func (o *option) Selected(ctx context.Context) (bool, error) {
	var ok bool
	err := o.call(ctx, jsSelected, &ok)
	return ok, err
}

func (o *option) Select(ctx context.Context) error {
	return o.call(ctx, jsSetSelected, nil, true)
}

func (o *option) Unselect(ctx context.Context) error {
	return o.call(ctx, jsSetSelected, nil, false)
}
