package htmldom

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/antchfx/htmlquery"
	"github.com/ngauthier/domino/dom"
	"golang.org/x/net/html"
)

// node is both a dom.Node and, for form controls, a dom.Control.
type node struct {
	s   *Session
	n   *html.Node
	gen uint64
}

var (
	_ dom.Node    = (*node)(nil)
	_ dom.Control = (*node)(nil)
)

// lock takes the session lock and checks the node still belongs to the
// current page. The caller must unlock on success.
func (e *node) lock() error {
	e.s.mu.Lock()
	if e.gen != e.s.gen {
		e.s.mu.Unlock()
		return ErrStale
	}
	return nil
}

func (e *node) unlock() { e.s.mu.Unlock() }

// HTMLNode exposes the parsed node for callers that need the raw tree.
func (e *node) HTMLNode() *html.Node { return e.n }

func (e *node) String() string {
	return "<" + e.n.Data + ">"
}

func (e *node) Find(ctx context.Context, selector string) (dom.Node, error) {
	nodes, err := e.FindAll(ctx, selector)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, dom.NotFound(selector)
	}
	return nodes[0], nil
}

func (e *node) FindAll(ctx context.Context, selector string) ([]dom.Node, error) {
	sel, err := compile(selector)
	if err != nil {
		return nil, err
	}
	if err := e.lock(); err != nil {
		return nil, err
	}
	defer e.unlock()
	return e.s.wrapAll(queryAll(e.n, sel)), nil
}

func (e *node) Text(ctx context.Context) (string, error) {
	if err := e.lock(); err != nil {
		return "", err
	}
	defer e.unlock()
	return normalizeSpace(htmlquery.InnerText(e.n)), nil
}

func (e *node) Attr(ctx context.Context, key string) (string, bool, error) {
	if err := e.lock(); err != nil {
		return "", false, err
	}
	defer e.unlock()
	v, ok := attr(e.n, key)
	return v, ok, nil
}

func (e *node) Matches(ctx context.Context, selector string) (bool, error) {
	sel, err := compile(selector)
	if err != nil {
		return false, err
	}
	if err := e.lock(); err != nil {
		return false, err
	}
	defer e.unlock()
	return sel.Match(e.n), nil
}

func (e *node) TagName(ctx context.Context) (string, error) {
	if err := e.lock(); err != nil {
		return "", err
	}
	defer e.unlock()
	return e.n.Data, nil
}

// Click submits forms from submit controls, toggles checkboxes, checks
// radios and follows links. Other elements ignore clicks.
func (e *node) Click(ctx context.Context) error {
	if err := e.lock(); err != nil {
		return err
	}
	n := e.n

	if isSubmitter(n) {
		form := formOf(n)
		if form == nil {
			e.unlock()
			return nil
		}
		method, action, values := submission(form, n)
		e.unlock()
		slog.Debug("htmldom submit", "method", method, "action", action, "fields", len(values))
		return e.s.navigate(ctx, method, action, values)
	}

	switch {
	case isElement(n, "input") && inputType(n) == "checkbox":
		setChecked(n, !hasAttr(n, "checked"))
	case isElement(n, "input") && inputType(n) == "radio":
		setChecked(n, true)
	case isElement(n, "a"):
		if href, ok := attr(n, "href"); ok {
			e.unlock()
			return e.s.navigate(ctx, http.MethodGet, href, nil)
		}
	}
	e.unlock()
	return nil
}

func (e *node) LocateControl(ctx context.Context, locator string, hints dom.Hints) (dom.Control, error) {
	if err := e.lock(); err != nil {
		return nil, err
	}
	defer e.unlock()
	found := locateField(e.s.root, e.n, locator, hints)
	if found == nil {
		return nil, dom.FieldNotFound(locator)
	}
	return e.s.wrap(found), nil
}

func (e *node) Controls(ctx context.Context, selector string) ([]dom.Control, error) {
	sel, err := compile(selector)
	if err != nil {
		return nil, err
	}
	if err := e.lock(); err != nil {
		return nil, err
	}
	defer e.unlock()
	var out []dom.Control
	for _, n := range queryAll(e.n, sel) {
		if isElement(n, "input", "select", "textarea", "button") {
			out = append(out, e.s.wrap(n))
		}
	}
	return out, nil
}

func (e *node) Value(ctx context.Context) (string, error) {
	if err := e.lock(); err != nil {
		return "", err
	}
	defer e.unlock()

	n := e.n
	switch {
	case isElement(n, "textarea"):
		return htmlquery.InnerText(n), nil
	case isElement(n, "select"):
		for _, o := range options(n) {
			if optionSelected(n, o) {
				return optionValue(o), nil
			}
		}
		return "", nil
	case isElement(n, "input"):
		v, ok := attr(n, "value")
		if !ok && (inputType(n) == "checkbox" || inputType(n) == "radio") {
			return "on", nil
		}
		return v, nil
	}
	return "", fmt.Errorf("%s is not a form control", e)
}

func (e *node) SetValue(ctx context.Context, value string) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.unlock()

	n := e.n
	if hasAttr(n, "disabled") {
		return fmt.Errorf("%s is disabled", e)
	}
	switch {
	case isElement(n, "textarea"):
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			n.RemoveChild(c)
			c = next
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: value})
		return nil
	case isElement(n, "select"):
		o := findOption(n, []string{value})
		if o == nil {
			return &dom.NotFoundError{Selector: value, Kind: "option"}
		}
		selectOption(n, o)
		return nil
	case isElement(n, "input"):
		switch inputType(n) {
		case "checkbox", "radio", "submit", "button", "image", "reset", "file":
			return fmt.Errorf("cannot fill in a %s input", inputType(n))
		}
		setAttr(n, "value", value)
		return nil
	}
	return fmt.Errorf("%s is not a form control", e)
}

func (e *node) Checked(ctx context.Context) (bool, error) {
	if err := e.lock(); err != nil {
		return false, err
	}
	defer e.unlock()
	return hasAttr(e.n, "checked"), nil
}

func (e *node) SetChecked(ctx context.Context, checked bool) error {
	if err := e.lock(); err != nil {
		return err
	}
	defer e.unlock()

	n := e.n
	if !isElement(n, "input") || (inputType(n) != "checkbox" && inputType(n) != "radio") {
		return fmt.Errorf("%s is not a checkbox or radio button", e)
	}
	if hasAttr(n, "disabled") {
		return fmt.Errorf("%s is disabled", e)
	}
	setChecked(n, checked)
	return nil
}

func (e *node) Multiple(ctx context.Context) (bool, error) {
	if err := e.lock(); err != nil {
		return false, err
	}
	defer e.unlock()
	return isElement(e.n, "select") && hasAttr(e.n, "multiple"), nil
}

func (e *node) Options(ctx context.Context) ([]dom.Option, error) {
	if err := e.lock(); err != nil {
		return nil, err
	}
	defer e.unlock()
	if !isElement(e.n, "select") {
		return nil, fmt.Errorf("%s is not a select", e)
	}
	var out []dom.Option
	for _, o := range options(e.n) {
		out = append(out, &option{node: node{s: e.s, n: o, gen: e.gen}, sel: e.n})
	}
	return out, nil
}

// setChecked checks or unchecks n; checking a radio clears the rest of its
// group.
func setChecked(n *html.Node, checked bool) {
	if !checked {
		removeAttr(n, "checked")
		return
	}
	if inputType(n) == "radio" {
		name, _ := attr(n, "name")
		scope := formOf(n)
		if scope == nil {
			scope = root(n)
		}
		walk(scope, func(r *html.Node) {
			if isElement(r, "input") && inputType(r) == "radio" {
				if other, _ := attr(r, "name"); other == name {
					removeAttr(r, "checked")
				}
			}
		})
	}
	setAttr(n, "checked", "checked")
}

func root(n *html.Node) *html.Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

func textOf(n *html.Node) string {
	return normalizeSpace(htmlquery.InnerText(n))
}
