package htmldom

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/antchfx/htmlquery"
	"github.com/ngauthier/domino/dom"
	"golang.org/x/net/html"
)

type option struct {
	node
	sel *html.Node
}

var _ dom.Option = (*option)(nil)

func (o *option) Value(ctx context.Context) (string, error) {
	if err := o.lock(); err != nil {
		return "", err
	}
	defer o.unlock()
	return optionValue(o.n), nil
}

func (o *option) Selected(ctx context.Context) (bool, error) {
	if err := o.lock(); err != nil {
		return false, err
	}
	defer o.unlock()
	return optionSelected(o.sel, o.n), nil
}

func (o *option) Select(ctx context.Context) error {
	if err := o.lock(); err != nil {
		return err
	}
	defer o.unlock()
	selectOption(o.sel, o.n)
	return nil
}

func (o *option) Unselect(ctx context.Context) error {
	if err := o.lock(); err != nil {
		return err
	}
	defer o.unlock()
	removeAttr(o.n, "selected")
	return nil
}

func options(sel *html.Node) []*html.Node {
	var out []*html.Node
	walk(sel, func(n *html.Node) {
		if isElement(n, "option") {
			out = append(out, n)
		}
	})
	return out
}

func optionValue(o *html.Node) string {
	if v, ok := attr(o, "value"); ok {
		return v
	}
	return textOf(o)
}

// optionSelected follows the browser rule that a single select without an
// explicitly selected option shows its first enabled option.
func optionSelected(sel, o *html.Node) bool {
	if hasAttr(o, "selected") {
		return true
	}
	if hasAttr(sel, "multiple") {
		return false
	}
	for _, other := range options(sel) {
		if hasAttr(other, "selected") {
			return false
		}
	}
	for _, first := range options(sel) {
		if !hasAttr(first, "disabled") {
			return first == o
		}
	}
	return false
}

func selectOption(sel, o *html.Node) {
	if !hasAttr(sel, "multiple") {
		for _, other := range options(sel) {
			removeAttr(other, "selected")
		}
	}
	setAttr(o, "selected", "selected")
}

func findOption(sel *html.Node, want []string) *html.Node {
	for _, o := range options(sel) {
		for _, w := range want {
			if textOf(o) == w || optionValue(o) == w {
				return o
			}
		}
	}
	return nil
}

// isField reports whether n is a control a user fills in, as opposed to a
// button or hidden input.
func isField(n *html.Node) bool {
	switch {
	case isElement(n, "textarea", "select"):
		return true
	case isElement(n, "input"):
		switch inputType(n) {
		case "hidden", "submit", "button", "image", "reset":
			return false
		}
		return true
	}
	return false
}

func fieldKind(n *html.Node) string {
	if isElement(n, "input") {
		return inputType(n)
	}
	return n.Data
}

func isSubmitter(n *html.Node) bool {
	switch {
	case isElement(n, "input"):
		t := inputType(n)
		return t == "submit" || t == "image"
	case isElement(n, "button"):
		t, ok := attr(n, "type")
		return !ok || strings.EqualFold(t, "submit")
	}
	return false
}

func formOf(n *html.Node) *html.Node {
	if id, ok := attr(n, "form"); ok {
		if f := byID(root(n), id); isElement(f, "form") {
			return f
		}
	}
	return ancestor(n, "form")
}

// locateField finds the field inside scope identified by locator: by id,
// then name, then placeholder, then label text (exact before substring).
func locateField(doc, scope *html.Node, locator string, hints dom.Hints) *html.Node {
	want := hints.Get("type")
	var fields []*html.Node
	walk(scope, func(n *html.Node) {
		if isField(n) && (want == "" || fieldKind(n) == want) {
			fields = append(fields, n)
		}
	})
	if len(fields) == 0 {
		return nil
	}

	for _, key := range []string{"id", "name", "placeholder"} {
		for _, f := range fields {
			if v, ok := attr(f, key); ok && v == locator {
				return f
			}
		}
	}

	labels, _ := htmlquery.QueryAll(scope, ".//label")
	allowed := make(map[*html.Node]bool, len(fields))
	for _, f := range fields {
		allowed[f] = true
	}
	exactOnly := strings.EqualFold(hints.Get("exact"), "true")
	for _, exact := range []bool{true, false} {
		if !exact && exactOnly {
			break
		}
		for _, l := range labels {
			text := textOf(l)
			if (exact && text != locator) || (!exact && !strings.Contains(text, locator)) {
				continue
			}
			if f := labelled(doc, l); f != nil && allowed[f] {
				return f
			}
		}
	}
	return nil
}

// labelled returns the control a label is for: its for= target, or the
// first field nested inside it.
func labelled(doc, label *html.Node) *html.Node {
	if id, ok := attr(label, "for"); ok && id != "" {
		return byID(doc, id)
	}
	var found *html.Node
	walk(label, func(n *html.Node) {
		if found == nil && isField(n) {
			found = n
		}
	})
	return found
}

// submission collects the form data set the way a browser would when
// submitter is clicked.
func submission(form, submitter *html.Node) (method, action string, values url.Values) {
	method = http.MethodGet
	if m, ok := attr(form, "method"); ok && strings.EqualFold(m, "post") {
		method = http.MethodPost
	}
	action, _ = attr(form, "action")

	values = url.Values{}
	walk(form, func(n *html.Node) {
		name, ok := attr(n, "name")
		if !ok || name == "" || hasAttr(n, "disabled") {
			return
		}
		switch {
		case isElement(n, "textarea"):
			values.Add(name, htmlquery.InnerText(n))
		case isElement(n, "select"):
			for _, o := range options(n) {
				if optionSelected(n, o) {
					values.Add(name, optionValue(o))
				}
			}
		case isElement(n, "button"):
			if n == submitter {
				v, _ := attr(n, "value")
				values.Add(name, v)
			}
		case isElement(n, "input"):
			switch inputType(n) {
			case "checkbox", "radio":
				if hasAttr(n, "checked") {
					v, ok := attr(n, "value")
					if !ok {
						v = "on"
					}
					values.Add(name, v)
				}
			case "submit", "image":
				if n == submitter {
					v, _ := attr(n, "value")
					values.Add(name, v)
				}
			case "button", "reset", "file":
			default:
				v, _ := attr(n, "value")
				values.Add(name, v)
			}
		}
	})
	return method, action, values
}
