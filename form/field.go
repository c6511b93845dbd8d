// Package form maps HTML forms onto declared types whose fields read and
// write form controls symmetrically: the value a field writes is the value it
// reads back.
package form

import (
	"context"
	"fmt"

	"github.com/ngauthier/domino/dom"
	"github.com/ngauthier/domino/entity"
)

// Spec is the declared part of a field: its name, the locator used to find
// its control inside the form and provider hints passed to the locator.
type Spec struct {
	Name    string
	Locator string
	Hints   dom.Hints
}

// Field reads and writes one value of a form. Read returns the untransformed
// value; the form applies the declared transform.
type Field interface {
	Spec() Spec
	// Element returns the node the field operates on.
	Element(ctx context.Context, form dom.Node) (dom.Node, error)
	Read(ctx context.Context, form dom.Node) (any, error)
	Write(ctx context.Context, form dom.Node, value any) error
}

// Constructor builds a field from its declaration.
type Constructor func(Spec) Field

// Elementwise is implemented by fields whose list values are transformed one
// item at a time rather than as a whole.
type Elementwise interface {
	Elementwise() bool
}

// TextField is the default field: it fills in a text-like control.
type TextField struct {
	spec Spec
}

func NewTextField(s Spec) Field { return &TextField{spec: s} }

func (f *TextField) Spec() Spec { return f.spec }

func (f *TextField) Element(ctx context.Context, form dom.Node) (dom.Node, error) {
	return f.control(ctx, form)
}

func (f *TextField) control(ctx context.Context, form dom.Node) (dom.Control, error) {
	return form.LocateControl(ctx, f.spec.Locator, f.spec.Hints)
}

func (f *TextField) Read(ctx context.Context, form dom.Node) (any, error) {
	c, err := f.control(ctx, form)
	if err != nil {
		return nil, err
	}
	return c.Value(ctx)
}

// Write fills the control with the string form of value; nil clears it.
func (f *TextField) Write(ctx context.Context, form dom.Node, value any) error {
	c, err := f.control(ctx, form)
	if err != nil {
		return err
	}
	s := ""
	if value != nil {
		s = fmt.Sprint(value)
	}
	return c.SetValue(ctx, s)
}

// BooleanField maps a checkbox (or radio button) to its checked state.
type BooleanField struct {
	spec Spec
}

func NewBooleanField(s Spec) Field { return &BooleanField{spec: s} }

func (f *BooleanField) Spec() Spec { return f.spec }

func (f *BooleanField) Element(ctx context.Context, form dom.Node) (dom.Node, error) {
	return form.LocateControl(ctx, f.spec.Locator, f.spec.Hints)
}

func (f *BooleanField) Read(ctx context.Context, form dom.Node) (any, error) {
	c, err := form.LocateControl(ctx, f.spec.Locator, f.spec.Hints)
	if err != nil {
		return nil, err
	}
	return c.Checked(ctx)
}

// Write checks the control for truthy values and unchecks it otherwise.
func (f *BooleanField) Write(ctx context.Context, form dom.Node, value any) error {
	c, err := form.LocateControl(ctx, f.spec.Locator, f.spec.Hints)
	if err != nil {
		return err
	}
	return c.SetChecked(ctx, entity.Truthy(value))
}

// Strings flattens a written value into the strings a multi-valued control
// compares against: nil is empty, slices are taken item by item and
// anything else is a single item.
func Strings(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item != nil {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out
	}
	return []string{fmt.Sprint(value)}
}
