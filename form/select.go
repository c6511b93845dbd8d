package form

import (
	"context"
	"fmt"
	"slices"

	"github.com/ngauthier/domino/dom"
)

// Select field sources: which part of an option a field reads.
const (
	SourceValue = "value"
	SourceText  = "text"
)

// SelectField reads the selected option of a single select, or all selected
// options of a multiple select, as their value (or text with the "source"
// hint set to "text").
type SelectField struct {
	spec   Spec
	source string
	hints  dom.Hints
}

func NewSelectField(s Spec) Field {
	source := s.Hints.Get("source")
	if source == "" {
		source = SourceValue
	}
	return &SelectField{spec: s, source: source, hints: s.Hints.Without("source")}
}

func (f *SelectField) Spec() Spec { return f.spec }

// Elementwise is true: a multiple select's transform runs per option.
func (f *SelectField) Elementwise() bool { return true }

func (f *SelectField) Element(ctx context.Context, form dom.Node) (dom.Node, error) {
	return f.control(ctx, form)
}

func (f *SelectField) control(ctx context.Context, form dom.Node) (dom.Control, error) {
	return form.LocateControl(ctx, f.spec.Locator, f.hints)
}

func (f *SelectField) extract(ctx context.Context, o dom.Option) (string, error) {
	switch f.source {
	case SourceText:
		return o.Text(ctx)
	case SourceValue:
		return o.Value(ctx)
	}
	return "", fmt.Errorf("select field %s: unknown source %q", f.spec.Name, f.source)
}

// Read returns a string (nil when nothing is selected) for single selects and
// a []string for multiple selects.
func (f *SelectField) Read(ctx context.Context, form dom.Node) (any, error) {
	c, err := f.control(ctx, form)
	if err != nil {
		return nil, err
	}
	multi, err := c.Multiple(ctx)
	if err != nil {
		return nil, err
	}
	opts, err := c.Options(ctx)
	if err != nil {
		return nil, err
	}

	selected := []string{}
	for _, o := range opts {
		ok, err := o.Selected(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		v, err := f.extract(ctx, o)
		if err != nil {
			return nil, err
		}
		selected = append(selected, v)
	}

	if multi {
		return selected, nil
	}
	if len(selected) == 0 {
		return nil, nil
	}
	return selected[0], nil
}

// Write selects every option whose text or value is among value. On multiple
// selects all other options are unselected.
func (f *SelectField) Write(ctx context.Context, form dom.Node, value any) error {
	c, err := f.control(ctx, form)
	if err != nil {
		return err
	}
	multi, err := c.Multiple(ctx)
	if err != nil {
		return err
	}
	opts, err := c.Options(ctx)
	if err != nil {
		return err
	}

	want := Strings(value)
	for _, o := range opts {
		text, err := o.Text(ctx)
		if err != nil {
			return err
		}
		val, err := o.Value(ctx)
		if err != nil {
			return err
		}
		switch {
		case slices.Contains(want, text) || slices.Contains(want, val):
			err = o.Select(ctx)
		case multi:
			err = o.Unselect(ctx)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
