package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ngauthier/domino/dom"
	"github.com/ngauthier/domino/entity"
)

// DefaultSubmitter locates the control Save clicks when none is declared.
const DefaultSubmitter = `input[type="submit"], button[type="submit"]`

// ErrUnknownField is returned for field names the form does not declare.
var ErrUnknownField = errors.New("unknown field")

type binding struct {
	field     Field
	transform entity.Transform
}

// value reads the field and applies its transform. Elementwise fields
// transform list values item by item.
func (b *binding) value(ctx context.Context, node dom.Node) (any, error) {
	raw, err := b.field.Read(ctx, node)
	if err != nil {
		return nil, err
	}
	name := b.field.Spec().Name
	if ew, ok := b.field.(Elementwise); ok && ew.Elementwise() && b.transform != nil {
		if items, ok := raw.([]string); ok {
			out := make([]any, len(items))
			for i, item := range items {
				v, err := entity.Apply(b.transform, item)
				if err != nil {
					return nil, fmt.Errorf("field %s: %w", name, err)
				}
				out[i] = v
			}
			return out, nil
		}
	}
	v, err := entity.Apply(b.transform, raw)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", name, err)
	}
	return v, nil
}

// Type is a declared form: an entity type plus ordered fields.
type Type struct {
	entity    *entity.Type
	key       string
	submitter string
	fields    []*binding
	byName    map[string]*binding
}

func (t *Type) Name() string { return t.entity.Name() }

// Entity is the underlying entity type holding the form's attributes.
func (t *Type) Entity() *entity.Type { return t.entity }
func (t *Type) Key() string          { return t.key }

// SubmitSelector is the selector Save clicks.
func (t *Type) SubmitSelector() string { return t.submitter }

// Fields returns the declared fields in declaration order.
func (t *Type) Fields() []Field {
	out := make([]Field, len(t.fields))
	for i, b := range t.fields {
		out[i] = b.field
	}
	return out
}

func (t *Type) Field(name string) (Field, bool) {
	b, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return b.field, true
}

func (t *Type) lookup(name string) (*binding, error) {
	b, ok := t.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, t.Name(), name)
	}
	return b, nil
}

// Wrap returns the form of this type for node.
func (t *Type) Wrap(node dom.Node) *Form {
	return &Form{Entity: t.entity.Wrap(node), typ: t}
}

// On binds the type to a document.
func (t *Type) On(doc dom.Document) *Query {
	return &Query{typ: t, q: t.entity.On(doc)}
}

// FieldOption configures a field declaration.
type FieldOption func(*fieldDecl)

type fieldDecl struct {
	name      string
	locator   string
	kind      Kind
	ctor      Constructor
	hints     dom.Hints
	transform entity.Transform
}

// As selects a registered field kind.
func As(kind Kind) FieldOption {
	return func(d *fieldDecl) { d.kind = kind }
}

// AsCustom builds the field with ctor instead of a registered kind.
func AsCustom(ctor Constructor) FieldOption {
	return func(d *fieldDecl) { d.ctor = ctor }
}

// WithHint passes a hint to the field and, unless the field consumes it, to
// the control locator.
func WithHint(key, value string) FieldOption {
	return func(d *fieldDecl) {
		if d.hints == nil {
			d.hints = dom.Hints{}
		}
		d.hints[key] = value
	}
}

// WithTransform converts values read from the field.
func WithTransform(t entity.Transform) FieldOption {
	return func(d *fieldDecl) { d.transform = t }
}

// Source picks the option part a select field reads: SourceValue or
// SourceText.
func Source(source string) FieldOption {
	return WithHint("source", source)
}

// Builder declares a form Type.
type Builder struct {
	entity    *entity.Builder
	name      string
	key       string
	submitter string
	decls     []*fieldDecl
	seen      map[string]bool
	errs      []error
}

// NewType starts the declaration of a form called name.
func NewType(name string) *Builder {
	return &Builder{
		entity:    entity.NewType(name),
		name:      name,
		submitter: DefaultSubmitter,
		seen:      make(map[string]bool),
	}
}

func (b *Builder) Selector(css string) *Builder {
	b.entity.Selector(css)
	return b
}

// Key sets the parameter prefix used for default locators: with key
// "person", field last_name is located by "person[last_name]".
func (b *Builder) Key(key string) *Builder {
	b.key = key
	return b
}

// Submitter sets the selector of the control Save clicks.
func (b *Builder) Submitter(css string) *Builder {
	b.submitter = css
	return b
}

// Attribute declares an entity attribute on the form node.
func (b *Builder) Attribute(name, selector string, transform entity.Transform) *Builder {
	b.entity.Attribute(name, selector, transform)
	return b
}

// Field declares a field. An empty locator defaults to key[name], or name
// when the form has no key.
func (b *Builder) Field(name, locator string, opts ...FieldOption) *Builder {
	if name == "" {
		b.errs = append(b.errs, fmt.Errorf("%s: field name is empty", b.name))
		return b
	}
	if b.seen[name] {
		b.errs = append(b.errs, fmt.Errorf("%s: field %s declared twice", b.name, name))
		return b
	}
	b.seen[name] = true
	d := &fieldDecl{name: name, locator: locator}
	for _, opt := range opts {
		opt(d)
	}
	b.decls = append(b.decls, d)
	return b
}

// Build freezes the declaration.
func (b *Builder) Build() (*Type, error) {
	et, err := b.entity.Build()
	if err != nil {
		b.errs = append(b.errs, err)
	}
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}

	t := &Type{
		entity:    et,
		key:       b.key,
		submitter: b.submitter,
		byName:    make(map[string]*binding, len(b.decls)),
	}
	for _, d := range b.decls {
		locator := d.locator
		if locator == "" {
			locator = d.name
			if b.key != "" {
				locator = b.key + "[" + d.name + "]"
			}
		}
		ctor := d.ctor
		if ctor == nil {
			ctor = Kinds.Lookup(d.kind)
		}
		f := ctor(Spec{Name: d.name, Locator: locator, Hints: d.hints})
		bd := &binding{field: f, transform: d.transform}
		t.fields = append(t.fields, bd)
		t.byName[d.name] = bd
	}
	return t, nil
}

// MustBuild is Build for package-level declarations; it panics on error.
func (b *Builder) MustBuild() *Type {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}

// Assignment is one field write.
type Assignment struct {
	Name  string
	Value any
}

func Assign(name string, value any) Assignment {
	return Assignment{Name: name, Value: value}
}

// Form is one form node viewed through its Type. Entity attributes are
// available through the embedded *entity.Entity.
type Form struct {
	*entity.Entity
	typ *Type
}

// Field reads the named field.
func (f *Form) Field(ctx context.Context, name string) (any, error) {
	b, err := f.typ.lookup(name)
	if err != nil {
		return nil, err
	}
	return b.value(ctx, f.Node())
}

// SetField writes the named field.
func (f *Form) SetField(ctx context.Context, name string, value any) error {
	b, err := f.typ.lookup(name)
	if err != nil {
		return err
	}
	if err := b.field.Write(ctx, f.Node(), value); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return nil
}

// Control returns the node the named field operates on.
func (f *Form) Control(ctx context.Context, name string) (dom.Node, error) {
	b, err := f.typ.lookup(name)
	if err != nil {
		return nil, err
	}
	return b.field.Element(ctx, f.Node())
}

// InspectField hands the named field's node to fn.
func (f *Form) InspectField(ctx context.Context, name string, fn func(ctx context.Context, el dom.Node) (any, error)) (any, error) {
	el, err := f.Control(ctx, name)
	if err != nil {
		return nil, err
	}
	return fn(ctx, el)
}

// Set writes the assignments in order, stopping at the first failure.
func (f *Form) Set(ctx context.Context, assignments ...Assignment) error {
	for _, a := range assignments {
		if err := f.SetField(ctx, a.Name, a.Value); err != nil {
			return err
		}
	}
	return nil
}

// Save clicks the form's submit control.
func (f *Form) Save(ctx context.Context) error {
	btn, err := f.Node().Find(ctx, f.typ.submitter)
	if err != nil {
		return fmt.Errorf("save %s: %w", f.typ.Name(), err)
	}
	slog.Debug("form save", "form", f.typ.Name(), "submitter", f.typ.submitter)
	return btn.Click(ctx)
}

// Create sets the assignments and saves.
func (f *Form) Create(ctx context.Context, assignments ...Assignment) error {
	if err := f.Set(ctx, assignments...); err != nil {
		return err
	}
	return f.Save(ctx)
}

// Update sets the assignments and saves.
func (f *Form) Update(ctx context.Context, assignments ...Assignment) error {
	return f.Create(ctx, assignments...)
}

// Fields snapshots every field value in declaration order.
func (f *Form) Fields(ctx context.Context) (*entity.Values, error) {
	vals := entity.NewValues()
	for _, b := range f.typ.fields {
		v, err := b.value(ctx, f.Node())
		if err != nil {
			return nil, err
		}
		vals.Set(b.field.Spec().Name, v)
	}
	return vals, nil
}

// Query runs form operations against one document.
type Query struct {
	typ *Type
	q   *entity.Query
}

// Find returns the first form, waiting for it like entity.Query.Find.
func (q *Query) Find(ctx context.Context) (*Form, error) {
	e, err := q.q.Find(ctx)
	if err != nil {
		return nil, err
	}
	return q.typ.Wrap(e.Node()), nil
}

// First returns the first form or nil.
func (q *Query) First(ctx context.Context) (*Form, error) {
	e, err := q.q.First(ctx)
	if err != nil || e == nil {
		return nil, err
	}
	return q.typ.Wrap(e.Node()), nil
}

func (q *Query) All(ctx context.Context) ([]*Form, error) {
	es, err := q.q.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Form, len(es))
	for i, e := range es {
		out[i] = q.typ.Wrap(e.Node())
	}
	return out, nil
}

// Create finds the form and creates through it.
func (q *Query) Create(ctx context.Context, assignments ...Assignment) error {
	f, err := q.Find(ctx)
	if err != nil {
		return err
	}
	return f.Create(ctx, assignments...)
}

// Update finds the form and updates through it.
func (q *Query) Update(ctx context.Context, assignments ...Assignment) error {
	f, err := q.Find(ctx)
	if err != nil {
		return err
	}
	return f.Update(ctx, assignments...)
}
