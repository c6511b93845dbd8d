package form

import (
	"context"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ngauthier/domino/dom"
	"github.com/ngauthier/domino/dom/htmldom"
	"github.com/ngauthier/domino/entity"
	"github.com/ngauthier/domino/internal/testapp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const updatedFlash = "Person updated successfully."

// checkBoxesField reads a group of checkboxes inside the element found by
// its locator as the list of checked values.
type checkBoxesField struct {
	spec Spec
}

func newCheckBoxesField(s Spec) Field { return &checkBoxesField{spec: s} }

func (f *checkBoxesField) Spec() Spec { return f.spec }

func (f *checkBoxesField) Element(ctx context.Context, form dom.Node) (dom.Node, error) {
	return form.Find(ctx, f.spec.Locator)
}

func (f *checkBoxesField) boxes(ctx context.Context, form dom.Node) ([]dom.Control, error) {
	el, err := f.Element(ctx, form)
	if err != nil {
		return nil, err
	}
	return el.Controls(ctx, "input[type=checkbox]")
}

func (f *checkBoxesField) Read(ctx context.Context, form dom.Node) (any, error) {
	boxes, err := f.boxes(ctx, form)
	if err != nil {
		return nil, err
	}
	checked := []string{}
	for _, b := range boxes {
		ok, err := b.Checked(ctx)
		if err != nil {
			return nil, err
		}
		if ok {
			v, err := b.Value(ctx)
			if err != nil {
				return nil, err
			}
			checked = append(checked, v)
		}
	}
	return checked, nil
}

func (f *checkBoxesField) Write(ctx context.Context, form dom.Node, value any) error {
	boxes, err := f.boxes(ctx, form)
	if err != nil {
		return err
	}
	want := Strings(value)
	for _, b := range boxes {
		v, err := b.Value(ctx)
		if err != nil {
			return err
		}
		if err := b.SetChecked(ctx, slices.Contains(want, v)); err != nil {
			return err
		}
	}
	return nil
}

var (
	personForm = NewType("PersonForm").
			Selector("form.person").
			Key("person").
			Field("name", "First Name").
			Field("last_name", "").
			Field("biography", "person[bio]").
			Field("favorite_color", "Favorite Color", As(KindSelect), Source(SourceText)).
			Field("age", "person_age", WithTransform(entity.ToInt)).
			Field("vehicles", ".input.vehicles", AsCustom(newCheckBoxesField)).
			Field("is_human", "is_human", As(KindBoolean)).
			Attribute("action", "&[action]", nil).
			Attribute("submit_method", "&[method]", nil).
			MustBuild()

	personFormB = NewType("PersonFormB").
			Selector("form.person").
			Field("is_human", "", As(KindBoolean)).
			Field("allergies", "", As(KindSelect)).
			MustBuild()

	marie = []Assignment{
		Assign("name", "Marie"),
		Assign("last_name", "Curie"),
		Assign("biography", "Scientific!"),
		Assign("favorite_color", "Green"),
		Assign("age", 25),
		Assign("vehicles", []string{"Bike", "Car"}),
		Assign("is_human", true),
	}
)

func marieFields() map[string]any {
	return map[string]any{
		"name":           "Marie",
		"last_name":      "Curie",
		"biography":      "Scientific!",
		"favorite_color": "Green",
		"age":            25,
		"vehicles":       []string{"Bike", "Car"},
		"is_human":       true,
	}
}

type FormSuite struct {
	suite.Suite
	ctx context.Context
	doc *htmldom.Session
}

func TestFormSuite(t *testing.T) {
	suite.Run(t, new(FormSuite))
}

func (s *FormSuite) SetupTest() {
	s.ctx = context.Background()
	s.doc = htmldom.NewSession(testapp.New())
	s.Require().NoError(s.doc.Visit(s.ctx, "/people/23/edit"))
}

func (s *FormSuite) person() *Form {
	f, err := personForm.On(s.doc).Find(s.ctx)
	s.Require().NoError(err)
	return f
}

func (s *FormSuite) field(f *Form, name string) any {
	v, err := f.Field(s.ctx, name)
	s.Require().NoError(err, name)
	return v
}

func (s *FormSuite) assertFields(want map[string]any, f *Form) {
	got, err := f.Fields(s.ctx)
	s.Require().NoError(err)
	if diff := cmp.Diff(want, got.Map()); diff != "" {
		s.Failf("fields mismatch", "(-want +got):\n%s", diff)
	}
}

func (s *FormSuite) TestFieldLocators() {
	p := s.person()
	s.Equal("Alice", s.field(p, "name"), "label locator")
	s.Equal("Cooper", s.field(p, "last_name"), "default locator with key")
	s.Equal("Alice is fun", s.field(p, "biography"), "name locator")
	s.Equal(23, s.field(p, "age"), "id locator with transform")
}

func (s *FormSuite) TestSelectField() {
	s.Equal("Blue", s.field(s.person(), "favorite_color"))
}

func (s *FormSuite) TestMultipleSelectField() {
	b, err := personFormB.On(s.doc).Find(s.ctx)
	s.Require().NoError(err)

	s.Equal([]string{}, s.field(b, "allergies"))

	s.Require().NoError(b.SetField(s.ctx, "allergies", []string{"Peanut", "Corn"}))
	s.Equal([]string{"peanut", "corn"}, s.field(b, "allergies"))

	// writing the same set again leaves it unchanged
	s.Require().NoError(b.SetField(s.ctx, "allergies", []string{"Peanut", "Corn"}))
	s.Equal([]string{"peanut", "corn"}, s.field(b, "allergies"))

	s.Require().NoError(b.SetField(s.ctx, "allergies", "corn"))
	s.Equal([]string{"corn"}, s.field(b, "allergies"))

	s.Require().NoError(b.SetField(s.ctx, "allergies", nil))
	s.Equal([]string{}, s.field(b, "allergies"))
}

func (s *FormSuite) TestMultipleSelectTransformsEachOption() {
	shouting := NewType("Shouting").
		Selector("form.person").
		Field("allergies", "", As(KindSelect), Source(SourceText), WithTransform(entity.Upper)).
		MustBuild()
	f, err := shouting.On(s.doc).Find(s.ctx)
	s.Require().NoError(err)
	s.Require().NoError(f.SetField(s.ctx, "allergies", []any{"peanut", "wheat"}))
	s.Equal([]any{"PEANUT", "WHEAT"}, s.field(f, "allergies"))
}

func (s *FormSuite) TestCustomField() {
	s.Equal([]string{}, s.field(s.person(), "vehicles"))
}

func (s *FormSuite) TestRegisteredKind() {
	Register("checkboxes", newCheckBoxesField)
	s.True(Kinds.Has("checkboxes"))

	ft := NewType("Vehicles").
		Selector("form.person").
		Field("vehicles", ".input.vehicles", As("checkboxes")).
		MustBuild()
	f, err := ft.On(s.doc).Find(s.ctx)
	s.Require().NoError(err)
	s.Require().NoError(f.SetField(s.ctx, "vehicles", "Car"))
	s.Equal([]string{"Car"}, s.field(f, "vehicles"))
}

func (s *FormSuite) TestUnknownKindIsText() {
	ft := NewType("Loose").
		Selector("form.person").
		Key("person").
		Field("name", "", As("wat")).
		MustBuild()
	f, err := ft.On(s.doc).Find(s.ctx)
	s.Require().NoError(err)
	s.Equal("Alice", s.field(f, "name"))
	fld, ok := ft.Field("name")
	s.Require().True(ok)
	s.IsType(&TextField{}, fld)
}

func (s *FormSuite) TestBooleanField() {
	p := s.person()
	s.Equal(false, s.field(p, "is_human"))

	b, err := personFormB.On(s.doc).Find(s.ctx)
	s.Require().NoError(err)
	s.Equal(false, s.field(b, "is_human"))
	s.Require().NoError(b.SetField(s.ctx, "is_human", true))
	s.Equal(true, s.field(b, "is_human"))
	s.Require().NoError(b.SetField(s.ctx, "is_human", true))
	s.Equal(true, s.field(b, "is_human"), "checking twice stays checked")
	s.Require().NoError(b.SetField(s.ctx, "is_human", false))
	s.Equal(false, s.field(b, "is_human"))
	s.Require().NoError(b.SetField(s.ctx, "is_human", false))
	s.Equal(false, s.field(b, "is_human"), "unchecking twice stays unchecked")
	s.Require().NoError(b.SetField(s.ctx, "is_human", "yes"))
	s.Equal(true, s.field(b, "is_human"))
	s.Require().NoError(b.SetField(s.ctx, "is_human", ""))
	s.Equal(false, s.field(b, "is_human"))
}

func (s *FormSuite) TestSetMultipleFields() {
	p := s.person()
	s.Require().NoError(p.Set(s.ctx,
		Assign("name", "Marie"),
		Assign("last_name", "Curie"),
		Assign("biography", "Scientific!"),
		Assign("favorite_color", "Red"),
		Assign("age", 25),
		Assign("vehicles", []string{"Bike", "Car"}),
		Assign("is_human", true),
	))

	want := marieFields()
	want["favorite_color"] = "Red"
	s.assertFields(want, p)
}

func (s *FormSuite) TestFieldsSnapshot() {
	p := s.person()
	s.assertFields(map[string]any{
		"name":           "Alice",
		"last_name":      "Cooper",
		"biography":      "Alice is fun",
		"favorite_color": "Blue",
		"age":            23,
		"vehicles":       []string{},
		"is_human":       false,
	}, p)

	vals, err := p.Fields(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"name", "last_name", "biography", "favorite_color", "age", "vehicles", "is_human"}, vals.Keys())
}

func (s *FormSuite) TestSetNilClearsField() {
	p := s.person()
	s.Require().NoError(p.SetField(s.ctx, "name", nil))
	s.Equal("", s.field(p, "name"))
}

func (s *FormSuite) TestSetByField() {
	p := s.person()
	s.Equal(23, s.field(p, "age"))
	s.Require().NoError(p.SetField(s.ctx, "age", 66))
	s.Equal(66, s.field(p, "age"))
}

func (s *FormSuite) TestSaveSubmitsForm() {
	p := s.person()
	s.False(s.doc.HasContent(updatedFlash))

	s.Require().NoError(p.Set(s.ctx, marie...))
	s.Require().NoError(p.Save(s.ctx))

	s.True(s.doc.HasContent(updatedFlash))
	s.assertFields(marieFields(), s.person())
}

func (s *FormSuite) TestUpdate() {
	s.False(s.doc.HasContent(updatedFlash))
	s.Require().NoError(s.person().Update(s.ctx, marie...))
	s.True(s.doc.HasContent(updatedFlash))
	s.assertFields(marieFields(), s.person())
}

func (s *FormSuite) TestCreate() {
	s.False(s.doc.HasContent(updatedFlash))
	s.Require().NoError(s.person().Create(s.ctx, marie...))
	s.True(s.doc.HasContent(updatedFlash))
	s.assertFields(marieFields(), s.person())
}

func (s *FormSuite) TestTypeLevelCreateAndUpdate() {
	s.Require().NoError(personForm.On(s.doc).Create(s.ctx, marie...))
	s.True(s.doc.HasContent(updatedFlash))
	s.assertFields(marieFields(), s.person())

	s.Require().NoError(personForm.On(s.doc).Update(s.ctx, Assign("name", "Pierre")))
	s.Equal("Pierre", s.field(s.person(), "name"))
}

func (s *FormSuite) TestTypeLevelWithoutForm() {
	s.Require().NoError(s.doc.Visit(s.ctx, "/"))

	err := personForm.On(s.doc).Create(s.ctx, Assign("name", "Marie"), Assign("last_name", "Curie"))
	s.True(dom.IsNotFound(err))
	err = personForm.On(s.doc).Update(s.ctx, Assign("name", "Marie"), Assign("last_name", "Curie"))
	s.True(dom.IsNotFound(err))

	f, err := personForm.On(s.doc).First(s.ctx)
	s.Require().NoError(err)
	s.Nil(f)
}

func (s *FormSuite) TestAll() {
	all, err := personForm.On(s.doc).All(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 1)
}

func (s *FormSuite) TestAttributes() {
	vals, err := s.person().Attributes(s.ctx)
	s.Require().NoError(err)
	s.Equal(map[string]any{"action": "/people/23", "submit_method": "post"}, vals.Map())
	s.Equal([]string{"action", "submit_method"}, vals.Keys())
}

func (s *FormSuite) TestControl() {
	el, err := s.person().Control(s.ctx, "name")
	s.Require().NoError(err)
	id, _, err := el.Attr(s.ctx, "id")
	s.Require().NoError(err)
	s.Equal("person_name", id)
}

func (s *FormSuite) TestInspectField() {
	texts, err := s.person().InspectField(s.ctx, "favorite_color", func(ctx context.Context, el dom.Node) (any, error) {
		opts, err := el.FindAll(ctx, "option")
		if err != nil {
			return nil, err
		}
		var out []string
		for _, o := range opts {
			t, err := o.Text(ctx)
			if err != nil {
				return nil, err
			}
			out = append(out, t)
		}
		return out, nil
	})
	s.Require().NoError(err)
	s.Equal([]string{"- Select a Color -", "Red", "Blue", "Green"}, texts)
}

func (s *FormSuite) TestUnknownField() {
	p := s.person()
	_, err := p.Field(s.ctx, "shoe_size")
	s.ErrorIs(err, ErrUnknownField)
	s.ErrorIs(p.SetField(s.ctx, "shoe_size", 9), ErrUnknownField)
	s.ErrorIs(p.Set(s.ctx, Assign("name", "Marie"), Assign("shoe_size", 9)), ErrUnknownField)
	s.Equal("Marie", s.field(p, "name"), "assignments before the failure are applied")
}

func (s *FormSuite) TestMissingControl() {
	ft := NewType("Ghost").
		Selector("form.person").
		Field("ghost", "Ghost Field").
		MustBuild()
	f, err := ft.On(s.doc).Find(s.ctx)
	s.Require().NoError(err)

	_, err = f.Field(s.ctx, "ghost")
	s.True(dom.IsNotFound(err))
	err = f.SetField(s.ctx, "ghost", "boo")
	s.True(dom.IsNotFound(err))
	s.Contains(err.Error(), "set ghost")
}

func (s *FormSuite) TestSaveWithoutSubmitter() {
	ft := NewType("NoButton").
		Selector("form.person").
		Submitter("button.missing").
		MustBuild()
	f, err := ft.On(s.doc).Find(s.ctx)
	s.Require().NoError(err)
	err = f.Save(s.ctx)
	s.True(dom.IsNotFound(err))
	s.False(s.doc.HasContent(updatedFlash))
}

func (s *FormSuite) TestTransformError() {
	ft := NewType("Strict").
		Selector("form.person").
		Key("person").
		Field("name", "", WithTransform(entity.ToInt)).
		MustBuild()
	f, err := ft.On(s.doc).Find(s.ctx)
	s.Require().NoError(err)
	_, err = f.Field(s.ctx, "name")
	s.Require().Error(err)
	s.Contains(err.Error(), "field name")
}

func TestBuilderErrors(t *testing.T) {
	_, err := NewType("Dup").Selector("form").Field("a", "").Field("a", "").Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field a declared twice")

	_, err = NewType("Blank").Selector("form").Field("", "x").Build()
	require.Error(t, err)

	_, err = NewType("BadAttr").Selector("form").Attribute("x", "&", nil).Build()
	assert.ErrorIs(t, err, entity.ErrInvalidSelector)

	assert.Panics(t, func() { NewType("Bad").Selector("form[").MustBuild() })
}

func TestDefaultLocators(t *testing.T) {
	keyed := NewType("Keyed").Selector("form").Key("person").Field("last_name", "").Field("bio", "Biography").MustBuild()
	f, _ := keyed.Field("last_name")
	assert.Equal(t, "person[last_name]", f.Spec().Locator)
	f, _ = keyed.Field("bio")
	assert.Equal(t, "Biography", f.Spec().Locator)

	plain := NewType("Plain").Selector("form").Field("last_name", "").MustBuild()
	f, _ = plain.Field("last_name")
	assert.Equal(t, "last_name", f.Spec().Locator)

	assert.Equal(t, DefaultSubmitter, plain.SubmitSelector())
	assert.Equal(t, "Keyed", keyed.Name())
	assert.Equal(t, "person", keyed.Key())
}

func TestSelectFieldConsumesSourceHint(t *testing.T) {
	f := NewSelectField(Spec{Name: "color", Locator: "Color", Hints: dom.Hints{"source": "text", "exact": "true"}}).(*SelectField)
	assert.Equal(t, SourceText, f.source)
	assert.Equal(t, dom.Hints{"exact": "true"}, f.hints)
	assert.Equal(t, "text", f.Spec().Hints.Get("source"))

	f = NewSelectField(Spec{Name: "color"}).(*SelectField)
	assert.Equal(t, SourceValue, f.source)
}

func TestStrings(t *testing.T) {
	assert.Nil(t, Strings(nil))
	assert.Equal(t, []string{"a"}, Strings("a"))
	assert.Equal(t, []string{"a", "b"}, Strings([]string{"a", "b"}))
	assert.Equal(t, []string{"1", "x"}, Strings([]any{1, nil, "x"}))
	assert.Equal(t, []string{"25"}, Strings(25))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []Kind{KindBoolean, KindSelect, KindText}, r.Names())
	assert.False(t, r.Has("radio"))
	r.Register("radio", NewBooleanField)
	assert.True(t, r.Has("radio"))
	assert.IsType(t, &BooleanField{}, r.Lookup("radio")(Spec{}))
	assert.IsType(t, &TextField{}, r.Lookup("missing")(Spec{}))
}
