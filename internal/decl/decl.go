// Package decl loads entity and form declarations from HCL files.
//
//	entity "person" {
//	  selector = "#people .person"
//	  attribute "name" {}
//	  attribute "age" { transform = "int" }
//	  attribute "rank" {
//	    selector  = "&[data-rank]"
//	    transform = "int"
//	  }
//	}
//
//	form "person" {
//	  selector = "form.person"
//	  key      = "person"
//	  field "name" { locator = "First Name" }
//	  field "favorite_color" {
//	    locator = "Favorite Color"
//	    kind    = "select"
//	    hints   = { source = "text" }
//	  }
//	}
package decl

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/ngauthier/domino/entity"
	"github.com/ngauthier/domino/form"
)

type fileRoot struct {
	Entities []*entityBlock `hcl:"entity,block"`
	Forms    []*formBlock   `hcl:"form,block"`
}

type entityBlock struct {
	Name       string            `hcl:"name,label"`
	Selector   string            `hcl:"selector,optional"`
	Attributes []*attributeBlock `hcl:"attribute,block"`
	DeclRange  hcl.Range         `hcl:",def_range"`
}

type attributeBlock struct {
	Name      string    `hcl:"name,label"`
	Selector  string    `hcl:"selector,optional"`
	Transform string    `hcl:"transform,optional"`
	DeclRange hcl.Range `hcl:",def_range"`
}

type formBlock struct {
	Name       string            `hcl:"name,label"`
	Selector   string            `hcl:"selector,optional"`
	Key        string            `hcl:"key,optional"`
	Submitter  string            `hcl:"submitter,optional"`
	Attributes []*attributeBlock `hcl:"attribute,block"`
	Fields     []*fieldBlock     `hcl:"field,block"`
	DeclRange  hcl.Range         `hcl:",def_range"`
}

type fieldBlock struct {
	Name      string            `hcl:"name,label"`
	Locator   string            `hcl:"locator,optional"`
	Kind      string            `hcl:"kind,optional"`
	Hints     map[string]string `hcl:"hints,optional"`
	Transform string            `hcl:"transform,optional"`
	DeclRange hcl.Range         `hcl:",def_range"`
}

// Set is every declaration found in a group of files.
type Set struct {
	Entities map[string]*entity.Type
	Forms    map[string]*form.Type
}

func newSet() *Set {
	return &Set{
		Entities: make(map[string]*entity.Type),
		Forms:    make(map[string]*form.Type),
	}
}

// EntityNames lists the declared entity types, sorted.
func (s *Set) EntityNames() []string { return sortedKeys(s.Entities) }

// FormNames lists the declared form types, sorted.
func (s *Set) FormNames() []string { return sortedKeys(s.Forms) }

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Load parses every .hcl file under the given paths. Directories are walked;
// missing paths are an error.
func Load(paths ...string) (*Set, error) {
	files, err := findFiles(paths)
	if err != nil {
		return nil, err
	}
	slog.Debug("decl load", "files", len(files))

	parser := hclparse.NewParser()
	set := newSet()
	for _, file := range files {
		f, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse %s: %w", file, diags)
		}
		if err := set.decode(f.Body); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", file, err)
		}
	}
	return set, nil
}

// Parse decodes one in-memory declaration file.
func Parse(src []byte, filename string) (*Set, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, diags)
	}
	set := newSet()
	if err := set.decode(f.Body); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, err)
	}
	return set, nil
}

func findFiles(paths []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("declarations: %w", err)
		}
		if !info.IsDir() {
			if !seen[path] {
				files = append(files, path)
				seen[path] = true
			}
			continue
		}
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && filepath.Ext(p) == ".hcl" && !seen[p] {
				files = append(files, p)
				seen[p] = true
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func (s *Set) decode(body hcl.Body) error {
	var root fileRoot
	if diags := gohcl.DecodeBody(body, nil, &root); diags.HasErrors() {
		return diags
	}

	var diags hcl.Diagnostics
	for _, b := range root.Entities {
		if _, dup := s.Entities[b.Name]; dup {
			diags = append(diags, declError(b.DeclRange, "Duplicate entity", fmt.Sprintf("entity %q is already declared", b.Name)))
			continue
		}
		t, d := b.build()
		diags = append(diags, d...)
		if t != nil {
			s.Entities[b.Name] = t
		}
	}
	for _, b := range root.Forms {
		if _, dup := s.Forms[b.Name]; dup {
			diags = append(diags, declError(b.DeclRange, "Duplicate form", fmt.Sprintf("form %q is already declared", b.Name)))
			continue
		}
		t, d := b.build()
		diags = append(diags, d...)
		if t != nil {
			s.Forms[b.Name] = t
		}
	}
	if diags.HasErrors() {
		return diags
	}
	return nil
}

func declError(r hcl.Range, summary, detail string) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   detail,
		Subject:  r.Ptr(),
	}
}

func transform(name string, r hcl.Range) (entity.Transform, *hcl.Diagnostic) {
	if name == "" {
		return nil, nil
	}
	t, ok := entity.LookupTransform(name)
	if !ok {
		return nil, declError(r, "Unknown transform",
			fmt.Sprintf("transform %q is not one of: %s", name, strings.Join(entity.TransformNames(), ", ")))
	}
	return t, nil
}

func (b *entityBlock) build() (*entity.Type, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	builder := entity.NewType(b.Name)
	if b.Selector != "" {
		builder.Selector(b.Selector)
	}
	for _, a := range b.Attributes {
		t, d := transform(a.Transform, a.DeclRange)
		if d != nil {
			diags = append(diags, d)
			continue
		}
		builder.Attribute(a.Name, a.Selector, t)
	}
	if diags.HasErrors() {
		return nil, diags
	}
	typ, err := builder.Build()
	if err != nil {
		return nil, append(diags, declError(b.DeclRange, "Invalid entity", err.Error()))
	}
	return typ, nil
}

func (b *formBlock) build() (*form.Type, hcl.Diagnostics) {
	var diags hcl.Diagnostics
	builder := form.NewType(b.Name)
	if b.Selector != "" {
		builder.Selector(b.Selector)
	}
	if b.Key != "" {
		builder.Key(b.Key)
	}
	if b.Submitter != "" {
		builder.Submitter(b.Submitter)
	}
	for _, a := range b.Attributes {
		t, d := transform(a.Transform, a.DeclRange)
		if d != nil {
			diags = append(diags, d)
			continue
		}
		builder.Attribute(a.Name, a.Selector, t)
	}
	for _, f := range b.Fields {
		var opts []form.FieldOption
		if f.Kind != "" {
			if !form.Kinds.Has(form.Kind(f.Kind)) {
				slog.Warn("unknown field kind, using text", "form", b.Name, "field", f.Name, "kind", f.Kind)
			}
			opts = append(opts, form.As(form.Kind(f.Kind)))
		}
		for _, k := range sortedKeys(f.Hints) {
			opts = append(opts, form.WithHint(k, f.Hints[k]))
		}
		t, d := transform(f.Transform, f.DeclRange)
		if d != nil {
			diags = append(diags, d)
			continue
		}
		if t != nil {
			opts = append(opts, form.WithTransform(t))
		}
		builder.Field(f.Name, f.Locator, opts...)
	}
	if diags.HasErrors() {
		return nil, diags
	}
	typ, err := builder.Build()
	if err != nil {
		return nil, append(diags, declError(b.DeclRange, "Invalid form", err.Error()))
	}
	return typ, nil
}
