package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/ngauthier/domino/entity"
	"github.com/ngauthier/domino/internal/config"
	"github.com/ngauthier/domino/internal/decl"
	"gopkg.in/yaml.v3"
)

// listFlag collects a repeatable string flag.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	*l = append(*l, v)
	return nil
}

// commonFlags are shared by dump and set.
type commonFlags struct {
	decls   listFlag
	backend string
	format  string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.Var(&c.decls, "decl", "declaration file or directory (repeatable)")
	fs.StringVar(&c.backend, "backend", backendChrome, "chrome or http")
	fs.StringVar(&c.format, "format", "json", "json or yaml")
}

func (c *commonFlags) load() (*decl.Set, error) {
	if len(c.decls) == 0 {
		return nil, fmt.Errorf("no declarations given (use -decl)")
	}
	if c.format != "json" && c.format != "yaml" {
		return nil, fmt.Errorf("unknown format %q", c.format)
	}
	return decl.Load(c.decls...)
}

func write(out io.Writer, format string, v any) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runDump(ctx context.Context, cfg *config.RuntimeConfig, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	var where listFlag
	common.register(fs)
	fs.Var(&where, "where", "attribute filter K=V or K~=RE (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: domino dump [flags] <name> <url>")
	}
	name, target := fs.Arg(0), fs.Arg(1)

	set, err := common.load()
	if err != nil {
		return err
	}
	criteria, err := decl.ParseCriteria(where)
	if err != nil {
		return err
	}

	typ, isEntity := set.Entities[name]
	ft, isForm := set.Forms[name]
	if !isEntity && !isForm {
		return fmt.Errorf("%q is not declared (entities: %s; forms: %s)", name,
			strings.Join(set.EntityNames(), ", "), strings.Join(set.FormNames(), ", "))
	}
	if isForm && !isEntity && len(criteria) > 0 {
		return fmt.Errorf("-where applies to entities, %q is a form", name)
	}

	p, err := openPage(ctx, cfg, common.backend, target)
	if err != nil {
		return err
	}
	defer p.Close()

	if !isEntity {
		f, err := ft.On(p).Find(ctx)
		if err != nil {
			return err
		}
		values, err := f.Fields(ctx)
		if err != nil {
			return err
		}
		return write(stdout, common.format, values)
	}

	var found []*entity.Entity
	if len(criteria) > 0 {
		found, err = typ.On(p).Where(ctx, criteria)
	} else {
		found, err = typ.On(p).All(ctx)
	}
	if err != nil {
		return err
	}

	rows := make([]*entity.Values, 0, len(found))
	for _, e := range found {
		v, err := e.Attributes(ctx)
		if err != nil {
			return err
		}
		rows = append(rows, v)
	}
	return write(stdout, common.format, rows)
}
