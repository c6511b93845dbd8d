package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/ngauthier/domino/internal/config"
	"github.com/ngauthier/domino/internal/decl"
)

func runSet(ctx context.Context, cfg *config.RuntimeConfig, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)
	save := fs.Bool("save", false, "submit the form")
	expect := fs.String("expect", "", "text the page must show after saving")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return fmt.Errorf("usage: domino set [flags] <form> <url> field=value...")
	}
	name, target := fs.Arg(0), fs.Arg(1)
	if *expect != "" && !*save {
		return fmt.Errorf("-expect needs -save")
	}

	set, err := common.load()
	if err != nil {
		return err
	}
	ft, ok := set.Forms[name]
	if !ok {
		return fmt.Errorf("form %q is not declared", name)
	}
	assignments, err := decl.ParseAssignments(fs.Args()[2:])
	if err != nil {
		return err
	}

	p, err := openPage(ctx, cfg, common.backend, target)
	if err != nil {
		return err
	}
	defer p.Close()

	f, err := ft.On(p).Find(ctx)
	if err != nil {
		return err
	}
	if err := f.Set(ctx, assignments...); err != nil {
		return err
	}

	if !*save {
		values, err := f.Fields(ctx)
		if err != nil {
			return err
		}
		return write(stdout, common.format, values)
	}

	if err := f.Save(ctx); err != nil {
		return err
	}
	slog.Info("form saved", "form", name, "fields", len(assignments))
	if *expect != "" {
		ok, err := p.HasText(ctx, *expect)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("page does not show %q after saving", *expect)
		}
	}
	fmt.Fprintln(stdout, "saved")
	return nil
}
