package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ngauthier/domino/internal/config"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	if len(args) == 0 {
		printHelp(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "dump":
		err = runDump(ctx, cfg, args[1:], stdout, stderr)
	case "set":
		err = runSet(ctx, cfg, args[1:], stdout, stderr)
	case "config":
		err = config.HandleConfigCommand(cfg, args[1:], stdin, stdout)
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "domino %s\n", version)
	case "help", "--help", "-h":
		printHelp(stdout)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		printHelp(stderr)
		return 2
	}

	if err != nil {
		fmt.Fprintf(stderr, "domino %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

func printHelp(w io.Writer) {
	fmt.Fprintf(w, `domino %s: read pages through entity and form declarations

Usage:
  domino dump [flags] <name> <url>               Print a declared entity list or form
  domino set  [flags] <form> <url> field=value   Fill in a declared form
  domino config init|show                        Manage ~/.domino/config.json
  domino version

Flags (dump, set):
  -decl PATH       Declaration file or directory (.hcl), repeatable
  -backend NAME    chrome (default) or http
  -format FMT      json (default) or yaml

dump:
  -where K=V       Only entities whose attribute K matches V, repeatable.
                   K~=RE matches a regular expression.

set:
  -save            Submit the form after filling it in
  -expect TEXT     After saving, fail unless the page shows TEXT

Environment:
  DOMINO_HEADLESS       Run Chrome headless (default: true)
  CDP_URL               Use a running Chrome instead of launching one
  CHROME_BINARY         Chrome executable
  DOMINO_WAIT_TIMEOUT   How long single-element lookups wait (default: 2s)
  DOMINO_LOG_LEVEL      debug, info, warn, error (default: info)
`, version)
}
