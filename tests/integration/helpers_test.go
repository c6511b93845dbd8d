//go:build integration

package integration

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/ngauthier/domino/dom/chromedom"
	"github.com/ngauthier/domino/internal/decl"
	"github.com/ngauthier/domino/internal/testapp"
)

// openPage opens a tab on path and closes it when the test ends.
func openPage(t *testing.T, path string) (context.Context, *chromedom.Page) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	t.Cleanup(cancel)

	p, err := browser.NewPage()
	if err != nil {
		t.Fatalf("new page: %v", err)
	}
	t.Cleanup(p.Close)

	if err := p.Navigate(ctx, serverURL+path); err != nil {
		t.Fatalf("navigate %s: %v", path, err)
	}
	return ctx, p
}

func declarations(t *testing.T) *decl.Set {
	t.Helper()
	set, err := decl.Parse(testapp.Declarations, "people.hcl")
	if err != nil {
		t.Fatalf("parse declarations: %v", err)
	}
	return set
}

// runCLI runs the built binary and returns its stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binPath, args...)
	cmd.Env = domEnv()
	out, err := cmd.Output()
	if ee, ok := err.(*exec.ExitError); ok {
		t.Logf("domino %v stderr: %s", args, ee.Stderr)
	}
	return string(out), err
}
