package chromedom

import (
	"errors"
	"testing"

	"github.com/ngauthier/domino/internal/config"
)

func TestBuildChromeOpts_HeadlessAddsOneOption(t *testing.T) {
	headless := buildChromeOpts(&config.RuntimeConfig{Headless: true, ProfileDir: "/tmp/test-profile"})
	headed := buildChromeOpts(&config.RuntimeConfig{Headless: false, ProfileDir: "/tmp/test-profile"})

	if len(headless) != len(headed)+1 {
		t.Errorf("headless opts = %d, headed opts = %d, want exactly one more", len(headless), len(headed))
	}
}

func TestBuildChromeOpts_OptionalSettings(t *testing.T) {
	bare := buildChromeOpts(&config.RuntimeConfig{})
	full := buildChromeOpts(&config.RuntimeConfig{
		ProfileDir:       "/tmp/test-profile",
		ChromeBinary:     "/usr/bin/chromium",
		ChromeExtraFlags: "--lang=en --mute-audio",
	})

	// profile, binary and two extra flags
	if len(full) != len(bare)+4 {
		t.Errorf("opts = %d, want %d", len(full), len(bare)+4)
	}
}

func TestExtraFlags(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"--mute-audio", 1},
		{"--lang=en --mute-audio\t--proxy-server=http://127.0.0.1:8080", 3},
	}
	for _, tt := range tests {
		if got := len(extraFlags(tt.in)); got != tt.want {
			t.Errorf("extraFlags(%q) = %d options, want %d", tt.in, got, tt.want)
		}
	}
}

func TestStale(t *testing.T) {
	if stale(nil) != nil {
		t.Error("stale(nil) should stay nil")
	}

	other := errors.New("boom")
	if err := stale(other); err != other {
		t.Errorf("stale(other) = %v, want it unchanged", err)
	}

	for _, msg := range []string{
		"Could not find node with given id (-32000)",
		"No node with given id found (-32000)",
	} {
		if err := stale(errors.New(msg)); !errors.Is(err, ErrStale) {
			t.Errorf("stale(%q) = %v, want ErrStale", msg, err)
		}
	}
}

func TestNormalizeSpace(t *testing.T) {
	if got := normalizeSpace("  Alice \n\t Smith "); got != "Alice Smith" {
		t.Errorf("normalizeSpace = %q", got)
	}
}
