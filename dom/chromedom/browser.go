// Package chromedom implements the dom interfaces on a live Chrome tab
// driven over the DevTools protocol with chromedp.
package chromedom

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ngauthier/domino/internal/config"
)

const chromeStartTimeout = 15 * time.Second

// Browser owns a Chrome process, or a connection to one when CDP_URL is set.
type Browser struct {
	cfg           *config.RuntimeConfig
	ctx           context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
}

// Launch starts Chrome as configured and waits for it to accept commands.
func Launch(cfg *config.RuntimeConfig) (*Browser, error) {
	slog.Info("starting chrome", "headless", cfg.Headless, "profile", cfg.ProfileDir, "binary", cfg.ChromeBinary, "cdp", cfg.CdpURL)

	allocCtx, allocCancel, err := setupAllocator(cfg)
	if err != nil {
		return nil, err
	}

	browserCtx, browserCancel, err := startChrome(allocCtx)
	if err != nil {
		allocCancel()
		slog.Error("chrome initialization failed", "headless", cfg.Headless, "err", err)
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	slog.Debug("chrome started")
	return &Browser{
		cfg:           cfg,
		ctx:           browserCtx,
		allocCancel:   allocCancel,
		browserCancel: browserCancel,
	}, nil
}

func setupAllocator(cfg *config.RuntimeConfig) (context.Context, context.CancelFunc, error) {
	if cfg.CdpURL != "" {
		slog.Info("connecting to Chrome", "url", cfg.CdpURL)
		ctx, cancel := chromedp.NewRemoteAllocator(context.Background(), cfg.CdpURL)
		return ctx, cancel, nil
	}

	if cfg.ProfileDir != "" {
		if err := os.MkdirAll(cfg.ProfileDir, 0755); err != nil {
			return nil, nil, fmt.Errorf("create profile dir: %w", err)
		}
		for _, lockName := range []string{"SingletonLock", "SingletonSocket", "SingletonCookie"} {
			if err := os.Remove(filepath.Join(cfg.ProfileDir, lockName)); err == nil {
				slog.Warn("removed stale lock", "file", lockName)
			}
		}
	}

	ctx, cancel := chromedp.NewExecAllocator(context.Background(), buildChromeOpts(cfg)...)
	return ctx, cancel, nil
}

func buildChromeOpts(cfg *config.RuntimeConfig) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,

		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-session-crashed-bubble", true),
		chromedp.Flag("hide-crash-restore-bubble", true),

		chromedp.WindowSize(1280, 800),
	}

	if cfg.ProfileDir != "" {
		opts = append(opts, chromedp.UserDataDir(cfg.ProfileDir))
	}
	if cfg.ChromeBinary != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromeBinary))
	}
	opts = append(opts, extraFlags(cfg.ChromeExtraFlags)...)

	// no flag at all means headed
	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}

	return opts
}

// extraFlags turns "--a --b=c" into chromedp flags.
func extraFlags(flags string) []chromedp.ExecAllocatorOption {
	var opts []chromedp.ExecAllocatorOption
	for _, f := range strings.Fields(flags) {
		if k, v, ok := strings.Cut(f, "="); ok {
			opts = append(opts, chromedp.Flag(strings.TrimLeft(k, "-"), v))
		} else {
			opts = append(opts, chromedp.Flag(strings.TrimLeft(f, "-"), true))
		}
	}
	return opts
}

func startChrome(allocCtx context.Context) (context.Context, context.CancelFunc, error) {
	bCtx, bCancel := chromedp.NewContext(allocCtx)

	startCtx, startDone := context.WithTimeout(context.Background(), chromeStartTimeout)
	defer startDone()

	errCh := make(chan error, 1)
	go func() {
		errCh <- chromedp.Run(bCtx)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			bCancel()
			return nil, nil, err
		}
		return bCtx, bCancel, nil
	case <-startCtx.Done():
		bCancel()
		return nil, nil, fmt.Errorf("timed out after %s", chromeStartTimeout)
	}
}

// NewPage opens a tab.
func (b *Browser) NewPage() (*Page, error) {
	tabCtx, cancel := chromedp.NewContext(b.ctx)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return &Page{
		ctx:     tabCtx,
		cancel:  cancel,
		wait:    b.cfg.WaitTimeout,
		action:  b.cfg.ActionTimeout,
		navWait: b.cfg.NavigateTimeout,
	}, nil
}

// Close shuts the browser down, or disconnects from a remote one.
func (b *Browser) Close() {
	b.browserCancel()
	b.allocCancel()
	slog.Debug("chrome closed")
}
