package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ngauthier/domino/dom"
	"github.com/ngauthier/domino/dom/chromedom"
	"github.com/ngauthier/domino/dom/htmldom"
	"github.com/ngauthier/domino/internal/config"
)

const (
	backendChrome = "chrome"
	backendHTTP   = "http"
)

// page is an opened document, whichever backend serves it.
type page interface {
	dom.Document
	HasText(ctx context.Context, text string) (bool, error)
	Close()
}

func openPage(ctx context.Context, cfg *config.RuntimeConfig, backend, target string) (page, error) {
	switch backend {
	case backendHTTP:
		s, err := htmldom.Dial(target, &http.Client{Timeout: cfg.NavigateTimeout})
		if err != nil {
			return nil, err
		}
		if err := s.Visit(ctx, target); err != nil {
			return nil, err
		}
		return httpPage{s}, nil

	case backendChrome, "":
		b, err := chromedom.Launch(cfg)
		if err != nil {
			return nil, err
		}
		p, err := b.NewPage()
		if err != nil {
			b.Close()
			return nil, err
		}
		if err := p.Navigate(ctx, target); err != nil {
			p.Close()
			b.Close()
			return nil, err
		}
		return chromePage{Page: p, browser: b}, nil
	}
	return nil, fmt.Errorf("unknown backend %q (want %s or %s)", backend, backendChrome, backendHTTP)
}

type httpPage struct {
	*htmldom.Session
}

func (p httpPage) HasText(_ context.Context, text string) (bool, error) {
	return p.HasContent(text), nil
}

func (httpPage) Close() {}

type chromePage struct {
	*chromedom.Page
	browser *chromedom.Browser
}

func (p chromePage) HasText(ctx context.Context, text string) (bool, error) {
	return p.HasContent(ctx, text)
}

func (p chromePage) Close() {
	p.Page.Close()
	p.browser.Close()
}
