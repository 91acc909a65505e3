package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// DefaultPageTimeout bounds a single page fetch.
const DefaultPageTimeout = 60 * time.Second

// Session is one running browser. It is created by the caller, shared by
// every fetch, and must be closed when scraping is done.
type Session struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	pageTimeout   time.Duration
}

// NewSession starts a browser process and returns a session bound to it.
func NewSession(ctx context.Context, headless bool, pageTimeout time.Duration) (*Session, error) {
	if pageTimeout <= 0 {
		pageTimeout = DefaultPageTimeout
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, Options(headless)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Run with no actions starts the browser so launch errors surface here.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &Session{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		pageTimeout:   pageTimeout,
	}, nil
}

// Fetch opens url in a new tab and returns the rendered document HTML.
// It is safe to call from multiple goroutines.
func (s *Session) Fetch(ctx context.Context, url string) (string, error) {
	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx)
	defer tabCancel()

	tabCtx, timeoutCancel := context.WithTimeout(tabCtx, s.pageTimeout)
	defer timeoutCancel()

	// Stop the tab when the caller gives up.
	stop := context.AfterFunc(ctx, tabCancel)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": "en-US,en;q=0.9"}),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	return html, nil
}

// Close shuts the browser down.
func (s *Session) Close() {
	s.browserCancel()
	s.allocCancel()
}
