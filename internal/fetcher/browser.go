package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/newsgoat/internal/config"
	"github.com/IshaanNene/newsgoat/internal/types"
)

// BrowserFetcher drives a headless Chromium via Rod. The browser is
// launched on first use so commands that never need it pay nothing.
type BrowserFetcher struct {
	cfg        *config.BrowserConfig
	pagination *config.PaginationConfig
	identity   IdentitySupplier
	proxyMgr   *ProxyManager
	logger     *slog.Logger

	mu      sync.Mutex
	browser *rod.Browser
}

// BrowserOption configures the BrowserFetcher.
type BrowserOption func(*BrowserFetcher)

// WithBrowserProxy sets the proxy manager used at launch.
func WithBrowserProxy(pm *ProxyManager) BrowserOption {
	return func(bf *BrowserFetcher) { bf.proxyMgr = pm }
}

// WithBrowserIdentity sets the identity supplier for new pages.
func WithBrowserIdentity(id IdentitySupplier) BrowserOption {
	return func(bf *BrowserFetcher) { bf.identity = id }
}

// NewBrowserFetcher creates a new headless browser fetcher.
func NewBrowserFetcher(cfg *config.Config, logger *slog.Logger, opts ...BrowserOption) *BrowserFetcher {
	bf := &BrowserFetcher{
		cfg:        &cfg.Browser,
		pagination: &cfg.Pagination,
		logger:     logger.With("component", "browser_fetcher"),
	}
	for _, opt := range opts {
		opt(bf)
	}
	if bf.identity == nil {
		bf.identity = NewRandomIdentity(cfg.Fetcher.UserAgents)
	}
	return bf
}

// ensureBrowser launches and connects Chromium once.
func (bf *BrowserFetcher) ensureBrowser() (*rod.Browser, error) {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	if bf.browser != nil {
		return bf.browser, nil
	}

	l := launcher.New().
		Headless(bf.cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-blink-features", "AutomationControlled")
	if bf.cfg.Bin != "" {
		l = l.Bin(bf.cfg.Bin)
	}
	if bf.cfg.WindowSize != "" {
		l = l.Set("window-size", bf.cfg.WindowSize)
	}
	if bf.proxyMgr != nil {
		if proxyURL := bf.proxyMgr.Next(); proxyURL != nil {
			l = l.Proxy(proxyURL.String())
		}
	}

	launchURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	bf.browser = browser
	bf.logger.Info("browser ready", "headless", bf.cfg.Headless, "stealth", bf.cfg.Stealth)
	return browser, nil
}

// newPage opens a blank page with a fresh identity.
func (bf *BrowserFetcher) newPage() (*rod.Page, error) {
	browser, err := bf.ensureBrowser()
	if err != nil {
		return nil, err
	}

	var page *rod.Page
	if bf.cfg.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: bf.identity.UserAgent(),
	}); err != nil {
		bf.logger.Warn("failed to set user agent", "error", err)
	}
	return page, nil
}

// navigate loads rawURL and waits for the DOM to settle. A settle
// timeout is logged and ignored.
func (bf *BrowserFetcher) navigate(ctx context.Context, page *rod.Page, rawURL string) error {
	p := page.Context(ctx)
	if err := p.Timeout(bf.cfg.NavigateTimeout).Navigate(rawURL); err != nil {
		return err
	}
	if err := p.Timeout(bf.cfg.NavigateTimeout).WaitStable(bf.cfg.StableWait); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		bf.logger.Warn("page stability timeout, continuing", "url", rawURL, "error", err)
	}
	return nil
}

// Fetch navigates to a URL and returns the rendered page content.
func (bf *BrowserFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	start := time.Now()

	page, err := bf.newPage()
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}
	defer func() { _ = page.Close() }()

	if err := bf.navigate(ctx, page, req.URLString()); err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}
	if req.RenderWait > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(req.RenderWait):
		}
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err}
	}

	finalURL := req.URLString()
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	duration := time.Since(start)
	bf.logger.Debug("browser fetch complete",
		"url", req.URLString(),
		"final_url", finalURL,
		"size", len(html),
		"duration", duration,
	)

	return types.NewBrowserResponse(req, []byte(html), finalURL, duration), nil
}

// OpenSession navigates a new page to the search URL and keeps it open
// for pagination.
func (bf *BrowserFetcher) OpenSession(ctx context.Context, opts SessionOptions) (Session, error) {
	page, err := bf.newPage()
	if err != nil {
		return nil, err
	}

	if err := bf.navigate(ctx, page, opts.URL); err != nil {
		_ = page.Close()
		return nil, &types.FetchError{URL: opts.URL, Err: err}
	}

	if opts.InitialWait > 0 {
		select {
		case <-ctx.Done():
			_ = page.Close()
			return nil, ctx.Err()
		case <-time.After(opts.InitialWait):
		}
	}

	bf.logger.Debug("search session open", "url", opts.URL)
	return &BrowserSession{
		page:          page,
		selector:      opts.ShowMoreSelector,
		lookupTimeout: bf.pagination.LookupTimeout,
		stableWait:    bf.cfg.StableWait,
		logger:        bf.logger,
	}, nil
}

// Close shuts down the browser if it was launched.
func (bf *BrowserFetcher) Close() error {
	bf.mu.Lock()
	defer bf.mu.Unlock()
	if bf.browser == nil {
		return nil
	}
	err := bf.browser.Close()
	bf.browser = nil
	return err
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}

// BrowserSession is an open search page with a "load more" control.
type BrowserSession struct {
	page          *rod.Page
	selector      string
	lookupTimeout time.Duration
	stableWait    time.Duration
	logger        *slog.Logger
	closeOnce     sync.Once
	closeErr      error
}

// Advance clicks the pagination control once.
func (s *BrowserSession) Advance(ctx context.Context) error {
	if s.selector == "" {
		return types.ErrEndOfResults
	}
	return advance(ctx, rodPage{page: s.page.Context(ctx)}, s.selector, s.lookupTimeout, s.stableWait, s.logger)
}

// controlPage is what advance needs from a search page.
type controlPage interface {
	Settle(timeout, stable time.Duration) error
	Find(timeout time.Duration, selector string) (control, bool, error)
}

type control interface {
	Visible() (bool, error)
	Click() error
}

// advance settles the page, then clicks the control if it is present and
// visible. Pages with tickers or background polling may never settle, so a
// settle timeout only gets logged; ErrControlLookup is reserved for the
// control query itself running out of time.
func advance(ctx context.Context, pg controlPage, selector string, lookupTimeout, stableWait time.Duration, logger *slog.Logger) error {
	if err := pg.Settle(lookupTimeout, stableWait); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Debug("search page did not settle, looking for control anyway", "selector", selector, "error", err)
	}

	el, has, err := pg.Find(lookupTimeout, selector)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", types.ErrControlLookup, err)
		}
		return fmt.Errorf("find %s: %w", selector, err)
	}
	if !has {
		return types.ErrEndOfResults
	}

	visible, err := el.Visible()
	if err != nil {
		return fmt.Errorf("check %s visibility: %w", selector, err)
	}
	if !visible {
		return types.ErrEndOfResults
	}

	if err := el.Click(); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	return nil
}

type rodPage struct{ page *rod.Page }

func (p rodPage) Settle(timeout, stable time.Duration) error {
	return p.page.Timeout(timeout).WaitStable(stable)
}

func (p rodPage) Find(timeout time.Duration, selector string) (control, bool, error) {
	has, el, err := p.page.Timeout(timeout).Has(selector)
	if err != nil || !has {
		return nil, has, err
	}
	return rodControl{el: el}, true, nil
}

type rodControl struct{ el *rod.Element }

func (c rodControl) Visible() (bool, error) { return c.el.Visible() }

// Click runs the click from script; overlays swallow mouse clicks on
// these controls.
func (c rodControl) Click() error {
	_, err := c.el.Eval(`() => this.click()`)
	return err
}

// HTML returns the rendered search page.
func (s *BrowserSession) HTML() (string, error) {
	return s.page.HTML()
}

// Close releases the page. It is safe to call more than once.
func (s *BrowserSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.page.Close()
	})
	return s.closeErr
}
