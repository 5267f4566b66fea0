package leadgen

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"leadgen-pipeline/internal/config"
	"leadgen-pipeline/internal/logging"
	"leadgen-pipeline/internal/logging/types"
)

// blockedResourceTypes are stripped from every page the pool hands out —
// the search adapter only needs result markup, never images/fonts/media.
var blockedResourceTypes = map[proto.NetworkResourceType]struct{}{
	proto.NetworkResourceTypeImage:      {},
	proto.NetworkResourceTypeFont:       {},
	proto.NetworkResourceTypeMedia:      {},
	proto.NetworkResourceTypeStylesheet: {},
}

// PagePool is a FIFO-bounded pool of stealth-patched browser pages, used
// by the SearchAdapter's browser path (spec.md §4.3). It generalizes the
// teacher's GlobalBrowserPool/BrowserManager (one shared browser, many
// disposable pages) down to a single browser process since a leadgen job
// only ever needs one query page in flight per concurrency slot.
type PagePool struct {
	cfg      *config.Config
	launcher *launcher.Launcher
	browser  *rod.Browser
	slots    chan struct{}
	mu       sync.Mutex
	logger   types.Logger
}

// NewPagePool launches the shared browser process and reserves
// cfg.BrowserPool.MaxInstances concurrent page slots.
func NewPagePool(cfg *config.Config) (*PagePool, error) {
	logger := logging.GetGlobalLogger()

	l := launcher.New().
		Headless(cfg.Scraper.HeadlessMode).
		NoSandbox(true).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-web-security").
		Set("disable-background-timer-throttling").
		Set("disable-backgrounding-occluded-windows").
		Set("disable-renderer-backgrounding").
		Set("disable-gpu").
		Set("disable-dev-shm-usage")

	if chromePath := systemChromePath(); chromePath != "" {
		l = l.Bin(chromePath)
	}
	if cfg.Scraper.UserAgent != "" {
		l = l.Set("user-agent", cfg.Scraper.UserAgent)
	}

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	maxInstances := cfg.BrowserPool.MaxInstances
	if maxInstances <= 0 {
		maxInstances = 5
	}

	pool := &PagePool{
		cfg:      cfg,
		launcher: l,
		browser:  browser,
		slots:    make(chan struct{}, maxInstances),
		logger:   logger,
	}
	for i := 0; i < maxInstances; i++ {
		pool.slots <- struct{}{}
	}

	logger.Info("page pool initialized", map[string]interface{}{"max_instances": maxInstances})
	return pool, nil
}

// PooledPage wraps a live page plus the release function that returns its
// slot to the pool.
type PooledPage struct {
	Page    *rod.Page
	release func()
}

// Release closes the page and frees the slot. Safe to call once.
func (p *PooledPage) Release() {
	if p.Page != nil {
		_ = p.Page.Close()
	}
	p.release()
}

// Acquire blocks until a slot is free (or ctx is done), then returns a new
// stealth-patched page with asset requests blocked.
func (p *PagePool) Acquire(ctx context.Context) (*PooledPage, error) {
	select {
	case <-p.slots:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	page, err := p.newStealthPage(ctx)
	if err != nil {
		p.slots <- struct{}{}
		return nil, err
	}

	released := make(chan struct{})
	return &PooledPage{
		Page: page,
		release: func() {
			select {
			case <-released:
				return
			default:
				close(released)
				p.slots <- struct{}{}
			}
		},
	}, nil
}

func (p *PagePool) newStealthPage(ctx context.Context) (*rod.Page, error) {
	page, err := stealth.Page(p.browser)
	if err != nil {
		return nil, fmt.Errorf("create stealth page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width: 1920, Height: 1080, DeviceScaleFactor: 1,
	}); err != nil {
		p.logger.Debug("failed to set viewport", map[string]interface{}{"error": err.Error()})
	}

	if p.cfg.Scraper.UserAgent != "" {
		_ = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: p.cfg.Scraper.UserAgent})
	}

	p.blockAssetRequests(page)

	if err := rod.Try(func() {
		page.Context(ctx).MustEval(stealthPatchJS)
	}); err != nil {
		p.logger.Debug("failed to apply stealth patches", map[string]interface{}{"error": err.Error()})
	}

	return page, nil
}

// blockAssetRequests hijacks the page's outgoing requests and aborts any
// whose resource type is in blockedResourceTypes.
func (p *PagePool) blockAssetRequests(page *rod.Page) {
	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if _, blocked := blockedResourceTypes[h.Request.Type()]; blocked {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		_ = h.LoadResponse(nil, true)
	})
	go router.Run()
}

// Close shuts down the shared browser and launcher.
func (p *PagePool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.browser != nil {
		_ = p.browser.Close()
	}
	p.launcher.Cleanup()
	return nil
}

const stealthPatchJS = `() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
	Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
	window.chrome = { runtime: {} };
}`

func systemChromePath() string {
	if p := os.Getenv("CHROME_BIN"); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	candidates := []string{
		"/usr/bin/chromium-browser", "/usr/bin/chromium",
		"/usr/bin/google-chrome", "/usr/bin/google-chrome-stable",
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}
