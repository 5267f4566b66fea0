package leadgen

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"golang.org/x/time/rate"

	"leadgen-pipeline/internal/config"
	"leadgen-pipeline/internal/leadgen/captcha"
	"leadgen-pipeline/internal/logging"
	"leadgen-pipeline/internal/logging/types"
)

// minQueryInterval paces outbound search requests regardless of backoff
// state, so a burst of fast queries never itself triggers a block.
const minQueryInterval = 2 * time.Second

// resultSelectors is the CSS selector cascade tried in order when waiting
// for DuckDuckGo results to render (spec.md §4.3 step 4).
var resultSelectors = []string{
	"[data-testid=result-title-a]",
	"article[data-testid=result]",
	".react-results--main",
	"#links .result__a",
	".result__a",
	"#links",
	"main",
}

var blockSignals = []string{
	"captcha", "unusual traffic", "blocked", "access denied",
	"too many requests", "robot", "automated", "bot check",
}

// SearchAdapter runs DuckDuckGo queries through a page pool, falling back
// to a plain HTTP POST against the HTML endpoint (spec.md §4.3).
type SearchAdapter struct {
	cfg        *config.Config
	pages      *PagePool
	httpClient *http.Client
	logger     types.Logger
	solver     captcha.Solver
	pacer      *rate.Limiter

	consecutiveBlocks int
	delay             time.Duration
}

// NewSearchAdapter builds a SearchAdapter. pages may be nil, in which case
// every search goes through the HTTP fallback regardless of usePuppeteer.
// solver may be nil to disable the CAPTCHA-assisted unblock step.
func NewSearchAdapter(cfg *config.Config, pages *PagePool, solver captcha.Solver) *SearchAdapter {
	return &SearchAdapter{
		cfg:        cfg,
		pages:      pages,
		httpClient: &http.Client{Timeout: cfg.Search.RequestTimeout},
		logger:     logging.GetGlobalLogger(),
		solver:     solver,
		pacer:      rate.NewLimiter(rate.Every(minQueryInterval), 1),
		delay:      cfg.Search.InitialBackoff,
	}
}

// Search runs one query and returns candidate URLs. usePuppeteer selects
// the browser path; a browser error or usePuppeteer=false falls through to
// the HTTP endpoint directly (DESIGN.md open-question decision #1 — a
// successful-but-empty browser search does NOT fall through).
func (s *SearchAdapter) Search(ctx context.Context, query string, maxResults int, usePuppeteer bool) SearchResult {
	if err := s.pacer.Wait(ctx); err != nil {
		return SearchResult{Error: fmt.Errorf("search pacing: %w", err)}
	}

	if usePuppeteer && s.pages != nil {
		result := s.searchBrowser(ctx, query, maxResults, 0)
		if result.Error == nil {
			return result
		}
		s.logger.Debug("browser search failed, falling back to http", map[string]interface{}{"error": result.Error.Error()})
	}
	return s.searchHTTP(ctx, query, maxResults)
}

func (s *SearchAdapter) searchBrowser(ctx context.Context, query string, maxResults, retry int) SearchResult {
	pooled, err := s.pages.Acquire(ctx)
	if err != nil {
		return SearchResult{Error: fmt.Errorf("acquire page: %w", err)}
	}
	defer pooled.Release()

	navURL := fmt.Sprintf("https://duckduckgo.com/?q=%s&kl=nl-nl&ia=web", url.QueryEscape(query))

	navCtx, cancel := context.WithTimeout(ctx, 25*time.Second)
	defer cancel()

	if err := navigate(navCtx, pooled.Page, navURL); err != nil {
		return SearchResult{Error: fmt.Errorf("navigate: %w", err)}
	}

	title, body := pageTextSample(pooled.Page)
	if isBlocked(title, body) {
		return s.handleBlock(ctx, pooled.Page, body, query, maxResults, retry)
	}

	hrefs, ok := waitForResults(ctx, pooled.Page)
	if !ok {
		return SearchResult{URLs: nil, Source: "browser"}
	}

	s.consecutiveBlocks = 0
	s.delay = decayDuration(s.delay, 0.9, 1500*time.Millisecond)

	urls := normalizeSearchResults(hrefs, maxResults)

	jitter := time.Duration(rand.Intn(500)) * time.Millisecond
	select {
	case <-time.After(s.delay + jitter):
	case <-ctx.Done():
	}

	return SearchResult{URLs: urls, Source: "browser"}
}

func (s *SearchAdapter) handleBlock(ctx context.Context, page *rod.Page, body, query string, maxResults, retry int) SearchResult {
	s.consecutiveBlocks++
	s.delay *= 2
	if s.delay > s.cfg.Search.MaxBackoff {
		s.delay = s.cfg.Search.MaxBackoff
	}

	if s.consecutiveBlocks == 2 && s.solver != nil {
		s.tryUnblock(ctx, page, body)
	}

	if retry >= 2 {
		return SearchResult{URLs: nil, Blocked: true, Source: "browser"}
	}

	sleep := time.Duration(8000+retry*12000) * time.Millisecond
	select {
	case <-time.After(sleep):
	case <-ctx.Done():
		return SearchResult{Error: ctx.Err()}
	}

	return s.searchBrowser(ctx, query, maxResults, retry+1)
}

// tryUnblock makes a best-effort attempt to solve a CAPTCHA challenge on
// the given page after the second consecutive block. It does not retry
// navigation itself; the caller's normal retry loop re-navigates on a
// fresh page regardless of outcome.
func (s *SearchAdapter) tryUnblock(ctx context.Context, page *rod.Page, body string) {
	found, key := captcha.Detect(body)
	if !found {
		return
	}

	pageURL := ""
	_ = rod.Try(func() { pageURL = page.MustInfo().URL })

	var err error
	if strings.HasPrefix(key, "turnstile:") {
		_, err = s.solver.SolveTurnstile(ctx, strings.TrimPrefix(key, "turnstile:"), pageURL)
	} else if key != "cloudflare" {
		_, err = s.solver.SolveRecaptcha(ctx, key, pageURL)
	} else {
		return
	}

	if err != nil {
		s.logger.Debug("captcha-assisted unblock failed", map[string]interface{}{"error": err.Error()})
	} else {
		s.logger.Info("captcha-assisted unblock solved a challenge", map[string]interface{}{"page_url": pageURL})
	}
}

// searchHTTP POSTs to DuckDuckGo's HTML endpoint as a fallback.
func (s *SearchAdapter) searchHTTP(ctx context.Context, query string, maxResults int) SearchResult {
	form := url.Values{"q": {query}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://html.duckduckgo.com/html/", strings.NewReader(form.Encode()))
	if err != nil {
		return SearchResult{Error: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", randomUserAgent())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return SearchResult{Error: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		select {
		case <-time.After(30 * time.Second):
		case <-ctx.Done():
		}
		return SearchResult{URLs: nil, Source: "http"}
	}
	if resp.StatusCode >= 400 {
		return SearchResult{Error: fmt.Errorf("http fallback: status %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return SearchResult{Error: fmt.Errorf("parse html results: %w", err)}
	}

	var hrefs []string
	doc.Find("a.result__a").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})

	return SearchResult{URLs: normalizeSearchResults(hrefs, maxResults), Source: "http"}
}

func navigate(ctx context.Context, page *rod.Page, navURL string) error {
	return rod.Try(func() {
		page.Context(ctx).MustNavigate(navURL).MustWaitLoad()
	})
}

// pageTextSample returns the page title and the first 1000 characters of
// body text for block-signal detection.
func pageTextSample(page *rod.Page) (title, body string) {
	_ = rod.Try(func() {
		title = page.MustInfo().Title
		text := page.MustElement("body").MustText()
		if len(text) > 1000 {
			text = text[:1000]
		}
		body = text
	})
	return title, body
}

func isBlocked(title, body string) bool {
	combined := strings.ToLower(title + " " + body)
	for _, signal := range blockSignals {
		if strings.Contains(combined, signal) {
			return true
		}
	}
	return false
}

// waitForResults tries each selector in resultSelectors with a 4s timeout;
// if none match, scrolls and retries once before giving up.
func waitForResults(ctx context.Context, page *rod.Page) ([]string, bool) {
	if hrefs, ok := tryResultSelectors(ctx, page); ok {
		return hrefs, true
	}

	_ = rod.Try(func() {
		page.Mouse.MustScroll(0, 500)
	})
	select {
	case <-time.After(800 * time.Millisecond):
	case <-ctx.Done():
		return nil, false
	}

	return tryResultSelectors(ctx, page)
}

func tryResultSelectors(ctx context.Context, page *rod.Page) ([]string, bool) {
	for _, selector := range resultSelectors {
		selCtx, cancel := context.WithTimeout(ctx, 4*time.Second)
		var hrefs []string
		err := rod.Try(func() {
			elements := page.Context(selCtx).MustElements(selector)
			for _, el := range elements {
				if href, err := el.Attribute("href"); err == nil && href != nil {
					hrefs = append(hrefs, *href)
				}
			}
		})
		cancel()
		if err == nil && len(hrefs) > 0 {
			return hrefs, true
		}
	}

	var fallback []string
	_ = rod.Try(func() {
		elements := page.MustElements("a[href]")
		for _, el := range elements {
			if href, err := el.Attribute("href"); err == nil && href != nil && strings.HasPrefix(*href, "http") {
				fallback = append(fallback, *href)
			}
		}
	})
	return fallback, len(fallback) > 0
}

// normalizeSearchResults decodes DuckDuckGo's uddg redirect, drops
// non-http(s)/search-engine/noise hosts, dedupes by domain, and caps the
// result count (spec.md §4.3 step 6).
func normalizeSearchResults(hrefs []string, maxResults int) []string {
	seen := map[string]struct{}{}
	var out []string

	for _, href := range hrefs {
		target := decodeRedirect(href)
		if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
			continue
		}

		domain := normalizeDomainOrEmpty(target)
		if domain == "" || isSearchEngineHost(domain) || isNoiseDomain(domain) {
			continue
		}
		if _, dup := seen[domain]; dup {
			continue
		}
		seen[domain] = struct{}{}
		out = append(out, target)
		if len(out) >= maxResults {
			break
		}
	}
	return out
}

// decodeRedirect extracts the uddg= query parameter from a DuckDuckGo
// result link, or returns href unchanged if absent.
func decodeRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if uddg := u.Query().Get("uddg"); uddg != "" {
		if decoded, err := url.QueryUnescape(uddg); err == nil {
			return decoded
		}
	}
	return href
}

func decayDuration(d time.Duration, factor float64, floor time.Duration) time.Duration {
	decayed := time.Duration(float64(d) * factor)
	if decayed < floor {
		return floor
	}
	return decayed
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

func randomUserAgent() string {
	return userAgents[rand.Intn(len(userAgents))]
}
