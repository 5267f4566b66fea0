package fetchengine

import (
	"context"
	"fmt"

	"leadgen-pipeline/internal/config"
	"leadgen-pipeline/internal/logging"
)

// NewEngine builds the named fetch engine (mirrors the teacher's
// scraper.ScraperFactory switch in internal/scraper/factory.go).
func NewEngine(name string, cfg *config.Config) (Engine, error) {
	switch name {
	case "", "direct":
		return NewDirectEngine(cfg.Scraper.RequestTimeout, cfg.Scraper.UserAgent), nil
	case "firecrawl":
		engine := NewFirecrawlEngine(cfg.Firecrawl.APIKey, cfg.Firecrawl.APIURL, cfg.Firecrawl.Formats, cfg.Firecrawl.MaxRetries)
		if engine == nil {
			return nil, fmt.Errorf("firecrawl engine failed to initialize")
		}
		return engine, nil
	case "brightdata":
		return NewBrightDataEngine(cfg.BrightData.BaseURL, cfg.BrightData.Zone, cfg.BrightData.APIKey, cfg.BrightData.Timeout, cfg.BrightData.MaxRetries), nil
	default:
		return nil, fmt.Errorf("unknown fetch engine %q", name)
	}
}

// Chain fetches a URL trying each engine in order, falling back on
// transport error and logging each hop — mirrors the teacher's worker
// retry ladder in workers.Worker.scrapeJob.
type Chain struct {
	engines []Engine
}

// NewChain builds the direct -> firecrawl -> brightdata fallback ladder
// from config (spec.md §4.4's "Domain stack" addition), trying
// preferredEngine first when it is set to one other than "direct".
// Engines that fail to initialize (missing credentials) are skipped.
func NewChain(cfg *config.Config, preferredEngine string) *Chain {
	names := []string{"direct", "firecrawl", "brightdata"}
	if preferredEngine != "" && preferredEngine != "direct" {
		names = append([]string{preferredEngine}, names...)
	}

	seen := map[string]struct{}{}
	var engines []Engine
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		engine, err := NewEngine(name, cfg)
		if err != nil {
			continue
		}
		engines = append(engines, engine)
	}
	return &Chain{engines: engines}
}

// Fetch tries each engine in order, returning the first success.
func (c *Chain) Fetch(ctx context.Context, url string) (string, error) {
	logger := logging.GetGlobalLogger()

	var lastErr error
	for _, engine := range c.engines {
		body, err := engine.Fetch(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		logger.Debug("fetch engine hop failed, trying next", map[string]interface{}{
			"engine": engine.Name(), "url": url, "error": err.Error(),
		})
	}
	if lastErr == nil {
		return "", fmt.Errorf("no fetch engines configured")
	}
	return "", fmt.Errorf("all fetch engines failed: %w", lastErr)
}
