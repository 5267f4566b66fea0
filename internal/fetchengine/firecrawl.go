package fetchengine

import (
	"context"
	"fmt"
	"time"

	"github.com/mendableai/firecrawl-go"

	"leadgen-pipeline/internal/logging"
	"leadgen-pipeline/internal/logging/types"
)

// FirecrawlEngine fetches rendered HTML through Firecrawl, for sites that
// block DirectEngine (Cloudflare, etc.) — grounded on the teacher's
// scraper/engines/firecrawl.FirecrawlScraper.scrapeContent retry ladder.
type FirecrawlEngine struct {
	app        *firecrawl.FirecrawlApp
	formats    []string
	maxRetries int
	logger     types.Logger
}

// NewFirecrawlEngine builds a FirecrawlEngine, or nil if the SDK client
// cannot be initialized (missing/invalid API URL).
func NewFirecrawlEngine(apiKey, apiURL string, formats []string, maxRetries int) *FirecrawlEngine {
	logger := logging.GetGlobalLogger()

	app, err := firecrawl.NewFirecrawlApp(apiKey, apiURL)
	if err != nil {
		logger.Error("failed to initialize firecrawl engine", map[string]interface{}{"error": err.Error()})
		return nil
	}

	return &FirecrawlEngine{app: app, formats: formats, maxRetries: maxRetries, logger: logger}
}

func (e *FirecrawlEngine) Name() string { return "firecrawl" }

func (e *FirecrawlEngine) Fetch(ctx context.Context, url string) (string, error) {
	params := &firecrawl.ScrapeParams{Formats: e.formats}

	var (
		result *firecrawl.FirecrawlDocument
		err    error
	)
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		result, err = e.app.ScrapeURL(url, params)
		if err == nil {
			break
		}
		e.logger.Debug("firecrawl fetch attempt failed", map[string]interface{}{
			"attempt": attempt, "url": url, "error": err.Error(),
		})
		if attempt < e.maxRetries {
			time.Sleep(time.Duration(attempt) * time.Second)
		}
	}
	if err != nil {
		return "", fmt.Errorf("firecrawl fetch failed after %d attempts: %w", e.maxRetries, err)
	}
	if result == nil {
		return "", fmt.Errorf("firecrawl returned no result")
	}

	if result.HTML != "" {
		return result.HTML, nil
	}
	if result.Markdown != "" {
		return result.Markdown, nil
	}
	return "", fmt.Errorf("firecrawl response had no content")
}
