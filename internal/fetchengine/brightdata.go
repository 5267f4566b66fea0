package fetchengine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"leadgen-pipeline/internal/logging"
	"leadgen-pipeline/internal/logging/types"
)

// BrightDataEngine fetches pages through Bright Data's Web Unlocker,
// useful for geo-sensitive .nl/.de/.be targets that rate-limit by source
// IP — grounded on the teacher's scraper/engines/brightdata.BrightDataScraper
// request shape, repointed at the Web Unlocker proxy endpoint instead of
// the LinkedIn dataset API.
type BrightDataEngine struct {
	client     *http.Client
	baseURL    string
	zone       string
	apiKey     string
	maxRetries int
	logger     types.Logger
}

// NewBrightDataEngine builds a BrightDataEngine.
func NewBrightDataEngine(baseURL, zone, apiKey string, timeout time.Duration, maxRetries int) *BrightDataEngine {
	return &BrightDataEngine{
		client:     &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		zone:       zone,
		apiKey:     apiKey,
		maxRetries: maxRetries,
		logger:     logging.GetGlobalLogger(),
	}
}

func (e *BrightDataEngine) Name() string { return "brightdata" }

func (e *BrightDataEngine) Fetch(ctx context.Context, url string) (string, error) {
	endpoint := fmt.Sprintf("%s/request?zone=%s&url=%s&format=raw", e.baseURL, e.zone, url)

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(attempt) * time.Second)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return "", fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+e.apiKey)

		resp, err := e.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request failed: %w", err)
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read body: %w", err)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("brightdata returned status %d", resp.StatusCode)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				break
			}
			continue
		}

		return string(body), nil
	}

	e.logger.Warn("brightdata fetch exhausted retries", map[string]interface{}{"url": url, "error": lastErr.Error()})
	return "", fmt.Errorf("brightdata fetch failed after %d attempts: %w", e.maxRetries+1, lastErr)
}
