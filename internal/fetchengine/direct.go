package fetchengine

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DirectEngine fetches pages with a plain net/http client (spec.md §4.4
// step 2's redirect/timeout policy): bounded redirects, no cookie jar.
type DirectEngine struct {
	client    *http.Client
	userAgent string
}

// NewDirectEngine builds a DirectEngine with the given timeout and
// request User-Agent.
func NewDirectEngine(timeout time.Duration, userAgent string) *DirectEngine {
	return &DirectEngine{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after 5 redirects")
				}
				return nil
			},
		},
		userAgent: userAgent,
	}
}

func (e *DirectEngine) Name() string { return "direct" }

func (e *DirectEngine) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("direct fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("direct fetch: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}
