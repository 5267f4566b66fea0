// Package fetchengine provides pluggable homepage/contact-page fetch
// backends consumed by the site fetcher (spec.md §4.4 step 2). The search
// adapter's HTTP fallback does not use them.
package fetchengine

import "context"

// Engine fetches a URL and returns its raw body. Implementations never
// interpret the body; extraction lives in internal/leadgen.
type Engine interface {
	// Fetch returns the raw response body for url.
	Fetch(ctx context.Context, url string) (body string, err error)

	// Name identifies the engine for logging and fallback-chain reporting.
	Name() string
}
