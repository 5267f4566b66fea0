package leadgen

import "context"

// InsertResult is returned by LeadSink.InsertDeduped.
type InsertResult struct {
	Inserted bool
	ID       string
	Reason   string // "invalid_domain" | "duplicate" when Inserted is false
}

// Searcher runs one query and returns candidate URLs, satisfied by
// *SearchAdapter. Narrowed to an interface so the driver can be exercised
// against a fake in tests without a real browser or network.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int, usePuppeteer bool) SearchResult
}

// Fetcher visits a candidate site and returns a scored Lead, satisfied by
// *SiteFetcher.
type Fetcher interface {
	Fetch(ctx context.Context, siteURL string, analyzer Analyzer, cfg JobConfig) (Lead, AnalyzeOutput, error)
}

// LeadSink persists leads. Implementations enforce uniqueness on
// (tenantID, normalized domain) and must treat each insert as its own
// transaction — the driver never retries a failed insert.
type LeadSink interface {
	InsertDeduped(ctx context.Context, lead *Lead, tenantID, listID string) (InsertResult, error)
}

// SessionStore persists job session metadata external to the core.
type SessionStore interface {
	Create(ctx context.Context, tenantID, listID string, cfg JobConfig, queries []QuerySpec) (sessionID string, err error)
	Update(ctx context.Context, sessionID string, counters SessionCounters) error
}

// SessionCounters mirrors the mutable fields a SessionStore tracks per run.
type SessionCounters struct {
	LeadsFound        int
	DuplicatesSkipped int
	ErrorsCount       int
	Status            string // running | done | stopped | error
}

// Broadcaster delivers progress events to subscribers. Broadcast is
// fire-and-forget: the core never blocks on, or reacts to, delivery failure.
type Broadcaster interface {
	Broadcast(tenantID string, event Event)
}

// Event is one entry in the driver/tracker event stream; Payload shape
// depends on Type (see the EventType constants).
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
}

type EventType string

const (
	EventJobStarted     EventType = "job_started"
	EventQueryStart     EventType = "query_start"
	EventDomainsFound   EventType = "domains_found"
	EventLead           EventType = "lead"
	EventProgress       EventType = "progress"
	EventSearchProgress EventType = "search_progress"
	EventLog            EventType = "log"
	EventJobError       EventType = "job_error"
	EventJobDone        EventType = "job_done"
)
