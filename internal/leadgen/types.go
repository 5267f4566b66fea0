package leadgen

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// QuerySpec is a concrete search-engine query plus its sector/country
// provenance. Produced by Analyzer.GenerateQueries.
type QuerySpec struct {
	Query         string `json:"query"`
	SectorKey     string `json:"sectorKey"`
	SectorLabel   string `json:"sectorLabel"`
	CountryKey    string `json:"countryKey"`
	CountryLabel  string `json:"countryLabel"`
}

// JobConfig is the immutable set of options a tenant supplies to start a job.
type JobConfig struct {
	UseCase         string   `json:"useCase" validate:"required"`
	TargetLeads     int      `json:"targetLeads" validate:"omitempty,min=1"`
	SectorKeys      []string `json:"sectorKeys"`
	CountryKeys     []string `json:"countryKeys"`
	MinScore        int      `json:"minScore" validate:"omitempty,min=0,max=100"`
	EmailValidation bool     `json:"emailValidation"`
	DeepValidation  bool     `json:"deepValidation"`
	Concurrency     int      `json:"concurrency" validate:"omitempty,min=1,max=64"`
	UsePuppeteer    bool     `json:"usePuppeteer"`
	FetchEngine     string   `json:"fetchEngine"`
	ListID          string   `json:"listId"`
}

// WithDefaults returns a copy of cfg with spec-mandated defaults applied to
// its zero-valued numeric and string fields. EmailValidation and
// UsePuppeteer are plain bools and are left as given; StartJobHandler
// presets both to true before binding a request body.
func (c JobConfig) WithDefaults() JobConfig {
	if c.TargetLeads == 0 {
		c.TargetLeads = 1000
	}
	if c.MinScore == 0 {
		c.MinScore = 50
	}
	if c.Concurrency == 0 {
		c.Concurrency = 5
	}
	if c.FetchEngine == "" {
		c.FetchEngine = "direct"
	}
	return c
}

// counters holds the mutable, atomically-updated tallies for a running job.
type counters struct {
	leadsFound        int64
	duplicatesSkipped int64
	errorsCount       int64
}

func (c *counters) addLeadFound()        { atomic.AddInt64(&c.leadsFound, 1) }
func (c *counters) addDuplicateSkipped() { atomic.AddInt64(&c.duplicatesSkipped, 1) }
func (c *counters) addError()            { atomic.AddInt64(&c.errorsCount, 1) }

func (c *counters) snapshot() SessionCounters {
	return SessionCounters{
		LeadsFound:        int(atomic.LoadInt64(&c.leadsFound)),
		DuplicatesSkipped: int(atomic.LoadInt64(&c.duplicatesSkipped)),
		ErrorsCount:       int(atomic.LoadInt64(&c.errorsCount)),
	}
}

// Job is the per-tenant handle held by JobManager while a driver runs.
// After creation, the driver and its worker goroutines update the counters
// and the processed set, and JobManager.Stop sets the stop flag.
type Job struct {
	TenantID  string
	ListID    string
	SessionID string
	Config    JobConfig

	stopRequested int32 // atomic bool
	cancel        context.CancelFunc
	counters      counters

	// processed is the per-job processed set (spec.md §4.4 step 1 /
	// §4.6): a domain is recorded here before work starts so retries across
	// parallel queries never duplicate a fetch, and concurrent cross-tenant
	// jobs cannot hide each other's leads (DESIGN.md open-question
	// decision #2 — kept per job, not in the global Cache).
	processedMu sync.Mutex
	processed   map[string]struct{}

	startedAt time.Time
}

func newJob(tenantID, listID, sessionID string, cfg JobConfig) *Job {
	return &Job{
		TenantID:  tenantID,
		ListID:    listID,
		SessionID: sessionID,
		Config:    cfg,
		processed: make(map[string]struct{}),
		startedAt: time.Now(),
	}
}

// requestStop marks the job stopped and cancels the context threaded down
// through the driver, search adapter, and site fetcher, so every
// suspension point on that context unblocks immediately.
func (j *Job) requestStop() {
	atomic.StoreInt32(&j.stopRequested, 1)
	if j.cancel != nil {
		j.cancel()
	}
}

func (j *Job) isStopRequested() bool {
	return atomic.LoadInt32(&j.stopRequested) == 1
}

// markProcessed returns true if domain was not already processed in this
// job, recording it atomically with the check.
func (j *Job) markProcessed(domain string) bool {
	j.processedMu.Lock()
	defer j.processedMu.Unlock()
	if _, ok := j.processed[domain]; ok {
		return false
	}
	j.processed[domain] = struct{}{}
	return true
}

// Lead is a scored company record ready for persistence.
type Lead struct {
	CompanyName           string                 `json:"companyName"`
	Website               string                 `json:"website"`
	Domain                string                 `json:"domain"`
	Email                 string                 `json:"email,omitempty"`
	AllEmails             []string               `json:"allEmails,omitempty"`
	Phone                 string                 `json:"phone,omitempty"`
	Address               string                 `json:"address,omitempty"`
	Description           string                 `json:"description,omitempty"`
	Score                 int                    `json:"score"`
	AnalysisData          map[string]interface{} `json:"analysisData"`
	EmailValid            bool                   `json:"emailValid"`
	EmailValidationScore  int                    `json:"emailValidationScore"`
	EmailValidationReason string                 `json:"emailValidationReason"`
	FoundAt               time.Time              `json:"foundAt"`
}

// SearchResult is returned by the SearchAdapter for a single query.
type SearchResult struct {
	URLs    []string
	Blocked bool
	Source  string // "browser" | "http"
	Error   error
}

// CacheEntry is a TTL-bound value held by the process cache.
type CacheEntry struct {
	Value     interface{}
	ExpiresAt time.Time
}

func (e CacheEntry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// ProgressSnapshot is a defensive copy of ProgressTracker's mutable state
// plus its derived fields, serializable for the Broadcaster.
type ProgressSnapshot struct {
	Status           string    `json:"status"`
	StartedAt        time.Time `json:"startedAt"`
	TotalQueries     int       `json:"totalQueries"`
	ProcessedQueries int       `json:"processedQueries"`
	TotalDomains     int       `json:"totalDomains"`
	ProcessedDomains int       `json:"processedDomains"`
	LeadsFound       int       `json:"leadsFound"`
	Errors           int       `json:"errors"`
	CurrentSector    string    `json:"currentSector"`
	CurrentCountry   string    `json:"currentCountry"`
	CurrentDomain    string    `json:"currentDomain"`

	ProgressPct    int     `json:"progressPct"`
	LeadsPerMinute int     `json:"leadsPerMinute"`
	ETASeconds     *int    `json:"etaSeconds"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
}
