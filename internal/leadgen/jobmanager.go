package leadgen

import (
	"context"
	"fmt"
	"sync"

	"leadgen-pipeline/internal/logging"
	"leadgen-pipeline/internal/logging/types"
)

// JobManager enforces per-tenant exclusivity and launches the driver loop
// as a background goroutine (spec.md §4.1). It generalizes the teacher's
// TaskManagerImpl from "N workers pulling off a shared queue" to "at most
// one running job per tenant, launched immediately" since leadgen jobs are
// long-lived and self-paced rather than short queued tasks.
type JobManager struct {
	registry *registry
	sessions SessionStore
	sink     LeadSink
	search   Searcher
	fetcher  Fetcher
	emailVal *EmailValidator
	logger   types.Logger

	mu   sync.Mutex
	jobs map[string]*Job
}

// NewJobManager wires the collaborators a driver needs per job.
func NewJobManager(reg *registry, sessions SessionStore, sink LeadSink, search Searcher, fetcher Fetcher, emailVal *EmailValidator) *JobManager {
	return &JobManager{
		registry: reg,
		sessions: sessions,
		sink:     sink,
		search:   search,
		fetcher:  fetcher,
		emailVal: emailVal,
		logger:   logging.GetGlobalLogger(),
		jobs:     make(map[string]*Job),
	}
}

// Start validates cfg, generates queries, and launches the driver loop for
// tenantID in the background. It returns ErrJobAlreadyRunning if a job is
// already running for this tenant, or ErrNoQueries if the analyzer
// produced none. The driver goroutine is solely responsible for removing
// the tenant's entry from jobs on exit — that removal is the only way
// ErrJobAlreadyRunning clears.
func (m *JobManager) Start(ctx context.Context, tenantID string, cfg JobConfig, broadcaster Broadcaster) (sessionID string, err error) {
	cfg = cfg.WithDefaults()

	analyzer, err := m.registry.Get(cfg.UseCase)
	if err != nil {
		return "", err
	}

	queries, err := analyzer.GenerateQueries(ctx, cfg)
	if err != nil {
		return "", fmt.Errorf("generate queries: %w", err)
	}
	if len(queries) == 0 {
		return "", ErrNoQueries
	}

	m.mu.Lock()
	if _, running := m.jobs[tenantID]; running {
		m.mu.Unlock()
		return "", ErrJobAlreadyRunning
	}

	sessionID, err = m.sessions.Create(ctx, tenantID, cfg.ListID, cfg, queries)
	if err != nil {
		m.mu.Unlock()
		return "", fmt.Errorf("create session: %w", err)
	}

	job := newJob(tenantID, cfg.ListID, sessionID, cfg)
	jobCtx, cancel := context.WithCancel(context.Background())
	job.cancel = cancel
	m.jobs[tenantID] = job
	m.mu.Unlock()

	tracker := NewProgressTracker(tenantID, broadcaster)

	driver := &driver{
		job:      job,
		analyzer: analyzer,
		queries:  queries,
		search:   m.search,
		fetcher:  m.fetcher,
		sink:     m.sink,
		sessions: m.sessions,
		emailVal: m.emailVal,
		tracker:  tracker,
	}

	go func() {
		defer cancel()
		defer func() {
			m.mu.Lock()
			delete(m.jobs, tenantID)
			m.mu.Unlock()
		}()
		driver.run(jobCtx)
	}()

	return sessionID, nil
}

// Stop requests the running driver for tenantID to wind down: it sets the
// job's stop flag and cancels the job context, which aborts in-flight
// searches and fetches. Returns false if no job is running.
func (m *JobManager) Stop(tenantID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[tenantID]
	if !ok {
		return false
	}
	job.requestStop()
	return true
}

// Status reports whether a job is running for tenantID, and if so its
// session ID.
func (m *JobManager) Status(tenantID string) (running bool, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[tenantID]
	if !ok {
		return false, ""
	}
	return true, job.SessionID
}

// StopAll requests every running job to wind down, for process-signal
// shutdown (spec.md §6 "on SIGTERM/SIGINT the manager requests stop on all
// active jobs").
func (m *JobManager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range m.jobs {
		job.requestStop()
	}
}
