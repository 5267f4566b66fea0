package leadgen

import (
	"math"
	"sync"
	"time"
)

// LogLevel for a progress log entry.
type LogLevel string

const (
	LogInfo    LogLevel = "info"
	LogWarn    LogLevel = "warn"
	LogError   LogLevel = "error"
	LogSuccess LogLevel = "success"
)

// LogEntry is one entry in the tracker's bounded ring buffer.
type LogEntry struct {
	Timestamp time.Time `json:"ts"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
}

const maxLogEntries = 500

// ProgressTracker holds live counters for a single job run and emits a
// `progress` event (via Broadcaster) after every mutation (spec.md §4.7).
// It generalizes the teacher's TaskCompletionLogger from "one terminal
// event per task" to "live counters and a derived-fields snapshot on
// every change".
type ProgressTracker struct {
	tenantID    string
	broadcaster Broadcaster

	mu sync.Mutex

	status           string
	startedAt        time.Time
	totalQueries     int
	processedQueries int
	totalDomains     int
	processedDomains int
	leadsFound       int
	errorsCount      int
	currentSector    string
	currentCountry   string
	currentDomain    string

	leadTimestamps []time.Time
	log            []LogEntry
}

// NewProgressTracker builds a tracker bound to one tenant/broadcaster pair.
func NewProgressTracker(tenantID string, broadcaster Broadcaster) *ProgressTracker {
	return &ProgressTracker{
		tenantID:    tenantID,
		broadcaster: broadcaster,
		status:      "idle",
	}
}

// Start transitions the tracker to running and records totalQueries.
func (t *ProgressTracker) Start(totalQueries int) {
	t.mu.Lock()
	t.status = "running"
	t.startedAt = time.Now()
	t.totalQueries = totalQueries
	t.mu.Unlock()
	t.emitUpdate()
}

func (t *ProgressTracker) SetStatus(status string) {
	t.mu.Lock()
	t.status = status
	t.mu.Unlock()
	t.emitUpdate()
}

func (t *ProgressTracker) AddDomains(n int) {
	t.mu.Lock()
	t.totalDomains += n
	t.mu.Unlock()
	t.emitUpdate()
}

func (t *ProgressTracker) SetCurrent(sector, country, domain string) {
	t.mu.Lock()
	if sector != "" {
		t.currentSector = sector
	}
	if country != "" {
		t.currentCountry = country
	}
	if domain != "" {
		t.currentDomain = domain
	}
	t.mu.Unlock()
	t.emitUpdate()
}

func (t *ProgressTracker) CompletedQuery() {
	t.mu.Lock()
	t.processedQueries++
	t.mu.Unlock()
	t.emitUpdate()
}

func (t *ProgressTracker) CompletedDomain(isLead bool) {
	now := time.Now()
	t.mu.Lock()
	t.processedDomains++
	if isLead {
		t.leadsFound++
		t.leadTimestamps = append(t.leadTimestamps, now)
	}
	t.mu.Unlock()
	t.emitUpdate()
}

func (t *ProgressTracker) RecordError() {
	t.mu.Lock()
	t.errorsCount++
	t.mu.Unlock()
	t.emitUpdate()
}

// Log appends a bounded, drop-oldest log entry and emits both a `log` event
// and a `progress` event (spec.md §4.7).
func (t *ProgressTracker) Log(level LogLevel, message string) {
	entry := LogEntry{Timestamp: time.Now(), Level: level, Message: message}

	t.mu.Lock()
	t.log = append(t.log, entry)
	if len(t.log) > maxLogEntries {
		t.log = t.log[len(t.log)-maxLogEntries:]
	}
	t.mu.Unlock()

	if t.broadcaster != nil {
		t.broadcaster.Broadcast(t.tenantID, Event{Type: EventLog, Payload: entry})
	}
	t.emitUpdate()
}

// Snapshot returns a defensive copy of state plus derived fields.
func (t *ProgressTracker) Snapshot() ProgressSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *ProgressTracker) snapshotLocked() ProgressSnapshot {
	now := time.Now()

	progressPct := 0
	if t.totalDomains > 0 {
		progressPct = int(math.Round(float64(t.processedDomains) / float64(t.totalDomains) * 100))
		if progressPct > 100 {
			progressPct = 100
		}
		if progressPct < 0 {
			progressPct = 0
		}
	}

	windowStart := now.Add(-60 * time.Second)
	leadsPerMinute := 0
	for _, ts := range t.leadTimestamps {
		if ts.After(windowStart) {
			leadsPerMinute++
		}
	}

	elapsed := 0.0
	if !t.startedAt.IsZero() {
		elapsed = now.Sub(t.startedAt).Seconds()
	}

	var eta *int
	if elapsed > 0 && t.processedDomains > 0 {
		rate := float64(t.processedDomains) / elapsed
		if rate > 0 {
			remaining := t.totalDomains - t.processedDomains
			if remaining < 0 {
				remaining = 0
			}
			v := int(math.Round(float64(remaining) / rate))
			eta = &v
		}
	}

	return ProgressSnapshot{
		Status:           t.status,
		StartedAt:        t.startedAt,
		TotalQueries:     t.totalQueries,
		ProcessedQueries: t.processedQueries,
		TotalDomains:     t.totalDomains,
		ProcessedDomains: t.processedDomains,
		LeadsFound:       t.leadsFound,
		Errors:           t.errorsCount,
		CurrentSector:    t.currentSector,
		CurrentCountry:   t.currentCountry,
		CurrentDomain:    t.currentDomain,
		ProgressPct:      progressPct,
		LeadsPerMinute:   leadsPerMinute,
		ETASeconds:       eta,
		ElapsedSeconds:   elapsed,
	}
}

// Broadcast sends a driver-owned event (job_started, query_start,
// domains_found, lead, job_error, job_done) straight through to the
// broadcaster, bypassing the tracker's own counters/log events.
func (t *ProgressTracker) Broadcast(eventType EventType, payload ...interface{}) {
	if t.broadcaster == nil {
		return
	}
	var p interface{}
	if len(payload) > 0 {
		p = payload[0]
	}
	t.broadcaster.Broadcast(t.tenantID, Event{Type: eventType, Payload: p})
}

func (t *ProgressTracker) emitUpdate() {
	if t.broadcaster == nil {
		return
	}
	snap := t.Snapshot()
	t.broadcaster.Broadcast(t.tenantID, Event{Type: EventProgress, Payload: snap})
}
