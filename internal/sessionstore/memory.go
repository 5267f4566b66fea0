// Package sessionstore implements leadgen.SessionStore: job-session metadata
// persisted outside the core (spec.md §6).
package sessionstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"leadgen-pipeline/internal/leadgen"
)

// sessionRecord is the full state kept for one job run.
type sessionRecord struct {
	TenantID  string
	ListID    string
	Config    leadgen.JobConfig
	Queries   []leadgen.QuerySpec
	Counters  leadgen.SessionCounters
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MemoryStore is an in-process SessionStore, the default when
// config.SessionStore.Backend is "memory".
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionRecord
	seq      int64
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*sessionRecord)}
}

func (s *MemoryStore) Create(ctx context.Context, tenantID, listID string, cfg leadgen.JobConfig, queries []leadgen.QuerySpec) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	sessionID := fmt.Sprintf("session-%d", s.seq)
	s.sessions[sessionID] = &sessionRecord{
		TenantID:  tenantID,
		ListID:    listID,
		Config:    cfg,
		Queries:   queries,
		Counters:  leadgen.SessionCounters{Status: "running"},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	return sessionID, nil
}

func (s *MemoryStore) Update(ctx context.Context, sessionID string, counters leadgen.SessionCounters) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		return fmt.Errorf("sessionstore: unknown session %q", sessionID)
	}
	rec.Counters = counters
	rec.UpdatedAt = time.Now()
	return nil
}

// Get returns the tenant, list and counters stored for a session.
func (s *MemoryStore) Get(sessionID string) (tenantID, listID string, counters leadgen.SessionCounters, found bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return "", "", leadgen.SessionCounters{}, false
	}
	return rec.TenantID, rec.ListID, rec.Counters, true
}
