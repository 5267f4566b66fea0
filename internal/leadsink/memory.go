// Package leadsink implements leadgen.LeadSink, the persistence boundary
// spec.md §6 keeps external to the core.
package leadsink

import (
	"context"
	"fmt"
	"sync"

	"leadgen-pipeline/internal/leadgen"
)

// MemoryLeadSink is an in-process LeadSink enforcing uniqueness on
// (tenantID, normalized domain) via a nested map guarded by one mutex.
type MemoryLeadSink struct {
	mu    sync.Mutex
	seq   int64
	byKey map[string]map[string]leadgen.Lead // tenantID -> domain -> lead
}

// NewMemoryLeadSink builds an empty sink.
func NewMemoryLeadSink() *MemoryLeadSink {
	return &MemoryLeadSink{byKey: make(map[string]map[string]leadgen.Lead)}
}

// InsertDeduped stores lead if (tenantID, lead.Domain) hasn't been seen
// before for this tenant; otherwise returns {inserted:false, reason:"duplicate"}.
func (s *MemoryLeadSink) InsertDeduped(ctx context.Context, lead *leadgen.Lead, tenantID, listID string) (leadgen.InsertResult, error) {
	if lead.Domain == "" {
		return leadgen.InsertResult{Inserted: false, Reason: "invalid_domain"}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	domains, ok := s.byKey[tenantID]
	if !ok {
		domains = make(map[string]leadgen.Lead)
		s.byKey[tenantID] = domains
	}

	if _, dup := domains[lead.Domain]; dup {
		return leadgen.InsertResult{Inserted: false, Reason: "duplicate"}, nil
	}

	s.seq++
	domains[lead.Domain] = *lead
	return leadgen.InsertResult{Inserted: true, ID: fmt.Sprintf("lead-%d", s.seq)}, nil
}

// List returns a defensive copy of every lead stored for a tenant.
func (s *MemoryLeadSink) List(tenantID string) []leadgen.Lead {
	s.mu.Lock()
	defer s.mu.Unlock()

	domains := s.byKey[tenantID]
	out := make([]leadgen.Lead, 0, len(domains))
	for _, lead := range domains {
		out = append(out, lead)
	}
	return out
}
