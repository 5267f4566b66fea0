package leadgen

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeSectorProvider struct{}

func (fakeSectorProvider) Sectors(useCase string) []Sector {
	return []Sector{{Key: "it", Label: "IT", Queries: []string{"%s software company %s"}}}
}

type fakeSessionStore struct {
	mu      sync.Mutex
	created int
}

func (s *fakeSessionStore) Create(ctx context.Context, tenantID, listID string, cfg JobConfig, queries []QuerySpec) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created++
	return "session-1", nil
}

func (s *fakeSessionStore) Update(ctx context.Context, sessionID string, counters SessionCounters) error {
	return nil
}

type fakeSink struct{}

func (fakeSink) InsertDeduped(ctx context.Context, lead *Lead, tenantID, listID string) (InsertResult, error) {
	return InsertResult{Inserted: true, ID: "1"}, nil
}

// blockingSearcher blocks until release is closed, simulating a long-running
// query so the test can observe JobAlreadyRunning before the job finishes.
type blockingSearcher struct {
	release chan struct{}
}

func (s *blockingSearcher) Search(ctx context.Context, query string, maxResults int, usePuppeteer bool) SearchResult {
	<-s.release
	return SearchResult{URLs: nil}
}

type noopFetcher struct{}

func (noopFetcher) Fetch(ctx context.Context, siteURL string, analyzer Analyzer, cfg JobConfig) (Lead, AnalyzeOutput, error) {
	return Lead{}, AnalyzeOutput{}, nil
}

func TestJobManagerAlreadyRunningThenClearsOnExit(t *testing.T) {
	reg := NewAnalyzerRegistry(fakeSectorProvider{})
	sessions := &fakeSessionStore{}
	searcher := &blockingSearcher{release: make(chan struct{})}

	mgr := NewJobManager(reg, sessions, fakeSink{}, searcher, noopFetcher{}, nil)

	cfg := JobConfig{UseCase: "erp", SectorKeys: []string{"it"}, CountryKeys: []string{"nl"}, Concurrency: 1}

	if _, err := mgr.Start(context.Background(), "tenant-1", cfg, nil); err != nil {
		t.Fatalf("first start: %v", err)
	}

	if _, err := mgr.Start(context.Background(), "tenant-1", cfg, nil); err != ErrJobAlreadyRunning {
		t.Fatalf("expected ErrJobAlreadyRunning, got %v", err)
	}

	close(searcher.release)

	deadline := time.Now().Add(2 * time.Second)
	for {
		running, _ := mgr.Status("tenant-1")
		if !running {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("job never cleared after driver exit")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := mgr.Start(context.Background(), "tenant-1", cfg, nil); err != nil {
		t.Fatalf("third start after clear: %v", err)
	}
}

func TestJobManagerNoQueries(t *testing.T) {
	reg := NewAnalyzerRegistry(emptySectorProvider{})
	sessions := &fakeSessionStore{}
	mgr := NewJobManager(reg, sessions, fakeSink{}, &blockingSearcher{release: make(chan struct{})}, noopFetcher{}, nil)

	cfg := JobConfig{UseCase: "erp"}
	if _, err := mgr.Start(context.Background(), "tenant-2", cfg, nil); err != ErrNoQueries {
		t.Fatalf("expected ErrNoQueries, got %v", err)
	}
}

type emptySectorProvider struct{}

func (emptySectorProvider) Sectors(useCase string) []Sector { return nil }
