package leadgen

import "testing"

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(tenantID string, event Event) {}

func TestProgressTrackerBounds(t *testing.T) {
	tracker := NewProgressTracker("tenant-1", noopBroadcaster{})
	tracker.Start(3)
	tracker.AddDomains(10)

	for i := 0; i < 10; i++ {
		tracker.CompletedDomain(i%3 == 0)
	}

	snap := tracker.Snapshot()
	if snap.ProgressPct < 0 || snap.ProgressPct > 100 {
		t.Fatalf("progressPct out of bounds: %d", snap.ProgressPct)
	}
	if snap.ProcessedDomains > snap.TotalDomains {
		t.Fatalf("processedDomains (%d) exceeds totalDomains (%d)", snap.ProcessedDomains, snap.TotalDomains)
	}
	if snap.LeadsFound != 4 {
		t.Fatalf("expected 4 leads found, got %d", snap.LeadsFound)
	}
}

func TestProgressTrackerLogRingDropsOldest(t *testing.T) {
	tracker := NewProgressTracker("tenant-1", noopBroadcaster{})
	for i := 0; i < maxLogEntries+10; i++ {
		tracker.Log(LogInfo, "entry")
	}
	if len(tracker.log) != maxLogEntries {
		t.Fatalf("expected log ring capped at %d, got %d", maxLogEntries, len(tracker.log))
	}
}
