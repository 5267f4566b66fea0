package leadgen

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestConcurrencyLimiterBoundsParallelism(t *testing.T) {
	limiter := NewConcurrencyLimiter(2)
	var running, maxSeen int32
	done := make(chan struct{}, 5)

	for i := 0; i < 5; i++ {
		go func() {
			_ = limiter.Run(context.Background(), func(ctx context.Context) {
				cur := atomic.AddInt32(&running, 1)
				for {
					m := atomic.LoadInt32(&maxSeen)
					if cur <= m || atomic.CompareAndSwapInt32(&maxSeen, m, cur) {
						break
					}
				}
				time.Sleep(30 * time.Millisecond)
				atomic.AddInt32(&running, -1)
			})
			done <- struct{}{}
		}()
	}

	for i := 0; i < 5; i++ {
		<-done
	}

	if maxSeen > 2 {
		t.Fatalf("expected at most 2 concurrent tasks, saw %d", maxSeen)
	}
}

func TestConcurrencyLimiterFailingTaskDoesNotConsumeSlot(t *testing.T) {
	limiter := NewConcurrencyLimiter(1)
	ctx := context.Background()

	err := limiter.Run(ctx, func(ctx context.Context) {
		panic("boom")
	})
	if err == nil {
		t.Fatalf("expected panic to surface as an error")
	}

	// The slot must be free again immediately after the panicking task.
	ran := false
	if err := limiter.Run(ctx, func(ctx context.Context) { ran = true }); err != nil {
		t.Fatalf("unexpected error after panicking task released its slot: %v", err)
	}
	if !ran {
		t.Fatalf("expected follow-up task to run")
	}
}

func TestConcurrencyLimiterCancelledWaiterDoesNotLeakCapacity(t *testing.T) {
	limiter := NewConcurrencyLimiter(1)
	blockRelease := make(chan struct{})

	go func() {
		_ = limiter.Run(context.Background(), func(ctx context.Context) {
			<-blockRelease
		})
	}()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := limiter.Run(ctx, func(ctx context.Context) {})
	if err == nil {
		t.Fatalf("expected context deadline error while slot held")
	}

	close(blockRelease)

	ok := make(chan struct{})
	go func() {
		_ = limiter.Run(context.Background(), func(ctx context.Context) {})
		close(ok)
	}()

	select {
	case <-ok:
	case <-time.After(time.Second):
		t.Fatalf("limiter deadlocked after a cancelled waiter")
	}
}
