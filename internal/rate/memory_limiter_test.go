package rate_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/oscarho2/giglink-identity/internal/cache/memory"
	"github.com/oscarho2/giglink-identity/internal/rate"
)

func TestMemoryLimiter_AllowsUpToMax(t *testing.T) {
	l := rate.NewMemoryLimiter(memory.New(time.Minute), "", 3, time.Minute)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := l.Allow(ctx, "1.2.3.4:/v1/auth/login")
		if err != nil {
			t.Fatalf("Allow %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if want := int64(3 - i); res.Remaining != want {
			t.Fatalf("request %d: remaining got %d want %d", i, res.Remaining, want)
		}
	}

	res, err := l.Allow(ctx, "1.2.3.4:/v1/auth/login")
	if err != nil {
		t.Fatalf("Allow over limit: %v", err)
	}
	if res.Allowed {
		t.Fatalf("4th request in window must be rejected")
	}
	if res.RetryAfter <= 0 || res.RetryAfter > time.Minute {
		t.Fatalf("retry-after out of range: %v", res.RetryAfter)
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l := rate.NewMemoryLimiter(memory.New(time.Minute), "", 1, time.Minute)
	ctx := context.Background()

	if res, _ := l.Allow(ctx, "ip-a"); !res.Allowed {
		t.Fatalf("first hit for ip-a should pass")
	}
	if res, _ := l.Allow(ctx, "ip-a"); res.Allowed {
		t.Fatalf("second hit for ip-a should be rejected")
	}
	if res, _ := l.Allow(ctx, "ip-b"); !res.Allowed {
		t.Fatalf("ip-b must not share ip-a's window")
	}
}

func TestMemoryLimiter_ConcurrentHitsRespectMax(t *testing.T) {
	const max = 10
	// Ventana larga: todos los goroutines caen en la misma.
	l := rate.NewMemoryLimiter(memory.New(time.Hour), "", max, time.Hour)
	ctx := context.Background()

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := l.Allow(ctx, "ip-a")
			if err != nil {
				t.Errorf("Allow: %v", err)
				return
			}
			if res.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != max {
		t.Fatalf("concurrent window admitted %d requests, want exactly %d", got, max)
	}
}

func TestMemoryLimiter_WindowResets(t *testing.T) {
	window := 50 * time.Millisecond
	l := rate.NewMemoryLimiter(memory.New(window), "", 1, window)
	ctx := context.Background()

	if res, _ := l.Allow(ctx, "ip-a"); !res.Allowed {
		t.Fatalf("first hit should pass")
	}
	if res, _ := l.Allow(ctx, "ip-a"); res.Allowed {
		t.Fatalf("second hit should be rejected")
	}
	time.Sleep(window + 10*time.Millisecond)
	if res, _ := l.Allow(ctx, "ip-a"); !res.Allowed {
		t.Fatalf("hit in the next window should pass")
	}
}
