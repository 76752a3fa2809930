package rate

import (
	"context"
	"encoding/binary"
	"sync"
	"time"

	"github.com/oscarho2/giglink-identity/internal/cache"
)

// MemoryLimiter: fixed window sobre un cache in-process. Suficiente
// para despliegues single-node; para multi-node usar RedisLimiter.
type MemoryLimiter struct {
	Cache  cache.Cache
	Prefix string
	Max    int64
	Window time.Duration

	// mu serializa el get+set del contador; el cache no expone un
	// increment atómico.
	mu sync.Mutex
}

func NewMemoryLimiter(c cache.Cache, prefix string, max int, window time.Duration) *MemoryLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &MemoryLimiter{Cache: c, Prefix: prefix, Max: int64(max), Window: window}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := time.Now().UTC()
	winStart := now.Truncate(l.Window)
	k := l.Prefix + key + ":" + winStart.Format("20060102150405")

	// TTL hasta el fin de la ventana actual
	ttl := winStart.Add(l.Window).Sub(now)

	l.mu.Lock()
	var hits int64 = 1
	if b, ok := l.Cache.Get(k); ok && len(b) == 8 {
		hits = int64(binary.BigEndian.Uint64(b)) + 1
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(hits))
	l.Cache.Set(k, buf, ttl)
	l.mu.Unlock()

	allowed := hits <= l.Max
	remaining := l.Max - hits
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Allowed:     allowed,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   ttl,
	}
	if !allowed {
		res.RetryAfter = ttl
	}
	return res, nil
}
