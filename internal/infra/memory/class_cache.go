package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"debate-lab-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ClassLoader fetches a class from the backing store.
type ClassLoader interface {
	Get(ctx context.Context, code string) (domain.Class, error)
}

// ClassCache keeps recently read classes in process memory.
//
// Concurrent misses for one code share a single store read. Every Invalidate
// bumps the code's epoch; a read that started under an older epoch is handed
// to its waiters but never written back, so a stale class cannot outlive the
// invalidation that should have removed it.
type ClassCache struct {
	loader ClassLoader
	ttl    time.Duration
	now    func() time.Time
	fills  singleflight.Group

	jitterMu sync.Mutex
	jitter   *rand.Rand

	mu      sync.RWMutex
	entries map[string]classEntry
	epochs  map[string]uint64
}

type classEntry struct {
	class   domain.Class
	expires time.Time
}

func NewClassCache(loader ClassLoader, ttl time.Duration) *ClassCache {
	return &ClassCache{
		loader:  loader,
		ttl:     ttl,
		now:     time.Now,
		jitter:  rand.New(rand.NewSource(time.Now().UnixNano())),
		entries: make(map[string]classEntry),
		epochs:  make(map[string]uint64),
	}
}

func (c *ClassCache) GetClass(ctx context.Context, code string) (domain.Class, error) {
	if class, ok := c.lookup(code); ok {
		return class, nil
	}

	v, err, _ := c.fills.Do(code, func() (interface{}, error) {
		if class, ok := c.lookup(code); ok {
			return class, nil
		}
		epoch := c.epoch(code)
		class, err := c.loader.Get(ctx, code)
		if err != nil {
			return domain.Class{}, err
		}
		c.store(code, class, epoch)
		return class, nil
	})
	if err != nil {
		return domain.Class{}, err
	}
	return v.(domain.Class), nil
}

// Invalidate drops a cached class and fences off fills already in flight.
func (c *ClassCache) Invalidate(_ context.Context, code string) {
	c.mu.Lock()
	delete(c.entries, code)
	c.epochs[code]++
	c.mu.Unlock()
	// later readers must not join a fill that began before this call
	c.fills.Forget(code)
}

func (c *ClassCache) lookup(code string) (domain.Class, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[code]
	if !ok || !e.expires.After(c.now()) {
		return domain.Class{}, false
	}
	return e.class, true
}

func (c *ClassCache) epoch(code string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epochs[code]
}

func (c *ClassCache) store(code string, class domain.Class, epoch uint64) {
	ttl := c.expiry()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epochs[code] != epoch {
		return
	}
	c.entries[code] = classEntry{class: class, expires: c.now().Add(ttl)}
}

// expiry is the TTL plus up to 10% jitter.
func (c *ClassCache) expiry() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.jitterMu.Lock()
	defer c.jitterMu.Unlock()
	return c.ttl + time.Duration(c.jitter.Int63n(int64(c.ttl)/10+1))
}
