package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"debate-lab-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ClassLoader fetches a class from the backing store.
type ClassLoader interface {
	Get(ctx context.Context, code string) (domain.Class, error)
}

// fillScript writes the class only while the epoch still matches the one
// read before loading. KEYS: class, epoch. ARGV: epoch, json, ttl millis.
var fillScript = redis.NewScript(`
local cur = redis.call('GET', KEYS[2]) or '0'
if cur ~= ARGV[1] then
  return 0
end
if tonumber(ARGV[3]) > 0 then
  redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
  redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

// ClassCache caches class documents in Redis and falls back to a loader on miss.
// Documents live at class:{code}; class:{code}:epoch is bumped on every
// invalidation so a fill that raced one is discarded, across instances too.
type ClassCache struct {
	client *redis.Client
	loader ClassLoader
	ttl    time.Duration
	fills  singleflight.Group

	jitterMu sync.Mutex
	jitter   *rand.Rand
}

func NewClassCache(client *redis.Client, loader ClassLoader, ttl time.Duration) *ClassCache {
	return &ClassCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		jitter: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *ClassCache) GetClass(ctx context.Context, code string) (domain.Class, error) {
	if class, ok := c.cached(ctx, code); ok {
		return class, nil
	}

	v, err, _ := c.fills.Do(code, func() (interface{}, error) {
		if class, ok := c.cached(ctx, code); ok {
			return class, nil
		}
		epoch, err := c.client.Get(ctx, c.epochKey(code)).Result()
		if errors.Is(err, redis.Nil) {
			epoch = "0"
		} else if err != nil {
			epoch = ""
		}

		class, err := c.loader.Get(ctx, code)
		if err != nil {
			return domain.Class{}, err
		}
		// without a known epoch the write could be stale, so skip it
		if epoch != "" {
			if raw, err := json.Marshal(class); err == nil {
				_ = fillScript.Run(ctx, c.client,
					[]string{c.key(code), c.epochKey(code)},
					epoch, raw, c.expiry().Milliseconds()).Err()
			}
		}
		return class, nil
	})
	if err != nil {
		return domain.Class{}, err
	}
	return v.(domain.Class), nil
}

// Invalidate removes the cached document and bumps its epoch. Errors are
// ignored since the entry expires on its own.
func (c *ClassCache) Invalidate(ctx context.Context, code string) {
	_, _ = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, c.key(code))
		pipe.Incr(ctx, c.epochKey(code))
		return nil
	})
	c.fills.Forget(code)
}

func (c *ClassCache) cached(ctx context.Context, code string) (domain.Class, bool) {
	raw, err := c.client.Get(ctx, c.key(code)).Bytes()
	if err != nil {
		return domain.Class{}, false
	}
	var class domain.Class
	if err := json.Unmarshal(raw, &class); err != nil {
		return domain.Class{}, false
	}
	return class, true
}

func (c *ClassCache) key(code string) string {
	return "class:" + code
}

func (c *ClassCache) epochKey(code string) string {
	return "class:" + code + ":epoch"
}

func (c *ClassCache) expiry() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.jitterMu.Lock()
	defer c.jitterMu.Unlock()
	return c.ttl + time.Duration(c.jitter.Int63n(int64(c.ttl)/10+1))
}
