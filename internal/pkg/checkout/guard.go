package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Guard admits one in-flight checkout per key.
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// MemoryGuard is a process-local Guard.
type MemoryGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{inFlight: make(map[string]struct{})}
}

func (g *MemoryGuard) Acquire(_ context.Context, key string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inFlight[key]; busy {
		return nil, ErrCheckoutInProgress
	}
	g.inFlight[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inFlight, key)
			g.mu.Unlock()
		})
	}, nil
}

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard shares the in-flight lock between app instances. The TTL bounds
// a lock whose holder died. When Redis is unreachable it degrades to a
// process-local guard.
type RedisGuard struct {
	client   *redis.Client
	ttl      time.Duration
	prefix   string
	fallback *MemoryGuard
	log      zerolog.Logger
}

func NewRedisGuard(client *redis.Client, ttl time.Duration, log zerolog.Logger) *RedisGuard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisGuard{
		client:   client,
		ttl:      ttl,
		prefix:   "plandeck:checkout:inflight:",
		fallback: NewMemoryGuard(),
		log:      log,
	}
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	k := g.prefix + key
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, k, token, g.ttl).Result()
	if err != nil {
		g.log.Warn().Err(err).Msg("redis checkout guard unavailable, using local guard")
		return g.fallback.Acquire(ctx, key)
	}
	if !ok {
		return nil, ErrCheckoutInProgress
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, g.client, []string{k}, token).Err(); err != nil {
				g.log.Warn().Err(err).Msg("failed to release checkout guard")
			}
		})
	}, nil
}
