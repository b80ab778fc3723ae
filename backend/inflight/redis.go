package inflight

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the lease only if it still carries our token, so an
// expired lease re-acquired by another instance is left alone.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis shares leases between API instances. The TTL bounds how long a
// crashed holder can block a key.
type Redis struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
	log    *zap.Logger
}

func NewRedis(client *goredis.Client, ttl time.Duration, log *zap.Logger) *Redis {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Redis{
		client: client,
		prefix: "inflight:",
		ttl:    ttl,
		log:    log.With(zap.String("component", "inflight")),
	}
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, r.prefix+key, token, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrBusy
	}

	return func() {
		// The request context may already be done; releasing must not depend on it.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, r.client, []string{r.prefix + key}, token).Err(); err != nil {
			r.log.Warn("release lease", zap.String("key", key), zap.Error(err))
		}
	}, nil
}
