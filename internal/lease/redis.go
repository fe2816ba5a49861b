package lease

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/easeaico/memorify/internal/apperr"
)

const keyPrefix = "memorify:lease:"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Lease shared by every process using the same Redis instance.
type Redis struct {
	client redis.UniversalClient
}

// NewRedis connects to the Redis instance at url.
func NewRedis(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, apperr.E(apperr.KindValidation, "parse_redis_url", err)
	}
	return &Redis{client: redis.NewClient(opts)}, nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, keyPrefix+key, token, ttl).Result()
	if err != nil {
		return "", false, classify("acquire_lease", err)
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (r *Redis) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, r.client, []string{keyPrefix + key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return classify("release_lease", err)
	}
	return nil
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func classify(op string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.E(apperr.KindTimeout, op, err)
	case errors.As(err, &netErr):
		return apperr.E(apperr.KindNetwork, op, err)
	default:
		return apperr.E(apperr.KindServer, op, err)
	}
}
