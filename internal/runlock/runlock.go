package runlock

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// ErrHeld is returned when another batch run currently holds the lock.
var ErrHeld = errors.New("maintenance lock already held")

// Lock is a Redis-backed advisory lock that keeps batch allocator and
// repair passes from overlapping. A nil *Lock is a valid no-op lock for
// deployments without Redis configured.
type Lock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

// New constructs a Lock and verifies the Redis connection.
func New(addr, password string, db int, ttl time.Duration, logger *slog.Logger) (*Lock, error) {
	opts := &redis.Options{Addr: addr, Password: password, DB: db}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Lock{
		client: client,
		key:    "roster:maintenance:lock",
		ttl:    ttl,
		logger: logger,
	}, nil
}

// Acquire takes the lock and returns a release func. The lock expires
// after its TTL even if the process dies mid-run; release only deletes
// the key when this run still owns it.
func (l *Lock) Acquire(ctx context.Context) (func(context.Context), error) {
	if l == nil {
		return func(context.Context) {}, nil
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrHeld
	}
	l.logger.Info("maintenance lock acquired", "ttl", l.ttl)

	release := func(ctx context.Context) {
		current, err := l.client.Get(ctx, l.key).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				l.logger.Warn("maintenance lock release failed", "error", err)
			}
			return
		}
		if current != token {
			// Expired and re-acquired by someone else; leave it.
			return
		}
		if err := l.client.Del(ctx, l.key).Err(); err != nil {
			l.logger.Warn("maintenance lock release failed", "error", err)
		}
	}
	return release, nil
}

// Close releases the underlying Redis connection.
func (l *Lock) Close() error {
	if l == nil {
		return nil
	}
	return l.client.Close()
}
