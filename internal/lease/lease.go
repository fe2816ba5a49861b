// Package lease provides per-key expiring leases used as a single-flight guard.
package lease

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Lease grants exclusive, expiring ownership of a key.
type Lease interface {
	// Acquire returns a token when the key was free. ok is false while another holder owns it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	// Release frees the key when token still owns it.
	Release(ctx context.Context, key, token string) error
}

type entry struct {
	token   string
	expires time.Time
}

// Local is an in-process Lease.
type Local struct {
	mu      sync.Mutex
	held    map[string]entry
	nowFunc func() time.Time
}

// NewLocal creates an in-process Lease.
func NewLocal() *Local {
	return &Local{held: make(map[string]entry), nowFunc: time.Now}
}

func (l *Local) Acquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	if cur, ok := l.held[key]; ok && now.Before(cur.expires) {
		return "", false, nil
	}
	token := uuid.NewString()
	l.held[key] = entry{token: token, expires: now.Add(ttl)}
	return token, true, nil
}

func (l *Local) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.held[key]; ok && cur.token == token {
		delete(l.held, key)
	}
	return nil
}
