// Package lock provides the exclusive per-store lock held for the duration of
// an import run, so two runs against the same store cannot race each other's
// duplicate detection.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrLocked is returned when another run holds the lock.
var ErrLocked = errors.New("import already running for this store")

// DefaultTTL bounds how long a crashed holder can keep a lock.
const DefaultTTL = 30 * time.Minute

// Locker hands out exclusive leases on keys.
type Locker interface {
	// Lock acquires key without waiting. It returns ErrLocked if the key is
	// held by someone else.
	Lock(ctx context.Context, key string) (*Lease, error)
}

// Lease is a held lock. Release it exactly once.
type Lease struct {
	Key   string
	Token string

	release func(ctx context.Context) error
	once    sync.Once
	err     error
}

// Release gives the lock up. Releasing a lease that has expired and been
// taken by another holder leaves the new holder's lock in place.
func (l *Lease) Release(ctx context.Context) error {
	l.once.Do(func() {
		if l.release != nil {
			l.err = l.release(ctx)
		}
	})
	return l.err
}

func newToken() string {
	return uuid.NewString()
}

// MemoryLocker locks keys within one process.
type MemoryLocker struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.Mutex
	held map[string]memoryEntry
}

type memoryEntry struct {
	token   string
	expires time.Time
}

// NewMemoryLocker returns a locker whose leases expire after ttl.
func NewMemoryLocker(ttl time.Duration) *MemoryLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryLocker{ttl: ttl, now: time.Now, held: make(map[string]memoryEntry)}
}

// Lock implements Locker.
func (m *MemoryLocker) Lock(ctx context.Context, key string) (*Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if e, ok := m.held[key]; ok && now.Before(e.expires) {
		return nil, ErrLocked
	}

	token := newToken()
	m.held[key] = memoryEntry{token: token, expires: now.Add(m.ttl)}
	return &Lease{
		Key:   key,
		Token: token,
		release: func(context.Context) error {
			m.mu.Lock()
			defer m.mu.Unlock()
			if e, ok := m.held[key]; ok && e.token == token {
				delete(m.held, key)
			}
			return nil
		},
	}, nil
}
