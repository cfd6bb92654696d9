package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/forge/pkg/ports"
)

// lockEntry holds the slot and the reference count.
type lockEntry struct {
	slot chan struct{}
	refs int
}

// Locker implements ports.DistributedLocker within a single process.
// It uses reference counting to garbage collect unused locks.
// The ttl argument is ignored: holders cannot vanish without unlocking.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

var _ ports.DistributedLocker = (*Locker)(nil)

// NewLocker creates an empty in-process locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*lockEntry)}
}

// Lock blocks until key is free or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string, _ time.Duration) (ports.UnlockFunc, error) {
	entry := l.acquire(key)

	select {
	case entry.slot <- struct{}{}:
	case <-ctx.Done():
		l.release(key)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-entry.slot
			l.release(key)
		})
		return nil
	}, nil
}

// Held returns the number of keys currently locked or awaited.
func (l *Locker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *Locker) acquire(key string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.locks[key]
	if !exists {
		entry = &lockEntry{slot: make(chan struct{}, 1)}
		l.locks[key] = entry
	}
	entry.refs++
	return entry
}

func (l *Locker) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, exists := l.locks[key]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(l.locks, key)
	}
}
