package production

import (
	"context"
	"sync"

	"github.com/erp/production/internal/domain/shared"
)

// OrderLocker guards one order against concurrent transitions before the
// transaction starts. It fails fast instead of waiting; the row lock taken
// inside the transaction stays the correctness boundary.
type OrderLocker interface {
	// TryLock acquires the lock for key or returns ErrConcurrencyConflict.
	// The returned function releases it.
	TryLock(ctx context.Context, key string) (unlock func(), err error)
}

// LocalOrderLocker is an in-process OrderLocker for single-instance deployments
type LocalOrderLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalOrderLocker creates a new LocalOrderLocker
func NewLocalOrderLocker() *LocalOrderLocker {
	return &LocalOrderLocker{held: make(map[string]struct{})}
}

// TryLock implements OrderLocker
func (l *LocalOrderLocker) TryLock(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return nil, shared.ErrConcurrencyConflict.WithDetail("lock", key)
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
	}, nil
}

// Held reports whether key is currently locked
func (l *LocalOrderLocker) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}

var _ OrderLocker = (*LocalOrderLocker)(nil)

func orderLockKey(orderNo string) string {
	return "production-order:" + orderNo
}
