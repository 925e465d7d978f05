package memory

import (
	"context"
	"sync"
	"time"

	"github.com/clawarena/arena/internal/domain"
)

// LockManager implements domain.LockManager with an in-process mutex and
// key set. It only serializes within one process, which is exactly the
// scope of the memory backend.
type LockManager struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewLockManager creates an empty in-process lock manager.
func NewLockManager() *LockManager {
	return &LockManager{held: make(map[string]bool)}
}

// Acquire takes the named lock or returns domain.ErrLockHeld. The TTL is
// ignored; in-process locks cannot leak past the process.
func (lm *LockManager) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if lm.held[key] {
		return nil, domain.ErrLockHeld
	}
	lm.held[key] = true

	released := false
	unlock := func() {
		lm.mu.Lock()
		defer lm.mu.Unlock()
		if released {
			return
		}
		released = true
		delete(lm.held, key)
	}
	return unlock, nil
}

// Compile-time interface check.
var _ domain.LockManager = (*LockManager)(nil)
