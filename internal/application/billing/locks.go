package billing

import (
	"sync"

	"github.com/google/uuid"
)

// TenancyLocks serializes access to one tenancy's bill chain. The billing
// cycle appends under the same lock the recalculation engine rewrites under,
// so a scheduler append can never race an in-flight forward propagation on
// the same tenancy. Different tenancies proceed independently.
type TenancyLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// NewTenancyLocks creates an empty lock registry
func NewTenancyLocks() *TenancyLocks {
	return &TenancyLocks{
		locks: make(map[uuid.UUID]*sync.Mutex),
	}
}

// Lock acquires the tenancy's lock and returns the release function.
// Locks are never removed from the registry; the tenancy population is
// small and long-lived.
func (t *TenancyLocks) Lock(tenancyID uuid.UUID) func() {
	t.mu.Lock()
	l, ok := t.locks[tenancyID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[tenancyID] = l
	}
	t.mu.Unlock()

	l.Lock()
	return l.Unlock
}
