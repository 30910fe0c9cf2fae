package lock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Mode is the lock mode requested for a resource.
type Mode int

const (
	// Shared allows any number of concurrent shared holders.
	Shared Mode = iota
	// Exclusive requires the resource to have no other holder.
	Exclusive
)

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case Shared:
		return "shared"
	case Exclusive:
		return "exclusive"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Manager tracks lock state for every resource id it has seen.
// The zero value is not usable; create one with NewManager.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewManager creates an empty lock manager
func NewManager() *Manager {
	return &Manager{
		entries: make(map[string]*entry),
	}
}

// Handle represents a granted lock. It must be released exactly once.
type Handle struct {
	id       string
	mode     Mode
	manager  *Manager
	released atomic.Bool
}

// ID returns the resource id the handle locks
func (h *Handle) ID() string {
	return h.id
}

// Mode returns the mode the lock was granted in
func (h *Handle) Mode() Mode {
	return h.mode
}

// Release gives the lock back and grants queued waiters that became eligible.
// Releasing the same handle twice has no effect.
func (h *Handle) Release() {
	if h == nil || !h.released.CompareAndSwap(false, true) {
		return
	}
	h.manager.release(h)
}

// Acquire blocks until the lock on id is granted in the given mode, or until
// ctx is done. When ctx ends first the pending request is withdrawn and the
// context error is returned.
func (m *Manager) Acquire(ctx context.Context, id string, mode Mode) (*Handle, error) {
	f := m.AcquireAsync(id, mode)
	select {
	case h := <-f.Done():
		return h, nil
	case <-ctx.Done():
		f.Cancel()
		return nil, fmt.Errorf("acquire %s lock on %q: %w", mode, id, ctx.Err())
	}
}

// AcquireAsync requests the lock without blocking. The returned future is
// fulfilled once the lock is granted, possibly before AcquireAsync returns.
func (m *Manager) AcquireAsync(id string, mode Mode) *Future {
	req := &request{
		mode:  mode,
		ready: make(chan *Handle, 1),
	}
	f := &Future{manager: m, id: id, req: req}

	m.mu.Lock()
	defer m.mu.Unlock()

	e := m.entryLocked(id)
	if len(e.queue) == 0 && e.compatible(mode) {
		req.ready <- m.grantLocked(e, id, req)
		return f
	}
	e.queue = append(e.queue, req)
	return f
}

// State reports the current shared holder count, whether the lock is held
// exclusively, and how many requests are queued for id.
func (m *Manager) State(id string) (shared int, exclusive bool, waiting int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		return 0, false, 0
	}
	if e.exclusive {
		return 0, true, len(e.queue)
	}
	return e.holders, false, len(e.queue)
}

// Len returns the number of resource ids with lock state (held or waited on)
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Manager) entryLocked(id string) *entry {
	e, ok := m.entries[id]
	if !ok {
		e = &entry{}
		m.entries[id] = e
	}
	return e
}

func (m *Manager) grantLocked(e *entry, id string, req *request) *Handle {
	e.holders++
	if req.mode == Exclusive {
		e.exclusive = true
	}
	req.granted = true
	req.handle = &Handle{id: id, mode: req.mode, manager: m}
	return req.handle
}

func (m *Manager) release(h *Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[h.id]
	if !ok || e.holders == 0 {
		// Handle from another manager instance or state already gone.
		return
	}
	e.holders--
	if e.holders == 0 {
		e.exclusive = false
	}
	m.grantQueuedLocked(e, h.id)
	m.dropIfIdleLocked(e, h.id)
}

// grantQueuedLocked grants waiters from the head of the queue while they
// remain compatible with the current holders.
func (m *Manager) grantQueuedLocked(e *entry, id string) {
	for len(e.queue) > 0 {
		next := e.queue[0]
		if !e.compatible(next.mode) {
			return
		}
		e.queue[0] = nil
		e.queue = e.queue[1:]
		next.ready <- m.grantLocked(e, id, next)
	}
}

// withdraw removes a pending request. It reports false if the request was
// already granted, in which case the caller owns the handle.
func (m *Manager) withdraw(id string, req *request) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if req.granted {
		return false
	}
	e, ok := m.entries[id]
	if !ok {
		return true
	}
	for i, r := range e.queue {
		if r == req {
			e.queue = append(e.queue[:i], e.queue[i+1:]...)
			break
		}
	}
	// A withdrawn head may have been the only thing blocking the next waiters.
	m.grantQueuedLocked(e, id)
	m.dropIfIdleLocked(e, id)
	return true
}

func (m *Manager) dropIfIdleLocked(e *entry, id string) {
	if e.holders == 0 && len(e.queue) == 0 {
		delete(m.entries, id)
	}
}

// entry is the lock state for one resource id
type entry struct {
	holders   int
	exclusive bool
	queue     []*request
}

func (e *entry) compatible(mode Mode) bool {
	if mode == Exclusive {
		return e.holders == 0
	}
	return !e.exclusive
}

type request struct {
	mode    Mode
	ready   chan *Handle
	granted bool
	handle  *Handle
}
