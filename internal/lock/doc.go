// Package lock provides per-resource shared/exclusive locks with FIFO fairness.
//
// Each resource id gets its own lock state, created on demand and dropped when
// it has neither holders nor waiters. Two modes are supported:
//
//   - [Shared]: compatible with other shared holders.
//   - [Exclusive]: incompatible with every other holder.
//
// Requests that cannot be granted immediately are queued in arrival order.
// When a handle is released the queue is drained from its head: a run of
// shared requests is granted together, an exclusive request is granted only
// once the resource is completely free, and no request is ever granted ahead
// of an earlier one. This keeps a stream of shared requests from starving an
// exclusive one and the other way around.
//
// Locks can be taken in two ways:
//
//	h, err := m.Acquire(ctx, "ric-1", lock.Exclusive) // blocks
//	defer h.Release()
//
//	m.AcquireAsync("ric-1", lock.Shared).Then(func(h *lock.Handle) {
//	    defer h.Release()
//	    // runs once the lock is granted
//	})
//
// The manager does not order locks across resource ids and does not time out
// waiters. Holding a lock on one id while waiting for another is the caller's
// responsibility, as is releasing every handle it was given.
package lock
