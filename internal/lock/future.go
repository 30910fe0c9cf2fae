package lock

import "sync"

// Future is a pending lock request returned by Manager.AcquireAsync.
type Future struct {
	manager *Manager
	id      string
	req     *request

	once   sync.Once
	handle *Handle
}

// Done returns a channel that delivers the handle once the lock is granted.
// The handle is delivered only once across Done, Then and Wait.
func (f *Future) Done() <-chan *Handle {
	return f.req.ready
}

// Wait blocks until the lock is granted and returns the handle
func (f *Future) Wait() *Handle {
	f.once.Do(func() {
		f.handle = <-f.req.ready
	})
	return f.handle
}

// Then runs fn with the granted handle on a new goroutine once the lock is
// granted. fn is responsible for releasing the handle.
func (f *Future) Then(fn func(*Handle)) {
	go func() {
		fn(f.Wait())
	}()
}

// Cancel abandons the request. A request still waiting in the queue is
// withdrawn; a request that was already granted is released.
func (f *Future) Cancel() {
	if f.manager.withdraw(f.id, f.req) {
		return
	}
	// Granted: the handle is sitting in the buffered channel unless a
	// receiver already took it.
	select {
	case h := <-f.req.ready:
		h.Release()
	default:
		f.req.handle.Release()
	}
}
