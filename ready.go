package devserve

import "sync"

// readiness counts the endpoints that are currently listening and calls
// onReady when the count crosses from one to two.
type readiness struct {
	mu      sync.Mutex
	count   int
	onReady func()
}

func (r *readiness) up() {
	r.mu.Lock()
	r.count++
	crossed := r.count == 2
	r.mu.Unlock()
	if crossed && r.onReady != nil {
		r.onReady()
	}
}

func (r *readiness) down() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count > 0 {
		r.count--
	}
}

func (r *readiness) value() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
