package devserve

import "sync"

// registry is the insertion-ordered set of connected subscribers
type registry struct {
	mu     sync.Mutex
	subs   []*subscriber
	closed bool
}

// add returns false once the registry has been cleared for good
func (r *registry) add(sub *subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	for _, s := range r.subs {
		if s == sub {
			return true
		}
	}
	r.subs = append(r.subs, sub)
	return true
}

// remove returns false when the subscriber was already gone
func (r *registry) remove(sub *subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.subs {
		if s == sub {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			return true
		}
	}
	return false
}

func (r *registry) snapshot() []*subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*subscriber(nil), r.subs...)
}

// clear empties the registry and refuses further additions
func (r *registry) clear() []*subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := r.subs
	r.subs = nil
	r.closed = true
	return subs
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}
