package timers

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type entry struct {
	timer    clockwork.Timer
	deadline time.Time
}

// registry holds at most one live timer per key. A fired timer only runs its
// action if it is still the registered entry for the key, so an action never
// starts after cancel or a replacing arm has returned.
type registry[K comparable] struct {
	clock   Clock
	mu      sync.Mutex
	idle    *sync.Cond
	entries map[K]*entry
	running int
}

func newRegistry[K comparable](clock Clock) *registry[K] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	r := &registry[K]{clock: clock, entries: map[K]*entry{}}
	r.idle = sync.NewCond(&r.mu)
	return r
}

func (r *registry[K]) arm(key K, deadline time.Time, action func()) {
	e := &entry{deadline: deadline}
	r.mu.Lock()
	defer r.mu.Unlock()
	if old := r.entries[key]; old != nil {
		old.timer.Stop()
		r.idle.Broadcast()
	}
	r.entries[key] = e
	delay := deadline.Sub(r.clock.Now())
	if delay < 0 {
		delay = 0
	}
	e.timer = r.clock.AfterFunc(delay, func() { r.fire(key, e, action) })
}

func (r *registry[K]) fire(key K, e *entry, action func()) {
	r.mu.Lock()
	if r.entries[key] != e {
		r.mu.Unlock()
		return
	}
	delete(r.entries, key)
	r.running++
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running--
		r.idle.Broadcast()
		r.mu.Unlock()
	}()
	action()
}

func (r *registry[K]) cancel(key K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entries[key]
	if e == nil {
		return false
	}
	delete(r.entries, key)
	e.timer.Stop()
	r.idle.Broadcast()
	return true
}

func (r *registry[K]) cancelWhere(match func(K) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, e := range r.entries {
		if !match(k) {
			continue
		}
		delete(r.entries, k)
		e.timer.Stop()
		n++
	}
	if n > 0 {
		r.idle.Broadcast()
	}
	return n
}

// waitDue blocks until no entry is past its deadline and every fired action
// has returned. Actions that arm further due entries are waited for too.
func (r *registry[K]) waitDue() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for r.running > 0 || r.hasDue(r.clock.Now()) {
		r.idle.Wait()
	}
}

func (r *registry[K]) hasDue(now time.Time) bool {
	for _, e := range r.entries {
		if !e.deadline.After(now) {
			return true
		}
	}
	return false
}

func (r *registry[K]) pending(key K) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.entries[key]
	if e == nil {
		return time.Time{}, false
	}
	return e.deadline, true
}

func (r *registry[K]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
