package actor

import (
	"context"
	"sync"
)

// Registry holds two mappings: id -> strong handle for every live,
// not-yet-erased actor, and name -> strong handle for explicitly named
// actors, plus the running set used for quiescence.
//
// Generalized from a sync.Map id table plus a handle manager with
// separate RWMutex-guarded id/name maps into the single Registry here,
// with reader-writer locks on each map since both are optimized for
// frequent reads over writes.
type Registry struct {
	idMu sync.RWMutex
	byID map[ActorId]StrongHandle

	nameMu sync.RWMutex
	byName map[string]StrongHandle

	runMu   sync.Mutex
	runCond *sync.Cond
	running map[ActorId]struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	r := &Registry{
		byID:    make(map[ActorId]StrongHandle),
		byName:  make(map[string]StrongHandle),
		running: make(map[ActorId]struct{}),
	}
	r.runCond = sync.NewCond(&r.runMu)
	return r
}

// PutID publishes id -> handle.
func (r *Registry) PutID(id ActorId, h StrongHandle) {
	r.idMu.Lock()
	r.byID[id] = h
	r.idMu.Unlock()
}

// PutName publishes name -> handle. Returns false if the name was
// already taken.
func (r *Registry) PutName(name string, h StrongHandle) bool {
	r.nameMu.Lock()
	defer r.nameMu.Unlock()
	if _, exists := r.byName[name]; exists {
		return false
	}
	r.byName[name] = h
	return true
}

// GetID returns the handle for id, or Invalid if there is none. Returning
// Invalid is never treated as a failure by callers (§4.F).
func (r *Registry) GetID(id ActorId) StrongHandle {
	r.idMu.RLock()
	defer r.idMu.RUnlock()
	return r.byID[id]
}

// GetName returns the handle registered under name, or Invalid.
func (r *Registry) GetName(name string) StrongHandle {
	r.nameMu.RLock()
	defer r.nameMu.RUnlock()
	return r.byName[name]
}

// EraseID removes the id mapping.
func (r *Registry) EraseID(id ActorId) {
	r.idMu.Lock()
	delete(r.byID, id)
	r.idMu.Unlock()
}

// EraseName removes the name mapping.
func (r *Registry) EraseName(name string) {
	r.nameMu.Lock()
	delete(r.byName, name)
	r.nameMu.Unlock()
}

// IncRunning records id as live and returns the new running-set size.
// Must precede the actor's first observable activity (§4.F).
func (r *Registry) IncRunning(id ActorId) int {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	r.running[id] = struct{}{}
	return len(r.running)
}

// DecRunning removes id from the running set as part of
// Terminating->Retired and returns the new size, waking any waiters if
// the set's size actually changed.
func (r *Registry) DecRunning(id ActorId) int {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	if _, ok := r.running[id]; ok {
		delete(r.running, id)
		r.runCond.Broadcast()
	}
	return len(r.running)
}

// RunningCount returns the current size of the running set.
func (r *Registry) RunningCount() int {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	return len(r.running)
}

// AwaitRunningCountEqual blocks the caller until the running set's size
// equals n.
func (r *Registry) AwaitRunningCountEqual(n int) {
	r.AwaitRunningCountEqualCB(n, nil)
}

// AwaitRunningCountEqualCB is the callback-flavored form: cb fires on
// every shrink of the running set, used for graceful-drain progress
// reporting (§4.F).
func (r *Registry) AwaitRunningCountEqualCB(n int, cb func(remaining int)) {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	last := len(r.running)
	for len(r.running) != n {
		r.runCond.Wait()
		cur := len(r.running)
		if cb != nil && cur < last {
			cb(cur)
		}
		last = cur
	}
}

// AwaitRunningCountEqualContext blocks until the running set's size
// equals n or ctx is done, whichever comes first. A background goroutine
// turns ctx's cancellation into a Broadcast so the waiter re-checks
// ctx.Err() instead of staying parked on runCond.Wait() until the
// running count happens to reach n on its own — which, for a caller that
// gave up on a timeout, might be never within the System's remaining
// life. The goroutine itself exits via the closed stop channel on every
// return path, including the non-canceled one.
func (r *Registry) AwaitRunningCountEqualContext(ctx context.Context, n int) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			r.runMu.Lock()
			r.runCond.Broadcast()
			r.runMu.Unlock()
		case <-stop:
		}
	}()

	r.runMu.Lock()
	defer r.runMu.Unlock()
	for len(r.running) != n {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.runCond.Wait()
	}
	return nil
}

// NamedActors returns a consistent point-in-time snapshot of the name
// map (§4.F, §8 invariant #5).
func (r *Registry) NamedActors() map[string]StrongHandle {
	r.nameMu.RLock()
	defer r.nameMu.RUnlock()
	snap := make(map[string]StrongHandle, len(r.byName))
	for k, v := range r.byName {
		snap[k] = v
	}
	return snap
}
