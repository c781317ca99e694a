package actor

import (
	"math/rand"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// deque is a mutex-guarded double-ended queue of ready actors. The owning
// worker pushes and pops from the back (LIFO, for cache locality on the
// actor it just ran); thieves pop from the front (oldest first), per
// §4.E's "work stealing: a worker... attempts to steal from a randomly
// chosen peer's tail" — "tail" here is the opposite end from where the
// owner works, i.e. the front of this slice.
type deque struct {
	mu    sync.Mutex
	items []*acb
}

func (d *deque) pushBack(a *acb) {
	d.mu.Lock()
	d.items = append(d.items, a)
	d.mu.Unlock()
}

func (d *deque) popBack() *acb {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := len(d.items)
	if n == 0 {
		return nil
	}
	a := d.items[n-1]
	d.items = d.items[:n-1]
	return a
}

func (d *deque) popFront() *acb {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.items) == 0 {
		return nil
	}
	a := d.items[0]
	d.items = d.items[1:]
	return a
}

func (d *deque) empty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items) == 0
}

// Scheduler is the fixed worker pool described in §4.E: each worker owns
// a local deque, a global injection queue feeds workers that steal, and
// work-stealing uses bounded randomized retries before parking.
type Scheduler struct {
	opts    Options
	workers []*worker

	injection deque

	parkMu   sync.Mutex
	parkCond *sync.Cond

	shuttingDown int32 // atomic bool
	group        *errgroup.Group

	registry *Registry
}

// NewScheduler builds and starts a fixed pool of opts.WorkerCount workers.
// Workers are launched through an errgroup.Group, which JoinWorkers waits
// on. Worker goroutines always return nil and JoinWorkers discards Wait's
// result, so no worker error or panic is reported through it.
func NewScheduler(opts Options, registry *Registry) *Scheduler {
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 1
	}
	s := &Scheduler{opts: opts, registry: registry, group: new(errgroup.Group)}
	s.parkCond = sync.NewCond(&s.parkMu)
	s.workers = make([]*worker, opts.WorkerCount)
	for i := range s.workers {
		s.workers[i] = &worker{id: i, sched: s}
	}
	for _, w := range s.workers {
		w := w
		s.group.Go(func() error {
			w.run()
			return nil
		})
	}
	return s
}

// ScheduleExternal places a into the global injection queue and wakes a
// parked worker. Used whenever the caller pushing to a's mailbox is not
// itself a scheduler worker (§4.E's "else onto the global injection
// queue").
func (s *Scheduler) ScheduleExternal(a *acb) {
	s.injection.pushBack(a)
	s.wake()
}

func (s *Scheduler) wake() {
	s.parkMu.Lock()
	s.parkCond.Broadcast()
	s.parkMu.Unlock()
}

// isShuttingDown reports whether BeginDrain has been called.
func (s *Scheduler) isShuttingDown() bool {
	return atomic.LoadInt32(&s.shuttingDown) == 1
}

// BeginDrain stops nothing that is already queued — it only flips the
// flag workers use, together with the registry's running count, to
// decide when to stop looking for work and exit (§4.E cancellation).
func (s *Scheduler) BeginDrain() {
	atomic.StoreInt32(&s.shuttingDown, 1)
	s.wake()
}

// JoinWorkers blocks until every worker goroutine has exited. Only
// returns promptly once BeginDrain has been called and the registry has
// drained to zero running actors.
func (s *Scheduler) JoinWorkers() {
	_ = s.group.Wait()
}

// randomVictim returns a worker other than excludeIdx, chosen uniformly
// at random, used by the stealing loop.
func (s *Scheduler) randomVictim(excludeIdx int) *worker {
	n := len(s.workers)
	if n <= 1 {
		return nil
	}
	idx := rand.Intn(n - 1)
	if idx >= excludeIdx {
		idx++
	}
	return s.workers[idx]
}
