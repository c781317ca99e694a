package actor

import "time"

// stealRetriesPerWorkerFactor, multiplied by the pool size, bounds how
// many randomized steal attempts a worker makes before parking, per §4.E ("a bounded number of randomized attempts,
// then parks on a condition variable rather than spinning").
const stealRetriesPerWorkerFactor = 2

// worker runs one goroutine of the Scheduler's fixed pool. It owns a
// local deque of actors made runnable by sends issued from its own
// currently-executing Behavior, and otherwise pulls from the global
// injection queue or steals from a peer.
type worker struct {
	id    int
	sched *Scheduler
	local deque
}

// scheduleLocal is the fast path taken by Context.enqueue when a send
// happens from inside a Behavior this worker is currently running.
func (w *worker) scheduleLocal(a *acb) {
	w.local.pushBack(a)
	// A worker parked waiting for work might be a peer that would
	// otherwise steal this later than necessary; waking everyone keeps
	// latency low at the cost of a redundant broadcast per local push.
	w.sched.wake()
}

// run is the worker's main loop: local deque (LIFO) -> global injection
// queue (FIFO) -> randomized steal from peers -> park.
func (w *worker) run() {
	retries := stealRetriesPerWorkerFactor * len(w.sched.workers)
	for {
		if a := w.local.popBack(); a != nil {
			w.execute(a)
			continue
		}
		if a := w.sched.injection.popFront(); a != nil {
			w.execute(a)
			continue
		}
		if a := w.steal(retries); a != nil {
			w.execute(a)
			continue
		}
		if w.sched.isShuttingDown() && w.sched.registry.RunningCount() == 0 {
			return
		}
		w.park()
	}
}

// steal makes up to attempts randomized attempts to pop work from a
// peer's local deque before giving up.
func (w *worker) steal(attempts int) *acb {
	for i := 0; i < attempts; i++ {
		victim := w.sched.randomVictim(w.id)
		if victim == nil {
			return nil
		}
		if a := victim.local.popFront(); a != nil {
			return a
		}
	}
	return nil
}

// park blocks the worker on the scheduler's condition variable until
// woken by a new enqueue, a steal-target push, or shutdown. A short
// timed wait is used instead of an unbounded Wait so that a worker which
// missed a Broadcast during the narrow window between the emptiness
// check and Wait still rechecks shutdown/work periodically.
func (w *worker) park() {
	w.sched.parkMu.Lock()
	done := make(chan struct{})
	go func() {
		select {
		case <-done:
		case <-time.After(10 * time.Millisecond):
			w.sched.wake()
		}
	}()
	w.sched.parkCond.Wait()
	close(done)
	w.sched.parkMu.Unlock()
}

// execute dispatches up to the configured execution quantum of envelopes
// from a's mailbox (§4.E "Throughput" pattern: bound per-dispatch work so
// one busy actor cannot starve the pool), applying the resulting
// HandleOutcome after each message and honoring the unhandled policy.
func (w *worker) execute(a *acb) {
	if !a.mailbox.tryAcquireRun() {
		// Another worker is still draining this actor: a push that lands
		// after that worker's FinishQuantum parked the mailbox but before
		// its deferred releaseRun schedules the actor a second time.
		// Requeue and move on rather than violate run-exclusivity.
		w.sched.ScheduleExternal(a)
		return
	}
	defer a.mailbox.releaseRun()

	// A StrongHandle.Release dropping strong to 0 can terminate a after it
	// was pushed onto a run queue but before a worker reached it here;
	// markRunning would panic on that otherwise-valid race, so bail out
	// the same way the end of the quantum loop does once terminated.
	if a.isTerminating() {
		return
	}
	a.markRunning()
	a.sys.observer.ActorScheduled(a.id)

	ctx := &Context{sys: a.sys, self: StrongHandle{a: a}, w: w}
	quantum := a.sys.opts.ExecutionQuantum
	if quantum <= 0 {
		quantum = 1
	}

	for i := 0; i < quantum; i++ {
		env, ok := a.mailbox.Pop()
		if !ok {
			break
		}
		a.behaviorMu.Lock()
		b := a.behavior
		outcome := b.Handle(ctx, env)
		a.applyOutcome(outcome)
		terminated := a.isTerminating()
		a.behaviorMu.Unlock()
		if terminated {
			return
		}
	}

	if a.mailbox.FinishQuantum() {
		w.sched.ScheduleExternal(a)
	}
}
