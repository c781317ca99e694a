package actor

import (
	"sync"
	"sync/atomic"
)

// PushResult is the outcome of a Mailbox.Push call.
type PushResult uint8

const (
	// PushUnblocked is returned exactly when this push caused the mailbox to
	// transition from a not-ready state into Ready. The caller must then
	// make the owning actor ready in the scheduler.
	PushUnblocked PushResult = iota
	// PushQueued means the message was accepted but the mailbox was already
	// Ready (the actor is already scheduled or executing); no new
	// scheduling action is required.
	PushQueued
	// PushClosed means the mailbox rejected the message, either because it
	// was already closed or because an optional capacity bound was
	// exceeded — the two are observably identical to the sender (§7
	// DeliveryToClosedMailbox / MailboxFull).
	PushClosed
)

type mailboxState int32

const (
	mbEmpty mailboxState = iota
	mbReady
	mbBlocked
	mbClosed
)

// Mailbox is the per-actor ordered queue: two FIFO lanes (high, normal),
// with pop always draining high before normal.
//
// A plain mutex-guarded pair of slices is used instead of a buffered
// channel: Go's select has no priority between ready channels, so two
// channels plus a select cannot honor "drain all high before any normal"
// deterministically. Every write of the state word happens under the
// mutex, so the Ready/Blocked transition is always atomic with respect to
// a concurrent push. The run-exclusivity bit is separate: it is claimed
// and released by lock-free CAS/store, without the mutex.
type Mailbox struct {
	mu      sync.Mutex
	high    []Envelope
	normal  []Envelope
	state   int32 // mailboxState
	running int32 // 0/1, CASed to enforce single-worker execution
	maxSize int   // 0 = unbounded
}

// NewMailbox creates an empty mailbox. maxSize of 0 means unbounded.
func NewMailbox(maxSize int) *Mailbox {
	return &Mailbox{
		maxSize: maxSize,
	}
}

func (m *Mailbox) len() int {
	return len(m.high) + len(m.normal)
}

// Push enqueues a message. Thread-safe from any number of producers.
func (m *Mailbox) Push(sender Sender, mid MessageId, payload Message) PushResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := mailboxState(atomic.LoadInt32(&m.state))
	if st == mbClosed {
		return PushClosed
	}
	if m.maxSize > 0 && m.len() >= m.maxSize {
		// Treated identically to Closed from the sender's perspective; see
		// §6 max_mailbox_size and §7 MailboxFull.
		return PushClosed
	}

	env := Envelope{Sender: sender, Id: mid, Msg: payload}
	if mid.Priority() == PriorityHigh {
		m.high = append(m.high, env)
	} else {
		m.normal = append(m.normal, env)
	}

	atomic.StoreInt32(&m.state, int32(mbReady))
	if st == mbBlocked || st == mbEmpty {
		return PushUnblocked
	}
	return PushQueued
}

// Pop is called only by the worker currently executing this actor. It
// drains all high-priority envelopes before any normal-priority one.
func (m *Mailbox) Pop() (Envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.high) > 0 {
		e := m.high[0]
		m.high = m.high[1:]
		if len(m.high) == 0 {
			m.high = nil
		}
		return e, true
	}
	if len(m.normal) > 0 {
		e := m.normal[0]
		m.normal = m.normal[1:]
		if len(m.normal) == 0 {
			m.normal = nil
		}
		return e, true
	}

	if mailboxState(atomic.LoadInt32(&m.state)) != mbClosed {
		atomic.StoreInt32(&m.state, int32(mbBlocked))
	}
	return Envelope{}, false
}

// FinishQuantum is called by the worker once per execute() after it
// stops dispatching, whether that was because Pop ran dry (which already
// transitioned state to mbBlocked under m.mu) or because the execution
// quantum was exhausted with state still mbReady. It reports whether the
// actor must be rescheduled.
//
// The quantum-exhausted case is the one that matters: checking "is
// anything queued" and then separately transitioning to mbBlocked would
// leave a window between the two where a concurrent Push observes
// mbReady, appends, and returns PushQueued believing the actor is still
// scheduled or running — but nothing will ever schedule it again, and
// the message is stuck. Doing both under the same m.mu critical section
// Push also takes closes that window: either this runs first and parks
// the mailbox before the Push arrives (so the Push sees mbBlocked and
// returns PushUnblocked, which reschedules), or the Push runs first and
// this observes the new envelope and reschedules itself.
func (m *Mailbox) FinishQuantum() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.len() > 0 {
		return true
	}
	if mailboxState(atomic.LoadInt32(&m.state)) != mbClosed {
		atomic.StoreInt32(&m.state, int32(mbBlocked))
	}
	return false
}

// Close is idempotent. Subsequent Push calls return PushClosed; Pop keeps
// draining whatever is already queued, then reports empty.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	atomic.StoreInt32(&m.state, int32(mbClosed))
}

// Closed reports whether Close has been called.
func (m *Mailbox) Closed() bool {
	return mailboxState(atomic.LoadInt32(&m.state)) == mbClosed
}

// tryAcquireRun enforces invariant #2 of §8: at most one worker executes a
// given actor's Behavior at any moment.
func (m *Mailbox) tryAcquireRun() bool {
	return atomic.CompareAndSwapInt32(&m.running, 0, 1)
}

func (m *Mailbox) releaseRun() {
	atomic.StoreInt32(&m.running, 0)
}
