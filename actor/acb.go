package actor

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// ActorId is a monotonically increasing 64-bit identifier, unique within a
// System and never reused.
type ActorId uint64

type lifecycleState int32

const (
	lifecycleSpawn lifecycleState = iota
	lifecycleRunning
	lifecycleTerminating
	lifecycleRetired
)

func (s lifecycleState) String() string {
	switch s {
	case lifecycleSpawn:
		return "spawn"
	case lifecycleRunning:
		return "running"
	case lifecycleTerminating:
		return "terminating"
	case lifecycleRetired:
		return "retired"
	default:
		return "unknown"
	}
}

// acb is the Actor Control Block: the stable identity of an actor (§3,
// §4.C). It is created exclusively by System.spawn and is never exposed
// directly — callers only ever see it through StrongHandle/Sender (a weak
// handle).
type acb struct {
	id   ActorId
	name string // best-effort, for logs; Registry's name map is authoritative
	sys  *System

	strong int64 // atomic: handles keep the actor reachable
	weak   int64 // atomic: handles keep the acb struct itself inspectable

	mailbox *Mailbox

	behaviorMu sync.Mutex
	behavior   Behavior
	unhandled  UnhandledPolicy

	linksMu sync.Mutex
	links   map[ActorId]StrongHandle

	monitorsMu sync.Mutex
	monitors   map[ActorId]StrongHandle

	lifecycle  int32 // lifecycleState, atomic
	exitReason atomic.Value
}

func newACB(sys *System, id ActorId, name string, b Behavior, opts ActorOptions) *acb {
	a := &acb{
		id:        id,
		name:      name,
		sys:       sys,
		strong:    1,
		mailbox:   NewMailbox(opts.MaxMailboxSize),
		behavior:  b,
		unhandled: opts.UnhandledPolicy,
		links:     make(map[ActorId]StrongHandle),
		monitors:  make(map[ActorId]StrongHandle),
	}
	atomic.StoreInt32(&a.lifecycle, int32(lifecycleSpawn))
	return a
}

func (a *acb) state() lifecycleState {
	return lifecycleState(atomic.LoadInt32(&a.lifecycle))
}

// markRunning transitions Spawn -> Running on the first dispatch; a
// no-op once already Running. Panics (fatal assertion, §7) if called
// after Terminating/Retired — the scheduler must never invoke a
// Behavior once an actor has begun terminating (§5 invariant #4).
func (a *acb) markRunning() {
	for {
		cur := a.state()
		switch cur {
		case lifecycleSpawn:
			if atomic.CompareAndSwapInt32(&a.lifecycle, int32(lifecycleSpawn), int32(lifecycleRunning)) {
				return
			}
		case lifecycleRunning:
			return
		default:
			panic(fmt.Sprintf("actor %d: Behavior invoked after Terminating (state=%s)", a.id, cur))
		}
	}
}

// terminate runs the on-exit actions exactly once (§4.C). It is reachable
// both from an explicit Terminate(reason) outcome and from a strong
// handle's Release dropping the count to zero; whichever arrives first
// wins, the other is a silent no-op — this is a normal race, not a
// programmer error, so no assertion fires here.
func (a *acb) terminate(reason ExitReason) {
	if !atomic.CompareAndSwapInt32(&a.lifecycle, int32(lifecycleSpawn), int32(lifecycleTerminating)) {
		if !atomic.CompareAndSwapInt32(&a.lifecycle, int32(lifecycleRunning), int32(lifecycleTerminating)) {
			return
		}
	}

	a.exitReason.Store(&reason)
	a.mailbox.Close()

	a.linksMu.Lock()
	links := make([]StrongHandle, 0, len(a.links))
	for _, h := range a.links {
		links = append(links, h)
	}
	a.links = nil
	a.linksMu.Unlock()

	a.monitorsMu.Lock()
	monitors := make([]StrongHandle, 0, len(a.monitors))
	for _, h := range a.monitors {
		monitors = append(monitors, h)
	}
	a.monitors = nil
	a.monitorsMu.Unlock()

	for _, peer := range links {
		peer.a.forgetLink(a.id)
		if reason != ExitNormal {
			deliverExit(peer, a.id, reason)
		}
	}
	for _, m := range monitors {
		deliverDown(m, a.id, reason)
	}

	a.sys.registry.DecRunning(a.id)
	a.sys.registry.EraseID(a.id)
	if a.name != "" {
		a.sys.registry.EraseName(a.name)
	}

	atomic.StoreInt32(&a.lifecycle, int32(lifecycleRetired))
	a.sys.observer.ActorTerminated(a.id, reason)
}

// isTerminating reports whether the actor has begun (or finished)
// terminating, used by the worker loop to stop dispatching further
// envelopes from the current quantum once a Terminate outcome lands.
func (a *acb) isTerminating() bool {
	s := a.state()
	return s == lifecycleTerminating || s == lifecycleRetired
}

// applyOutcome interprets the HandleOutcome returned by one Behavior
// invocation: install a replacement Behavior, terminate, or resolve an
// Unhandled outcome via the actor's configured UnhandledPolicy (§4.G).
// Called with behaviorMu held.
func (a *acb) applyOutcome(o HandleOutcome) {
	switch o.kind {
	case outcomeContinue:
	case outcomeReplace:
		a.behavior = o.next
	case outcomeTerminate:
		a.terminate(o.reason)
	case outcomeUnhandled:
		if a.unhandled == UnhandledPolicyExitUnhandled {
			a.terminate(ExitUnhandled)
		}
	}
}

func (a *acb) forgetLink(peer ActorId) {
	a.linksMu.Lock()
	if a.links != nil {
		delete(a.links, peer)
	}
	a.linksMu.Unlock()
}

// ExitReason returns the reason the actor terminated with, or
// (ExitNormal, false) if it is still alive.
func (a *acb) ExitReason() (ExitReason, bool) {
	v := a.exitReason.Load()
	if v == nil {
		return ExitNormal, false
	}
	return *v.(*ExitReason), true
}

// StrongHandle is a strong reference to an actor: it keeps the actor
// reachable (spec: "the actor lives while strong > 0") and is the handle
// type returned by Spawn, Registry.GetID, and Registry.GetName.
type StrongHandle struct {
	a *acb
}

// Invalid is the sentinel StrongHandle: no actor, never an error to
// receive or to enqueue to (it behaves as if the target had terminated).
var Invalid StrongHandle

// Valid reports whether this handle refers to an actor at all (it says
// nothing about whether that actor is still alive — see IsAlive).
func (h StrongHandle) Valid() bool { return h.a != nil }

// IsAlive reports whether the referenced actor has not yet retired.
func (h StrongHandle) IsAlive() bool {
	return h.a != nil && h.a.state() != lifecycleRetired
}

// ID returns the ActorId this handle refers to, or 0 for Invalid.
func (h StrongHandle) ID() ActorId {
	if h.a == nil {
		return 0
	}
	return h.a.id
}

// Clone returns a new StrongHandle to the same actor, incrementing the
// strong count.
func (h StrongHandle) Clone() StrongHandle {
	if h.a == nil {
		return h
	}
	atomic.AddInt64(&h.a.strong, 1)
	return h
}

// Release drops a strong reference. If this was the last one outstanding,
// the actor terminates with ExitNormal — the Go analogue of the
// C++-style "actor lives while strong > 0" rule, offered alongside
// explicit Behavior-driven termination rather than instead of it (see
// DESIGN.md for the rationale).
func (h StrongHandle) Release() {
	if h.a == nil {
		return
	}
	if atomic.AddInt64(&h.a.strong, -1) == 0 {
		h.a.terminate(ExitNormal)
	}
}

// Weak produces a weak reference to the same actor. Weak references never
// keep the actor alive, only the control block itself inspectable.
func (h StrongHandle) Weak() WeakHandle {
	if h.a == nil {
		return WeakHandle{}
	}
	atomic.AddInt64(&h.a.weak, 1)
	return WeakHandle{a: h.a}
}

// Enqueue is the single message-delivery verb (§6): used by send helpers,
// timers, and any inbound adapter alike. It never returns a delivery
// error to the caller — per §7, delivery is asynchronous and best-effort;
// observability happens through link/monitor messages instead.
func (h StrongHandle) Enqueue(sender Sender, mid MessageId, msg Message) error {
	if h.a == nil {
		return nil
	}
	a := h.a
	a.sys.observer.MessageEnqueued(a.id, mid)
	switch a.mailbox.Push(sender, mid, msg) {
	case PushUnblocked:
		a.sys.scheduler.ScheduleExternal(a)
	case PushClosed:
		// DeliveryToClosedMailbox: silent to the sender (§7); links and
		// monitors were already notified when the actor terminated.
	}
	return nil
}

// WeakHandle is an optional weak reference to an originating actor's
// address, carried on every Message as its Sender field (§3).
type WeakHandle struct {
	a *acb
}

// Sender is the type used for the originating-actor field on envelopes.
type Sender = WeakHandle

// ID returns the referenced ActorId, or 0 for the zero value.
func (w WeakHandle) ID() ActorId {
	if w.a == nil {
		return 0
	}
	return w.a.id
}

// Valid reports whether this weak handle refers to an actor at all.
func (w WeakHandle) Valid() bool { return w.a != nil }

// Resolve attempts to upgrade the weak reference to a strong one. It
// fails once the referenced actor has retired.
func (w WeakHandle) Resolve() (StrongHandle, bool) {
	if w.a == nil {
		return StrongHandle{}, false
	}
	if w.a.state() == lifecycleRetired {
		return StrongHandle{}, false
	}
	atomic.AddInt64(&w.a.strong, 1)
	return StrongHandle{a: w.a}, true
}

// Release drops a weak reference.
func (w WeakHandle) Release() {
	if w.a == nil {
		return
	}
	atomic.AddInt64(&w.a.weak, -1)
}
