package actor

import (
	"context"
	"sync/atomic"
)

// System owns one Registry, one Scheduler, and the well-known root actor
// (§4.G). Actors are only ever reachable through a System.
type System struct {
	opts     Options
	registry *Registry
	scheduler *Scheduler
	observer Observer

	idSeq        uint64 // atomic
	rootId       ActorId
	shuttingDown int32 // atomic bool
}

// rootBehavior is the well-known root actor's Behavior: it exists purely
// as a link/monitor anchor for system-wide shutdown (§4.G "a well-known
// root actor exists from system start, used as the anchor an operator
// shuts the whole system down through"). It terminates on the first
// ExitMessage it receives and otherwise ignores everything.
type rootBehavior struct{}

func (rootBehavior) Handle(ctx *Context, env Envelope) HandleOutcome {
	if env.Msg.Len() == 1 {
		if em, ok := env.Msg.At(0).(ExitMessage); ok {
			return Terminate(em.Reason)
		}
	}
	return Continue()
}

// NewSystem constructs a System with its scheduler pool already running
// and the root actor spawned.
func NewSystem(opts Options) *System {
	if opts.WorkerCount <= 0 {
		opts = DefaultOptions()
	}
	sys := &System{
		opts:     opts,
		registry: NewRegistry(),
		observer: NoopObserver{},
	}
	sys.scheduler = NewScheduler(opts, sys.registry)

	root, err := sys.spawnCounted(rootBehavior{}, ActorOptions{Name: "root"}, false)
	if err != nil {
		// Only possible cause is a name collision, impossible on a fresh
		// registry; a panic here means NewSystem was misused concurrently
		// with another System sharing state, which cannot happen since
		// each System owns its own Registry.
		panic(err)
	}
	sys.rootId = root.ID()
	return sys
}

// SetObserver installs a hook implementation; call before any activity
// for well-defined coverage, though it is safe to swap at any time.
func (s *System) SetObserver(o Observer) {
	if o == nil {
		o = NoopObserver{}
	}
	s.observer = o
}

// RootId returns the id of the well-known root actor (§4.G).
func (s *System) RootId() ActorId { return s.rootId }

// Registry exposes the System's actor registry for lookups (§4.F).
func (s *System) Registry() *Registry { return s.registry }

func (s *System) isShuttingDown() bool {
	return atomic.LoadInt32(&s.shuttingDown) == 1
}

// Spawn creates a new top-level actor. Returns ErrSystemShuttingDown once
// Shutdown has been called, and ErrNameTaken if opts.Name collides with
// an already-registered name.
func (s *System) Spawn(b Behavior, opts ActorOptions) (StrongHandle, error) {
	if s.isShuttingDown() {
		return Invalid, ErrSystemShuttingDown
	}
	return s.spawn(b, opts)
}

// spawn is the internal helper shared by Spawn and Context.Spawn; it
// counts the new actor toward the running set used by quiescence.
func (s *System) spawn(b Behavior, opts ActorOptions) (StrongHandle, error) {
	return s.spawnCounted(b, opts, true)
}

// spawnCounted additionally lets the root-actor bootstrap in NewSystem
// bypass the shuttingDown check (it runs before the System is reachable
// by any caller) and, via countRunning=false, keep the well-known root
// out of the running set entirely: root only terminates as the final
// act of Shutdown, so counting it would make the running count's floor
// 1 instead of 0 and AwaitQuiescence/AwaitRunningCountEqual(0) could
// never observe a quiescent System on its own.
func (s *System) spawnCounted(b Behavior, opts ActorOptions, countRunning bool) (StrongHandle, error) {
	id := ActorId(atomic.AddUint64(&s.idSeq, 1))
	// ActorOptions.UnhandledPolicy has no "unset" sentinel distinct from
	// UnhandledPolicyDrop, so a spawn that does not care inherits the
	// System-wide default; callers that specifically want Drop on a
	// System whose default is ExitUnhandled must say so some other way
	// (this mirrors the ambiguity §9 itself leaves open).
	if opts.UnhandledPolicy == UnhandledPolicyDrop {
		opts.UnhandledPolicy = s.opts.UnhandledPolicy
	}
	// Likewise, an unset (0) per-actor mailbox bound inherits the
	// System-wide default.
	if opts.MaxMailboxSize == 0 {
		opts.MaxMailboxSize = s.opts.MaxMailboxSize
	}
	a := newACB(s, id, opts.Name, b, opts)
	h := StrongHandle{a: a}

	// The registry's own map entries are deliberately NOT produced via
	// h.Clone(): if they were, the registry would hold a strong reference
	// that only terminate() could ever release, but terminate() is itself
	// one of the two triggers for reaching strong == 0. Storing the raw
	// handle here keeps Release()-driven and Terminate()-outcome-driven
	// termination both live without that circularity (see DESIGN.md).
	if opts.Name != "" {
		if !s.registry.PutName(opts.Name, h) {
			return Invalid, ErrNameTaken
		}
	}
	s.registry.PutID(id, h)
	if countRunning {
		s.registry.IncRunning(id)
	}

	if len(opts.Init) > 0 {
		mid := NewMessageId(nextSeq(), PriorityNormal, false)
		_ = h.Enqueue(Sender{}, mid, NewMessage(opts.Init...))
	}

	return h, nil
}

// Shutdown signals the well-known root actor to exit, begins draining the
// scheduler, and waits for quiescence or ctx's deadline, whichever comes
// first (§4.G "graceful shutdown: signal the root, wait for the running
// count to reach zero, then join worker threads").
func (s *System) Shutdown(ctx context.Context) error {
	atomic.StoreInt32(&s.shuttingDown, 1)

	root := s.registry.GetID(s.rootId)
	_ = AnonSendExit(root, ExitNormal)

	s.scheduler.BeginDrain()

	if err := s.AwaitQuiescence(ctx); err != nil {
		return err
	}
	s.scheduler.JoinWorkers()
	return nil
}

// AwaitQuiescence blocks until every actor in the System has terminated,
// or ctx is done first. Grounded on original_source/CAF's
// await_all_actors_done, adapted to Go's context.Context cancellation
// idiom in place of a fixed timeout parameter (see SPEC_FULL.md
// Supplemented Features).
func (s *System) AwaitQuiescence(ctx context.Context) error {
	return s.registry.AwaitRunningCountEqualContext(ctx, 0)
}
