package actor

import "runtime"

// UnhandledPolicy selects what happens when a Behavior reports a message
// as unmatched (§4.D).
type UnhandledPolicy uint8

const (
	// UnhandledPolicyDrop silently discards the message and keeps running.
	// This is the default — the corpus fragments never made the original
	// default explicit, so it is chosen here per spec.md §9's own note.
	UnhandledPolicyDrop UnhandledPolicy = iota
	// UnhandledPolicyExitUnhandled terminates the actor with ExitUnhandled.
	UnhandledPolicyExitUnhandled
)

func (p UnhandledPolicy) String() string {
	if p == UnhandledPolicyExitUnhandled {
		return "exit_unhandled"
	}
	return "drop"
}

// ActorOptions configures a single spawn call.
type ActorOptions struct {
	// Name, if non-empty, additionally registers the actor under this name
	// in the Registry's name map.
	Name string

	// MaxMailboxSize bounds the mailbox; 0 means unbounded (§9 Open
	// Question: no capacity bound was present in the retrieved fragments,
	// so it is modeled as optional here). When 0, the System-wide
	// Options.MaxMailboxSize applies.
	MaxMailboxSize int

	// UnhandledPolicy set to UnhandledPolicyExitUnhandled overrides the
	// System-wide default for this actor. The zero value,
	// UnhandledPolicyDrop, inherits the System-wide default, so a single
	// actor cannot select Drop on a System whose default is ExitUnhandled.
	UnhandledPolicy UnhandledPolicy

	// Init, if non-empty, is delivered as the actor's first message
	// immediately after spawn (§4.G: "places an initial start message if
	// the behavior model requires one").
	Init []any
}

// DefaultActorOptions returns the zero-value-safe defaults used when the
// caller does not care to set anything.
func DefaultActorOptions() ActorOptions {
	return ActorOptions{}
}

// Options configures a System as a whole (§6 configuration table).
type Options struct {
	// WorkerCount is N, the fixed size of the scheduler's worker pool.
	WorkerCount int
	// ExecutionQuantum is Q, the max envelopes dispatched per pickup.
	ExecutionQuantum int
	// UnhandledPolicy is the System-wide default unhandled-message policy.
	UnhandledPolicy UnhandledPolicy
	// MaxMailboxSize is the System-wide default mailbox capacity bound.
	// 0 means unbounded.
	MaxMailboxSize int
}

// DefaultOptions mirrors §6's table: worker_count defaults to hardware
// concurrency, execution_quantum to 64, unhandled_message_policy to drop,
// max_mailbox_size unbounded.
func DefaultOptions() Options {
	return Options{
		WorkerCount:      runtime.GOMAXPROCS(0),
		ExecutionQuantum: 64,
		UnhandledPolicy:  UnhandledPolicyDrop,
		MaxMailboxSize:   0,
	}
}
