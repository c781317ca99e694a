package actor

// Observer exposes lifecycle hook points for tracing and metrics:
// optional, no-op by default, wireable to any backend without the
// core depending on one. See the observability package for a
// logrus-backed implementation.
type Observer interface {
	MessageEnqueued(target ActorId, mid MessageId)
	ActorScheduled(target ActorId)
	ActorTerminated(target ActorId, reason ExitReason)
}

// NoopObserver implements Observer with no-ops; it is the System default.
type NoopObserver struct{}

func (NoopObserver) MessageEnqueued(ActorId, MessageId)   {}
func (NoopObserver) ActorScheduled(ActorId)               {}
func (NoopObserver) ActorTerminated(ActorId, ExitReason)  {}
