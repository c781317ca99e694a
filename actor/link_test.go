package actor

import (
	"testing"
	"time"
)

// exitOnExitMessage terminates with whatever reason it is told to exit
// with, mirroring the well-known root actor's own Behavior — grounded on
// system.go's rootBehavior.
type exitOnExitMessage struct{}

func (exitOnExitMessage) Handle(ctx *Context, env Envelope) HandleOutcome {
	if env.Msg.Len() == 1 {
		if em, ok := env.Msg.At(0).(ExitMessage); ok {
			return Terminate(em.Reason)
		}
	}
	return Continue()
}

// TestLinkPropagation covers invariant #6 and the "Link propagation"
// scenario: link(A,B); A exits with reason=7; B's mailbox must receive
// an exit envelope with reason=7, exactly once.
func TestLinkPropagation(t *testing.T) {
	sys := NewSystem(Options{WorkerCount: 2})

	a, err := sys.Spawn(exitOnExitMessage{}, DefaultActorOptions())
	if err != nil {
		t.Fatalf("spawn a failed: %v", err)
	}

	received := make(chan ExitMessage, 2)
	b, err := sys.Spawn(BehaviorFunc(func(ctx *Context, env Envelope) HandleOutcome {
		if em, ok := env.Msg.At(0).(ExitMessage); ok {
			received <- em
		}
		return Continue()
	}), DefaultActorOptions())
	if err != nil {
		t.Fatalf("spawn b failed: %v", err)
	}

	Link(a, b)

	const reason ExitReason = 7
	if err := AnonSendExit(a, reason); err != nil {
		t.Fatalf("AnonSendExit failed: %v", err)
	}

	select {
	case em := <-received:
		if em.From != a.ID() {
			t.Errorf("expected exit envelope From=%d, got %d", a.ID(), em.From)
		}
		if em.Reason != reason {
			t.Errorf("expected exit envelope Reason=%d, got %d", reason, em.Reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("b never received the linked exit envelope from a")
	}

	select {
	case em := <-received:
		t.Fatalf("expected exactly one exit envelope, got a second: %+v", em)
	case <-time.After(50 * time.Millisecond):
	}
}

// TestLinkSymmetry verifies Link is symmetric: b exiting abnormally
// notifies a just as a exiting notifies b.
func TestLinkSymmetry(t *testing.T) {
	sys := NewSystem(Options{WorkerCount: 2})

	received := make(chan ExitMessage, 1)
	a, err := sys.Spawn(BehaviorFunc(func(ctx *Context, env Envelope) HandleOutcome {
		if em, ok := env.Msg.At(0).(ExitMessage); ok {
			received <- em
		}
		return Continue()
	}), DefaultActorOptions())
	if err != nil {
		t.Fatalf("spawn a failed: %v", err)
	}

	b, err := sys.Spawn(exitOnExitMessage{}, DefaultActorOptions())
	if err != nil {
		t.Fatalf("spawn b failed: %v", err)
	}

	Link(a, b)

	const reason ExitReason = 13
	if err := AnonSendExit(b, reason); err != nil {
		t.Fatalf("AnonSendExit failed: %v", err)
	}

	select {
	case em := <-received:
		if em.From != b.ID() || em.Reason != reason {
			t.Errorf("expected exit from b with reason %d, got From=%d Reason=%d", reason, em.From, em.Reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("a never received the linked exit envelope from b")
	}
}

// TestMonitorNotifiesOnNormalExit covers §4.H's distinction from Link:
// a monitor is notified on any termination, including a normal one.
func TestMonitorNotifiesOnNormalExit(t *testing.T) {
	sys := NewSystem(Options{WorkerCount: 2})

	target, err := sys.Spawn(BehaviorFunc(func(ctx *Context, env Envelope) HandleOutcome {
		return Terminate(ExitNormal)
	}), DefaultActorOptions())
	if err != nil {
		t.Fatalf("spawn target failed: %v", err)
	}

	down := make(chan DownMessage, 1)
	watcher, err := sys.Spawn(BehaviorFunc(func(ctx *Context, env Envelope) HandleOutcome {
		if dm, ok := env.Msg.At(0).(DownMessage); ok {
			down <- dm
		}
		return Continue()
	}), DefaultActorOptions())
	if err != nil {
		t.Fatalf("spawn watcher failed: %v", err)
	}

	Monitor(watcher, target)
	if err := AnonSend(target, "go"); err != nil {
		t.Fatalf("AnonSend failed: %v", err)
	}

	select {
	case dm := <-down:
		if dm.From != target.ID() || dm.Reason != ExitNormal {
			t.Errorf("expected DownMessage{From:%d, Reason:normal}, got %+v", target.ID(), dm)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher never received a DownMessage for target's normal exit")
	}
}
