package actor

import (
	"testing"
	"time"
)

// TestStrongHandleReleaseTerminatesAtZero exercises the Go-analogue
// refcounted lifecycle: dropping the last strong reference terminates
// the actor with ExitNormal, same as an explicit Terminate outcome.
func TestStrongHandleReleaseTerminatesAtZero(t *testing.T) {
	sys := NewSystem(Options{WorkerCount: 2})

	h, err := sys.Spawn(BehaviorFunc(func(ctx *Context, env Envelope) HandleOutcome {
		return Continue()
	}), DefaultActorOptions())
	if err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	clone := h.Clone()
	clone.Release()
	if !h.IsAlive() {
		t.Fatal("actor should still be alive after releasing only one of two strong references")
	}

	h.Release()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !h.IsAlive() {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if h.IsAlive() {
		t.Fatal("expected the actor to have terminated once strong count reached zero")
	}
}

// TestExitReasonObservableAfterTermination covers the ACB's exit-reason
// bookkeeping: unset while alive, set once terminated.
func TestExitReasonObservableAfterTermination(t *testing.T) {
	sys := NewSystem(Options{WorkerCount: 2})

	const reason ExitReason = 9
	h, err := sys.Spawn(BehaviorFunc(func(ctx *Context, env Envelope) HandleOutcome {
		return Terminate(reason)
	}), DefaultActorOptions())
	if err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	if _, alive := h.a.ExitReason(); alive {
		t.Error("expected ExitReason to report not-yet-terminated before any message")
	}

	if err := AnonSend(h, "go"); err != nil {
		t.Fatalf("AnonSend failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !h.IsAlive() {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	got, terminated := h.a.ExitReason()
	if !terminated {
		t.Fatal("expected ExitReason to report terminated")
	}
	if got != reason {
		t.Errorf("expected exit reason %d, got %d", reason, got)
	}
}

// TestWeakHandleResolveFailsAfterRetirement covers the strong/weak split:
// a weak reference never keeps the actor alive, and Resolve fails once
// the actor has retired.
func TestWeakHandleResolveFailsAfterRetirement(t *testing.T) {
	sys := NewSystem(Options{WorkerCount: 2})

	h, err := sys.Spawn(BehaviorFunc(func(ctx *Context, env Envelope) HandleOutcome {
		return Terminate(ExitNormal)
	}), DefaultActorOptions())
	if err != nil {
		t.Fatalf("spawn failed: %v", err)
	}
	weak := h.Weak()

	if err := AnonSend(h, "go"); err != nil {
		t.Fatalf("AnonSend failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !h.IsAlive() {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, ok := weak.Resolve(); ok {
		t.Error("expected Resolve to fail once the actor has retired")
	}
}

// TestInvalidHandleIsSafeEverywhere covers the Invalid sentinel: never an
// error to enqueue to or resolve, behaving as an already-terminated
// actor would.
func TestInvalidHandleIsSafeEverywhere(t *testing.T) {
	if Invalid.Valid() {
		t.Error("expected the zero-value StrongHandle to be invalid")
	}
	if Invalid.IsAlive() {
		t.Error("expected the zero-value StrongHandle to report not alive")
	}
	if err := AnonSend(Invalid, "x"); err != nil {
		t.Errorf("expected AnonSend to Invalid to be a silent no-op, got %v", err)
	}
	Invalid.Release() // must not panic
}
