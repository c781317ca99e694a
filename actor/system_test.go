package actor

import (
	"context"
	"sync"
	"testing"
	"time"
)

// countingBehavior wraps a handler function and counts how many
// envelopes it was invoked with, used by the ping-pong scenario below to
// assert "B receives 1 message; A receives 1 message".
type countingBehavior struct {
	mu    sync.Mutex
	count int
	fn    func(ctx *Context, env Envelope) HandleOutcome
}

func (c *countingBehavior) Handle(ctx *Context, env Envelope) HandleOutcome {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
	return c.fn(ctx, env)
}

func (c *countingBehavior) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// TestPingPongScenario covers the ping-pong scenario: A sends
// {ping} to B, B replies {pong} to A, A exits with reason 0. Expected:
// the registry quiesces, B receives 1 message, A receives 1 message.
func TestPingPongScenario(t *testing.T) {
	sys := NewSystem(Options{WorkerCount: 2})

	b := &countingBehavior{}
	b.fn = func(ctx *Context, env Envelope) HandleOutcome {
		if env.Msg.At(0) != "ping" {
			return Continue()
		}
		if sender, ok := env.Sender.Resolve(); ok {
			_ = ctx.SendAs(PriorityNormal, sender, "pong")
			sender.Release()
		}
		return Terminate(ExitNormal)
	}
	bHandle, err := sys.Spawn(b, DefaultActorOptions())
	if err != nil {
		t.Fatalf("spawn b failed: %v", err)
	}

	a := &countingBehavior{}
	a.fn = func(ctx *Context, env Envelope) HandleOutcome {
		if env.Msg.At(0) == "pong" {
			return Terminate(ExitNormal)
		}
		return Continue()
	}
	aHandle, err := sys.Spawn(a, DefaultActorOptions())
	if err != nil {
		t.Fatalf("spawn a failed: %v", err)
	}

	if err := SendAs(aHandle.Weak(), PriorityNormal, bHandle, "ping"); err != nil {
		t.Fatalf("SendAs failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sys.AwaitQuiescence(ctx); err != nil {
		t.Fatalf("registry never quiesced: %v", err)
	}

	if got := a.Count(); got != 1 {
		t.Errorf("expected A to receive exactly 1 message, got %d", got)
	}
	if got := b.Count(); got != 1 {
		t.Errorf("expected B to receive exactly 1 message, got %d", got)
	}
}

// TestFanOutOrdering covers the "Fan-out correctness" scenario: 10
// senders each send 1000 tagged messages to one receiver. Expected:
// per-sender messages 0..999 arrive in order, 10000 total.
func TestFanOutOrdering(t *testing.T) {
	const senders = 10
	const perSender = 1000

	sys := NewSystem(Options{WorkerCount: 8})

	var mu sync.Mutex
	seen := make(map[int][]int, senders)
	total := 0
	done := make(chan struct{})

	recv, err := sys.Spawn(BehaviorFunc(func(ctx *Context, env Envelope) HandleOutcome {
		tag := env.Msg.At(0).(int)
		seq := env.Msg.At(1).(int)

		mu.Lock()
		seen[tag] = append(seen[tag], seq)
		total++
		reachedAll := total == senders*perSender
		mu.Unlock()

		if reachedAll {
			close(done)
		}
		return Continue()
	}), DefaultActorOptions())
	if err != nil {
		t.Fatalf("spawn receiver failed: %v", err)
	}

	var wg sync.WaitGroup
	for s := 0; s < senders; s++ {
		s := s
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seq := 0; seq < perSender; seq++ {
				if err := AnonSend(recv, s, seq); err != nil {
					t.Errorf("AnonSend failed: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("expected %d total messages, got %d before timing out", senders*perSender, total)
	}

	mu.Lock()
	defer mu.Unlock()
	if total != senders*perSender {
		t.Fatalf("expected %d total messages, got %d", senders*perSender, total)
	}
	for tag := 0; tag < senders; tag++ {
		seq := seen[tag]
		if len(seq) != perSender {
			t.Fatalf("sender %d: expected %d messages, got %d", tag, perSender, len(seq))
		}
		for i, v := range seq {
			if v != i {
				t.Fatalf("sender %d: expected message %d in send order, got %d at position %d", tag, i, v, i)
			}
		}
	}
}

// TestRunExclusivityUnderConcurrentSends covers invariant #2 end to end:
// at most one worker executes a given actor's Behavior at a time. A
// deliberately unsynchronized counter inside Handle would lose
// increments under any concurrent invocation, so an exact final count
// demonstrates exclusivity held throughout.
func TestRunExclusivityUnderConcurrentSends(t *testing.T) {
	const total = 5000
	const producers = 50

	sys := NewSystem(Options{WorkerCount: 8})

	n := 0
	done := make(chan struct{})
	h, err := sys.Spawn(BehaviorFunc(func(ctx *Context, env Envelope) HandleOutcome {
		n++
		if n == total {
			close(done)
		}
		return Continue()
	}), DefaultActorOptions())
	if err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < total/producers; j++ {
				_ = AnonSend(h, j)
			}
		}()
	}
	wg.Wait()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("expected exactly %d increments under mailbox run-exclusivity, saw %d", total, n)
	}
}

// TestShutdownUnderLoad covers the "Shutdown under load" scenario: spawn
// 1000 actors each sending 100 self-messages, call shutdown. Expected:
// all actors retired, all workers joined, no leaks of ACBs (observed
// here as the running count returning to zero).
func TestShutdownUnderLoad(t *testing.T) {
	const actors = 1000
	const selfSends = 100

	sys := NewSystem(Options{WorkerCount: 8})

	newSelfSendingBehavior := func() Behavior {
		count := 0
		return BehaviorFunc(func(ctx *Context, env Envelope) HandleOutcome {
			count++
			if count >= selfSends {
				return Terminate(ExitNormal)
			}
			_ = ctx.AnonSend(ctx.Self(), "tick")
			return Continue()
		})
	}

	for i := 0; i < actors; i++ {
		if _, err := sys.Spawn(newSelfSendingBehavior(), ActorOptions{Init: []any{"start"}}); err != nil {
			t.Fatalf("spawn %d failed: %v", i, err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sys.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	if rc := sys.Registry().RunningCount(); rc != 0 {
		t.Errorf("expected running count 0 after shutdown, got %d", rc)
	}
}

// TestSpawnAfterShutdownRejected exercises §7's SystemShuttingDown error.
func TestSpawnAfterShutdownRejected(t *testing.T) {
	sys := NewSystem(Options{WorkerCount: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sys.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	if _, err := sys.Spawn(BehaviorFunc(func(ctx *Context, env Envelope) HandleOutcome {
		return Continue()
	}), DefaultActorOptions()); err != ErrSystemShuttingDown {
		t.Errorf("expected ErrSystemShuttingDown, got %v", err)
	}
}
