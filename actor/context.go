package actor

// Context is handed to a Behavior on every invocation. It carries the
// actor's own address and a hint to the scheduler about which worker is
// currently executing it, so that sends issued from inside a Behavior can
// take the cheaper local-deque path described in §4.E, while sends issued
// from outside (timers, network adapters, other goroutines) always go
// through the global injection queue via StrongHandle.Enqueue directly.
type Context struct {
	sys  *System
	self StrongHandle
	w    *worker
}

// Self returns a handle to the actor currently being executed.
func (c *Context) Self() StrongHandle { return c.self }

// System returns the owning System.
func (c *Context) System() *System { return c.sys }

// Spawn creates a child actor from within a Behavior invocation.
func (c *Context) Spawn(b Behavior, opts ActorOptions) (StrongHandle, error) {
	return c.sys.spawn(b, opts)
}

// SendAs composes Enqueue with a MessageId carrying the given priority,
// using this actor as the sender.
func (c *Context) SendAs(priority Priority, to StrongHandle, values ...any) error {
	if !to.Valid() {
		return nil
	}
	msg := NewMessage(values...)
	mid := NewMessageId(nextSeq(), priority, false)
	return c.enqueue(to, c.self.Weak(), mid, msg)
}

// AnonSend is SendAs with an invalid sender and normal priority.
func (c *Context) AnonSend(to StrongHandle, values ...any) error {
	if !to.Valid() {
		return nil
	}
	msg := NewMessage(values...)
	mid := NewMessageId(nextSeq(), PriorityNormal, false)
	return c.enqueue(to, Sender{}, mid, msg)
}

// enqueue pushes directly into the target mailbox and, on Unblocked,
// schedules the target on the calling worker's local deque when one is
// known, falling back to the global injection queue otherwise (§4.E).
func (c *Context) enqueue(to StrongHandle, sender Sender, mid MessageId, msg Message) error {
	a := to.a
	a.sys.observer.MessageEnqueued(a.id, mid)
	switch a.mailbox.Push(sender, mid, msg) {
	case PushUnblocked:
		if c.w != nil {
			c.w.scheduleLocal(a)
		} else {
			a.sys.scheduler.ScheduleExternal(a)
		}
	case PushClosed:
	}
	return nil
}

// SendAs is the free-function convenience form of §6: composes Enqueue
// with a MessageId carrying the given priority. Used by callers outside
// any Behavior invocation (timers, adapters, tests).
func SendAs(from Sender, priority Priority, to StrongHandle, values ...any) error {
	if !to.Valid() {
		return nil
	}
	msg := NewMessage(values...)
	mid := NewMessageId(nextSeq(), priority, false)
	return to.Enqueue(from, mid, msg)
}

// AnonSend is SendAs with an invalid sender and normal priority.
func AnonSend(to StrongHandle, values ...any) error {
	return SendAs(Sender{}, PriorityNormal, to, values...)
}
