package actor

// Link inserts each actor into the other's link set atomically with
// respect to any single terminate() call (§4.H). It is symmetric: either
// party terminating with a non-normal reason delivers an exit message to
// the other.
func Link(a, b StrongHandle) {
	if a.a == nil || b.a == nil || a.a == b.a {
		return
	}
	// Lock in a fixed order (by id) so two concurrent Link/Unlink calls on
	// the same pair can never deadlock against each other.
	first, second := a, b
	if first.a.id > second.a.id {
		first, second = second, first
	}
	first.a.linksMu.Lock()
	second.a.linksMu.Lock()
	if first.a.links != nil {
		first.a.links[second.a.id] = second.Clone()
	}
	if second.a.links != nil {
		second.a.links[first.a.id] = first.Clone()
	}
	second.a.linksMu.Unlock()
	first.a.linksMu.Unlock()
}

// Unlink removes a symmetric link relation, if one exists.
func Unlink(a, b StrongHandle) {
	if a.a == nil || b.a == nil {
		return
	}
	a.a.forgetLink(b.a.id)
	b.a.forgetLink(a.a.id)
}

// Monitor is asymmetric: watcher is notified with a DownMessage when
// target terminates, for any reason including normal (§4.H).
func Monitor(watcher, target StrongHandle) {
	if watcher.a == nil || target.a == nil || watcher.a == target.a {
		return
	}
	target.a.monitorsMu.Lock()
	if target.a.monitors != nil {
		target.a.monitors[watcher.a.id] = watcher.Clone()
	}
	target.a.monitorsMu.Unlock()
}

// Demonitor cancels a previously established Monitor relation.
func Demonitor(watcher, target StrongHandle) {
	if watcher.a == nil || target.a == nil {
		return
	}
	target.a.monitorsMu.Lock()
	if target.a.monitors != nil {
		delete(target.a.monitors, watcher.a.id)
	}
	target.a.monitorsMu.Unlock()
}

// deliverExit and deliverDown both enqueue at high priority per §4.H
// ("Exit delivery is a normal mailbox enqueue at high priority").
func deliverExit(to StrongHandle, from ActorId, reason ExitReason) {
	msg := NewMessage(ExitMessage{From: from, Reason: reason})
	mid := NewMessageId(nextSeq(), PriorityHigh, false)
	_ = to.Enqueue(Sender{}, mid, msg)
}

func deliverDown(to StrongHandle, from ActorId, reason ExitReason) {
	msg := NewMessage(DownMessage{From: from, Reason: reason})
	mid := NewMessageId(nextSeq(), PriorityHigh, false)
	_ = to.Enqueue(Sender{}, mid, msg)
}

// AnonSendExit constructs a high-priority exit envelope to addr, as if
// sent by no one in particular — used for system-level shutdown signals
// (§4.G, §6).
func AnonSendExit(addr StrongHandle, reason ExitReason) error {
	if !addr.Valid() {
		return nil
	}
	msg := NewMessage(ExitMessage{From: 0, Reason: reason})
	mid := NewMessageId(nextSeq(), PriorityHigh, false)
	return addr.Enqueue(Sender{}, mid, msg)
}
