package cluster

import (
	"context"
	"log"
	"time"

	"github.com/relaymesh/actorcore/actor"
)

// ExitPeerUnreachable is the exit reason a probe actor terminates with
// once its peer has missed too many consecutive heartbeats in a row.
const ExitPeerUnreachable actor.ExitReason = 100

// peerJoined tells the membership actor to start probing a newly
// discovered remote node.
type peerJoined struct {
	node Node
}

// peerLeft tells the membership actor a node left cleanly; its probe
// is stopped without treating the exit as a failure.
type peerLeft struct {
	nodeID NodeID
}

// tickAll drives every probe actor's periodic health check, sent by a
// single ticker goroutine shared across the whole membership subsystem
// rather than one ticker per probe.
type tickAll struct{}

// probeTick is forwarded from the membership actor to each probe.
type probeTick struct{}

// newMembershipBehavior returns the per-local-node membership actor:
// it owns one linked probe actor per known peer, and turns an abnormal
// probe exit into a node state transition plus a ClusterEvent. This is
// the actor-supervised replacement for the polling
// heartbeatLoop/failureDetectionLoop pair.
func newMembershipBehavior(cm *clusterManager) actor.Behavior {
	m := &membershipState{cm: cm, probes: make(map[NodeID]actor.StrongHandle)}
	return actor.BehaviorFunc(m.handle)
}

type membershipState struct {
	cm     *clusterManager
	probes map[NodeID]actor.StrongHandle
}

func (m *membershipState) handle(ctx *actor.Context, env actor.Envelope) actor.HandleOutcome {
	if env.Msg.Len() != 1 {
		return actor.Unhandled()
	}
	switch v := env.Msg.At(0).(type) {
	case peerJoined:
		m.startProbe(ctx, v.node)
		return actor.Continue()
	case peerLeft:
		m.stopProbe(v.nodeID)
		return actor.Continue()
	case tickAll:
		m.tickProbes(ctx)
		return actor.Continue()
	case actor.ExitMessage:
		m.handleProbeDown(actor.DownMessage{From: v.From, Reason: v.Reason})
		return actor.Continue()
	case actor.DownMessage:
		m.handleProbeDown(v)
		return actor.Continue()
	default:
		return actor.Unhandled()
	}
}

func (m *membershipState) startProbe(ctx *actor.Context, node Node) {
	nodeID := node.ID()
	if _, exists := m.probes[nodeID]; exists {
		return
	}
	h, err := ctx.Spawn(newProbeBehavior(nodeID, m.cm), actor.DefaultActorOptions())
	if err != nil {
		log.Printf("cluster: failed to spawn probe for %s: %v", nodeID, err)
		return
	}
	actor.Link(ctx.Self(), h)
	m.probes[nodeID] = h
	log.Printf("cluster: probing peer %s", nodeID)
}

func (m *membershipState) stopProbe(nodeID NodeID) {
	h, ok := m.probes[nodeID]
	if !ok {
		return
	}
	_ = actor.AnonSendExit(h, actor.ExitNormal)
	delete(m.probes, nodeID)
}

func (m *membershipState) tickProbes(ctx *actor.Context) {
	for _, h := range m.probes {
		_ = ctx.AnonSend(h, probeTick{})
	}
}

// handleProbeDown handles a probe exit reported over the Link between the
// membership actor and a probe it supervises (Link delivers it as an
// ExitMessage, only for a non-normal reason). A normal exit means the probe was
// deliberately stopped (peerLeft); anything else means the peer missed
// too many heartbeats and the node transitions to Failed.
func (m *membershipState) handleProbeDown(down actor.DownMessage) {
	for nodeID, h := range m.probes {
		if h.ID() != down.From {
			continue
		}
		delete(m.probes, nodeID)
		if down.Reason == actor.ExitNormal {
			return
		}
		if node, exists := m.cm.GetNode(nodeID); exists {
			node.UpdateState(NodeStateFailed)
			log.Printf("cluster: peer %s marked failed (probe exited: %s)", nodeID, down.Reason)
		}
		return
	}
}

// probeState pings one peer on every tick and counts consecutive
// misses; reaching maxMisses terminates the probe abnormally, which
// the membership actor's Link reports as an ExitMessage.
type probeState struct {
	nodeID    NodeID
	cm        *clusterManager
	misses    int
	maxMisses int
}

func newProbeBehavior(nodeID NodeID, cm *clusterManager) actor.Behavior {
	return actor.BehaviorFunc((&probeState{nodeID: nodeID, cm: cm, maxMisses: 3}).handle)
}

func (p *probeState) handle(ctx *actor.Context, env actor.Envelope) actor.HandleOutcome {
	if env.Msg.Len() != 1 {
		return actor.Unhandled()
	}
	if _, ok := env.Msg.At(0).(probeTick); !ok {
		return actor.Unhandled()
	}

	node, exists := p.cm.GetNode(p.nodeID)
	if !exists {
		return actor.Terminate(actor.ExitNormal)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), p.cm.config.HeartbeatInterval)
	_, err := node.Ping(pingCtx)
	cancel()

	if err != nil {
		p.misses++
	} else {
		p.misses = 0
	}
	if p.misses >= p.maxMisses {
		return actor.Terminate(ExitPeerUnreachable)
	}
	return actor.Continue()
}

// membershipTicker periodically wakes the membership actor to drive
// all of its probes, mirroring a heartbeatLoop goroutine shape — the
// actor core has no self-scheduling primitive, so an external ticker
// feeding the mailbox is the idiomatic bridge.
func membershipTicker(ctx context.Context, interval time.Duration, membership actor.StrongHandle) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = actor.AnonSend(membership, tickAll{})
		}
	}
}
