package network

import (
	"strconv"

	"github.com/relaymesh/actorcore/actor"
)

// ActorBridge adapts a network.Server's incoming connections and messages
// into sends against a single target actor's mailbox, implementing
// ConnectionHandler and MessageHandler. This is the "inbound adapter"
// collaborator: the actor core never imports net or network, it only ever
// sees actor.StrongHandle.Enqueue calls, the same verb any other external
// caller uses (§6).
//
// Each connection's ID (ConnID) becomes part of the delivered value tuple so
// the target actor's Behavior can route replies back through
// ConnectionManager without the core knowing anything about sockets.
type ActorBridge struct {
	target actor.StrongHandle
	mgr    ConnectionManager
}

// NewActorBridge builds a bridge that forwards everything it sees to
// target, optionally through mgr for connection bookkeeping (mgr may be
// nil if the caller only wants message forwarding).
func NewActorBridge(target actor.StrongHandle, mgr ConnectionManager) *ActorBridge {
	return &ActorBridge{target: target, mgr: mgr}
}

// InboundMessage is the value delivered to the target actor's mailbox for
// every network.Message received on any connection.
type InboundMessage struct {
	ConnID string
	Msg    *Message
}

// ConnectionOpened and ConnectionClosed mirror InboundMessage for the
// connection lifecycle, letting the target actor track sessions (e.g. in
// a per-connection child actor spawned on open).
type ConnectionOpened struct {
	ConnID string
	Conn   Connection
}

type ConnectionClosed struct {
	ConnID string
	Err    error
}

// OutboundMessage is sent BY an actor TO whatever owns the
// ConnectionManager for a connection, asking it to write msg back out
// on the wire. It is the write-path counterpart to InboundMessage.
type OutboundMessage struct {
	ConnID string
	Msg    *Message
}

func (b *ActorBridge) OnConnect(conn Connection) {
	conn.SetActorCorrelationID(strconv.FormatUint(uint64(b.target.ID()), 10))
	if b.mgr != nil {
		_ = b.mgr.AddConnection(conn)
	}
	_ = actor.AnonSend(b.target, ConnectionOpened{ConnID: conn.ID(), Conn: conn})
}

func (b *ActorBridge) OnDisconnect(conn Connection, err error) {
	if b.mgr != nil {
		_ = b.mgr.RemoveConnection(conn.ID())
	}
	_ = actor.AnonSend(b.target, ConnectionClosed{ConnID: conn.ID(), Err: err})
}

func (b *ActorBridge) OnError(conn Connection, err error) {
	_ = actor.AnonSend(b.target, ConnectionClosed{ConnID: conn.ID(), Err: err})
}

func (b *ActorBridge) OnMessage(conn Connection, msg *Message) {
	_ = actor.AnonSend(b.target, InboundMessage{ConnID: conn.ID(), Msg: msg})
}
