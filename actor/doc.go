// Package actor implements the execution core of an actor runtime: actors
// that communicate only by asynchronous message passing, scheduled atop a
// fixed-size worker pool.
//
// The package is organized around the same leaf-first components a reader
// of the design would expect: Message/Envelope, Mailbox, the Actor Control
// Block (ACB) and its strong/weak handles, Behavior, the Scheduler, the
// Registry, the System, and the exit/link supervision protocol. None of
// these depend on networking, serialization, or typed message-signature
// checking — those live in sibling packages that consume this one purely
// through StrongHandle.Enqueue and the System/Registry surface.
package actor
