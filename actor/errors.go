package actor

import "errors"

// ErrSystemShuttingDown is returned by System.Spawn once shutdown has been
// initiated (§7 SystemShuttingDown).
var ErrSystemShuttingDown = errors.New("actor: system is shutting down")

// ErrNameTaken is returned by System.Spawn when ActorOptions.Name collides
// with an already-registered name.
var ErrNameTaken = errors.New("actor: name already registered")

// Delivery to a closed mailbox and exceeding an optional mailbox capacity
// are not surfaced as errors to callers of Enqueue — per §7, enqueue is
// asynchronous and best-effort. A closed mailbox belongs to an actor that
// has terminated, which its links and monitors were told about. A push
// rejected by a full mailbox is dropped: the sender receives no error
// message and no link or monitor notification is produced. No sentinel
// error exists for either condition.
