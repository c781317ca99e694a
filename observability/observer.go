// Package observability provides a logrus-backed implementation of
// actor.Observer, the hook surface actor.System calls into on every
// enqueue, schedule, and termination.
package observability

import (
	"github.com/sirupsen/logrus"

	"github.com/relaymesh/actorcore/actor"
)

// LogObserver logs each hook at a configurable level, tagging every
// entry with the actor id so a single actor's lifecycle can be
// grepped out of a busy log stream.
type LogObserver struct {
	log   *logrus.Logger
	level logrus.Level
}

// New returns a LogObserver writing through log at level. A nil log
// falls back to logrus.StandardLogger().
func New(log *logrus.Logger, level logrus.Level) *LogObserver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LogObserver{log: log, level: level}
}

func (o *LogObserver) MessageEnqueued(target actor.ActorId, mid actor.MessageId) {
	o.log.WithFields(logrus.Fields{
		"actor":    target,
		"msg_id":   mid,
		"priority": mid.Priority(),
	}).Log(o.level, "message enqueued")
}

func (o *LogObserver) ActorScheduled(target actor.ActorId) {
	o.log.WithField("actor", target).Log(o.level, "actor scheduled")
}

func (o *LogObserver) ActorTerminated(target actor.ActorId, reason actor.ExitReason) {
	o.log.WithFields(logrus.Fields{
		"actor":  target,
		"reason": reason,
	}).Log(o.level, "actor terminated")
}
