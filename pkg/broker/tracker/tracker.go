// Package tracker implements the DeliveryTracker: a map of in-flight
// deliveries awaiting acknowledgement, one entry per (client, message id)
// pair, with a per-delivery deadline timer. Entries are not kept in any
// order.
package tracker

import (
	"sync"
	"time"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
)

// Acknowledge is the state of one tracked delivery.
type Acknowledge int

const (
	AcknowledgePending Acknowledge = iota
	AcknowledgeReceived
	AcknowledgeFailed
	AcknowledgeTimeout
)

// MessageDelivery is one tracked attempt to hand a QueueMessage to a
// specific consumer.
type MessageDelivery struct {
	QueueMessage *message.QueueMessage
	Receiver     message.ClientRef
	Deadline     time.Time // zero means no deadline
	Acknowledge  Acknowledge
}

type key struct {
	client message.ClientRef
	id     string
}

type entry struct {
	delivery *MessageDelivery
	timer    *time.Timer
}

// Tracker is the DeliveryTracker. The zero value is not usable; use New.
type Tracker struct {
	mu      sync.Mutex
	entries map[key]*entry
	closed  bool
}

// New returns an empty Tracker.
func New() *Tracker {
	return &Tracker{entries: make(map[key]*entry)}
}

// Track inserts a delivery. If d.Deadline is set, a timer is armed; when it
// fires, if the delivery is still Pending it is marked Timeout, removed,
// and onTimeout is invoked with it. onTimeout is the caller's (Queue's)
// hook back into the delivery-handler/decision pipeline, keeping this
// package free of a dependency on that machinery.
func (t *Tracker) Track(d *MessageDelivery, onTimeout func(*MessageDelivery)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	k := key{client: d.Receiver, id: d.QueueMessage.Message.ID}
	e := &entry{delivery: d}
	if !d.Deadline.IsZero() {
		delay := time.Until(d.Deadline)
		if delay < 0 {
			delay = 0
		}
		e.timer = time.AfterFunc(delay, func() {
			t.fireTimeout(k, onTimeout)
		})
	}
	t.entries[k] = e
}

func (t *Tracker) fireTimeout(k key, onTimeout func(*MessageDelivery)) {
	t.mu.Lock()
	e, ok := t.entries[k]
	if !ok || e.delivery.Acknowledge != AcknowledgePending {
		t.mu.Unlock()
		return
	}
	e.delivery.Acknowledge = AcknowledgeTimeout
	delete(t.entries, k)
	t.mu.Unlock()

	if onTimeout != nil {
		onTimeout(e.delivery)
	}
}

// FindAndRemove removes and returns the tracked delivery for (client, id),
// used on ack receipt. The ~4ms race (ack arriving before Track has
// completed its insert) is tolerated by the caller retrying this lookup
// twice with short backoffs, not by this method.
func (t *Tracker) FindAndRemove(client message.ClientRef, id string) (*MessageDelivery, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k := key{client: client, id: id}
	e, ok := t.entries[k]
	if !ok {
		return nil, false
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(t.entries, k)
	return e.delivery, true
}

// PendingCount returns the number of in-flight deliveries, used by the
// queue's NoMessages/Empty auto-destroy checks.
func (t *Tracker) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Destroy cancels every armed timer and clears the tracker. Safe to call
// once per Tracker lifetime.
func (t *Tracker) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	t.entries = make(map[key]*entry)
	t.closed = true
}
