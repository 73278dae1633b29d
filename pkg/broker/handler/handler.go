// Package handler defines the DeliveryHandler contract and a named-factory
// registry for constructing handlers without reflection.
package handler

import "github.com/chris-alexander-pop/system-design-library/pkg/broker/message"

// DeliveryHandler is the pluggable per-queue delivery policy. Every hook
// returns a Decision that the queue pipeline folds in via applyDecision.
// Implementations must not block on I/O that the queue lock is held
// across; the queue only ever calls these hooks outside its lock.
type DeliveryHandler interface {
	// ReceivedFromProducer is called once per push, before the message
	// enters the store.
	ReceivedFromProducer(m *message.QueueMessage) message.Decision

	// BeginSend is called immediately before a message is serialized and
	// sent to receiver.
	BeginSend(m *message.QueueMessage, receiver message.ClientRef) message.Decision

	// CanConsumerReceive lets the handler veto a candidate receiver before
	// a send is attempted (used by the RoundRobin strategy's eligibility
	// check,).
	CanConsumerReceive(m *message.QueueMessage, receiver message.ClientRef) bool

	// ConsumerReceiveFailed is called when a send to receiver failed at the
	// transport level.
	ConsumerReceiveFailed(m *message.QueueMessage, receiver message.ClientRef, cause error) message.Decision

	// EndSend is called immediately after a send attempt completes.
	EndSend(m *message.QueueMessage, receiver message.ClientRef) message.Decision

	// AcknowledgeReceived is called when an ack/nack is received for m.
	AcknowledgeReceived(m *message.QueueMessage, receiver message.ClientRef, success bool) message.Decision

	// MessageTimedOut is called when a delivery's deadline elapses with no
	// ack received.
	MessageTimedOut(m *message.QueueMessage, receiver message.ClientRef) message.Decision

	// SaveMessage is called when Decision.Save is set; implementations
	// should be idempotent, the queue calls it again only if IsSaved is
	// false.
	SaveMessage(m *message.QueueMessage) error

	// MessageDequeued is called once a message is finally removed from the
	// store (Decision.Delete applied).
	MessageDequeued(m *message.QueueMessage)

	// ExceptionThrown is called when an unexpected error escapes the push
	// or ack pipeline, giving the handler a chance to decide the message's
	// fate.
	ExceptionThrown(m *message.QueueMessage, cause error) message.Decision
}

// BuildContext is passed to a Factory to construct a DeliveryHandler for
// one queue, carrying just enough identity to avoid a dependency on the
// queue package itself.
type BuildContext struct {
	QueueName string
	Topic     string
	// InitHeaders holds the producer's init-time header values, already
	// stripped of values the queue itself consumed (timeouts, queue type,
	// ...).
	InitHeaders map[string]string
}

// Factory constructs a DeliveryHandler for one queue.
type Factory func(ctx BuildContext) (DeliveryHandler, error)
