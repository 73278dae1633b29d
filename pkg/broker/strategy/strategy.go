// Package strategy implements the pluggable queue state machine backing a
// queue's delivery behavior: Push (broadcast), RoundRobin, and Pull
// (on-demand) dispatch.
package strategy

import (
	"context"
	"time"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/tracker"
)

// Verdict is the outcome of a strategy transition: it may veto delivery
// by returning DenyAndStay, or allow it via Allow or AllowAndTrigger.
type Verdict int

const (
	DenyAndStay Verdict = iota
	Allow
	AllowAndTrigger
)

// ConsumerSlot is a strategy's view of one registered consumer (a
// queue.QueueClient, kept opaque here to avoid an import cycle between
// strategy and queue).
type ConsumerSlot interface {
	Client() message.ClientRef
	Connected() bool
	// Eligible reports whether this slot may receive a message right now:
	// connected AND (ack-mode off OR not currently processing OR its
	// process deadline has elapsed).
	Eligible(now time.Time) bool
	// BeginProcessing marks the slot busy until deadline (zero means no
	// deadline, i.e. ack-mode is off).
	BeginProcessing(now time.Time, deadline time.Time)
	Send(m *message.Message) error
}

// PullRequest is one consumer's pull ask, with an
// optional glob Filter matched against each candidate message's Filter
// header.
type PullRequest struct {
	BatchSize int
	Filter    string
}

// PullOutcome is the result of a Pull request.
type PullOutcome struct {
	Messages []*message.QueueMessage
	Result   message.Result
}

// Host is everything a Strategy needs from its owning queue, kept as an
// interface so strategy has no dependency on the queue package.
type Host interface {
	Slots() []ConsumerSlot
	// CanReceive applies any registered veto hook (handler.CanConsumerReceive)
	// on top of slot.Eligible.
	CanReceive(m *message.QueueMessage, slot ConsumerSlot) bool
	// Track arms the delivery's ack-timeout using whatever MessageTimedOut/
	// applyDecision wiring the host owns; the strategy never sees the
	// timeout callback itself.
	Track(d *tracker.MessageDelivery)
	// ApplyDecision folds a Decision into the message pipeline (save/ack/
	// put-back/delete) and reports whether the pipeline should continue.
	ApplyDecision(m *message.QueueMessage, d message.Decision) bool
	// BeginSend/EndSend invoke the configured DeliveryHandler's matching
	// hooks and fold their Decision the same way ApplyDecision does.
	BeginSend(m *message.QueueMessage, receiver message.ClientRef) bool
	EndSend(m *message.QueueMessage, receiver message.ClientRef) bool
	ConsumerReceiveFailed(m *message.QueueMessage, receiver message.ClientRef, cause error) bool
	// PutBackFresh re-enters m into the store as a brand-new arrival, not a
	// put-back.
	PutBackFresh(m *message.QueueMessage)
	AckTimeout() time.Duration
	Now() time.Time
	// TakeMatching removes and returns up to limit stored messages whose
	// Filter header (if any) matches filter glob-wise, for Pull's on-demand
	// retrieval.
	TakeMatching(filter string, limit int) []*message.QueueMessage
}

// Strategy is the pluggable dispatch policy bound to a Queue.
type Strategy interface {
	Name() string
	TriggerSupported() bool
	Push(ctx context.Context, host Host, m *message.QueueMessage) message.Result
	Pull(ctx context.Context, host Host, slot ConsumerSlot, req PullRequest) PullOutcome
	OnEnter(prev Strategy) Verdict
	OnLeave(next Strategy)
}
