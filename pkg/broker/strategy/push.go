package strategy

import (
	"context"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/tracker"
)

// Push broadcasts every arriving message to all eligible consumers at once.
type Push struct{}

func (Push) Name() string             { return "push" }
func (Push) TriggerSupported() bool   { return false }
func (Push) OnEnter(prev Strategy) Verdict { return Allow }
func (Push) OnLeave(next Strategy)    {}

func (Push) Push(ctx context.Context, host Host, m *message.QueueMessage) message.Result {
	slots := host.Slots()
	sent := false

	for _, slot := range slots {
		if !slot.Eligible(host.Now()) {
			continue
		}
		if !host.CanReceive(m, slot) {
			continue
		}
		if !host.BeginSend(m, slot.Client()) {
			continue
		}

		now := host.Now()
		deadline := message.Deadline(now, host.AckTimeout())
		slot.BeginProcessing(now, deadline)

		if err := slot.Send(m.Message); err != nil {
			if !host.ConsumerReceiveFailed(m, slot.Client(), err) {
				return message.ResultError
			}
			continue
		}

		m.MarkSent(slot.Client())
		sent = true

		if !deadline.IsZero() {
			host.Track(&tracker.MessageDelivery{
				QueueMessage: m,
				Receiver:     slot.Client(),
				Deadline:     deadline,
				Acknowledge:  tracker.AcknowledgePending,
			})
		} else {
			host.EndSend(m, slot.Client())
		}
	}

	if !sent {
		return message.ResultNoConsumers
	}
	return message.ResultSuccess
}

// Pull is not meaningful for a broadcast strategy: a pull request always
// reports no messages are available through this policy.
func (Push) Pull(ctx context.Context, host Host, slot ConsumerSlot, req PullRequest) PullOutcome {
	return PullOutcome{Result: message.ResultNoConsumers}
}
