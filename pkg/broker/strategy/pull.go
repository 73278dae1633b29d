package strategy

import (
	"context"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
)

// Pull keeps arriving messages in the store until a consumer explicitly
// asks for them.
type Pull struct{}

func (Pull) Name() string             { return "pull" }
func (Pull) TriggerSupported() bool   { return false }
func (Pull) OnEnter(prev Strategy) Verdict { return Allow }
func (Pull) OnLeave(next Strategy)    {}

// Push under a Pull strategy leaves the message where it already sits in
// the store; nothing is sent until a pull request arrives.
func (Pull) Push(ctx context.Context, host Host, m *message.QueueMessage) message.Result {
	return message.ResultSuccess
}

func (Pull) Pull(ctx context.Context, host Host, slot ConsumerSlot, req PullRequest) PullOutcome {
	if !slot.Connected() {
		return PullOutcome{Result: message.ResultNoConsumers}
	}

	batch := req.BatchSize
	if batch <= 0 {
		batch = 1
	}

	matched := host.TakeMatching(req.Filter, batch)
	if len(matched) == 0 {
		return PullOutcome{Result: message.ResultNoConsumers}
	}

	now := host.Now()
	delivered := make([]*message.QueueMessage, 0, len(matched))
	for _, m := range matched {
		if !host.BeginSend(m, slot.Client()) {
			host.ApplyDecision(m, message.Decision{PutBack: message.PutBackRegular})
			continue
		}
		deadline := message.Deadline(now, host.AckTimeout())
		slot.BeginProcessing(now, deadline)
		if err := slot.Send(m.Message); err != nil {
			host.ConsumerReceiveFailed(m, slot.Client(), err)
			continue
		}
		m.MarkSent(slot.Client())
		host.EndSend(m, slot.Client())
		delivered = append(delivered, m)
	}

	if len(delivered) == 0 {
		return PullOutcome{Result: message.ResultNoConsumers}
	}
	return PullOutcome{Messages: delivered, Result: message.ResultSuccess}
}
