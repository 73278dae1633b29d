package strategy

import (
	"context"
	"sync"
	"time"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/tracker"
)

const (
	roundRobinSweepBackoff = 3 * time.Millisecond
	roundRobinSweepBudget  = 30 * time.Second
)

// RoundRobin hands each arriving message to exactly one eligible consumer,
// rotating the starting point on every call.
type RoundRobin struct {
	mu        sync.Mutex
	lastIndex int
}

func NewRoundRobin() *RoundRobin {
	return &RoundRobin{lastIndex: -1}
}

func (*RoundRobin) Name() string             { return "round-robin" }
func (*RoundRobin) TriggerSupported() bool   { return true }
func (*RoundRobin) OnEnter(prev Strategy) Verdict { return Allow }
func (r *RoundRobin) OnLeave(next Strategy)  {}

func (r *RoundRobin) nextFrom() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastIndex + 1
}

func (r *RoundRobin) advance(i int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastIndex = i
}

// pickEligible sweeps slots once starting at `from`, returning the first
// eligible one and its index, or ok=false if none qualify this sweep.
func pickEligible(host Host, m *message.QueueMessage, from int) (ConsumerSlot, int, bool) {
	slots := host.Slots()
	n := len(slots)
	if n == 0 {
		return nil, 0, false
	}
	now := host.Now()
	for i := 0; i < n; i++ {
		idx := (from + i) % n
		slot := slots[idx]
		if !slot.Eligible(now) {
			continue
		}
		if !host.CanReceive(m, slot) {
			continue
		}
		return slot, idx, true
	}
	return nil, 0, false
}

func (r *RoundRobin) Push(ctx context.Context, host Host, m *message.QueueMessage) message.Result {
	from := r.nextFrom()
	slot, idx, ok := pickEligible(host, m, from)

	if !ok {
		deadline := host.Now().Add(roundRobinSweepBudget)
		for !ok && host.Now().Before(deadline) {
			select {
			case <-ctx.Done():
				break
			case <-time.After(roundRobinSweepBackoff):
			}
			if len(host.Slots()) == 0 {
				break
			}
			slot, idx, ok = pickEligible(host, m, r.nextFrom())
		}
	}

	if !ok {
		host.PutBackFresh(m)
		return message.ResultNoConsumers
	}

	r.advance(idx)

	now := host.Now()
	deadline := message.Deadline(now, host.AckTimeout())
	slot.BeginProcessing(now, deadline)

	if !host.BeginSend(m, slot.Client()) {
		return message.ResultError
	}

	if err := slot.Send(m.Message); err != nil {
		if !host.ConsumerReceiveFailed(m, slot.Client(), err) {
			return message.ResultError
		}
		return message.ResultSuccess
	}

	m.MarkSent(slot.Client())

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

	return message.ResultSuccess
}

// Pull has no meaning under round-robin push dispatch.
func (*RoundRobin) Pull(ctx context.Context, host Host, slot ConsumerSlot, req PullRequest) PullOutcome {
	return PullOutcome{Result: message.ResultNoConsumers}
}
