package strategy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/tracker"
)

type fakeSlot struct {
	ref       message.ClientRef
	connected bool
	busyUntil time.Time
	sent      []*message.Message
	sendErr   error
}

func (f *fakeSlot) Client() message.ClientRef { return f.ref }
func (f *fakeSlot) Connected() bool           { return f.connected }
func (f *fakeSlot) Eligible(now time.Time) bool {
	if !f.connected {
		return false
	}
	return f.busyUntil.IsZero() || f.busyUntil.Before(now)
}
func (f *fakeSlot) BeginProcessing(now, deadline time.Time) { f.busyUntil = deadline }
func (f *fakeSlot) Send(m *message.Message) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, m)
	return nil
}

type fakeHost struct {
	slots        []ConsumerSlot
	ackTimeout   time.Duration
	putBackFresh []*message.QueueMessage
	tracked      []*tracker.MessageDelivery
	failReceiveOK bool
}

func (h *fakeHost) Slots() []ConsumerSlot { return h.slots }
func (h *fakeHost) CanReceive(m *message.QueueMessage, slot ConsumerSlot) bool { return true }
func (h *fakeHost) Track(d *tracker.MessageDelivery) {
	h.tracked = append(h.tracked, d)
}
func (h *fakeHost) ApplyDecision(m *message.QueueMessage, d message.Decision) bool { return true }
func (h *fakeHost) BeginSend(m *message.QueueMessage, receiver message.ClientRef) bool { return true }
func (h *fakeHost) EndSend(m *message.QueueMessage, receiver message.ClientRef) bool   { return true }
func (h *fakeHost) ConsumerReceiveFailed(m *message.QueueMessage, receiver message.ClientRef, cause error) bool {
	return h.failReceiveOK
}
func (h *fakeHost) PutBackFresh(m *message.QueueMessage) { h.putBackFresh = append(h.putBackFresh, m) }
func (h *fakeHost) AckTimeout() time.Duration            { return h.ackTimeout }
func (h *fakeHost) Now() time.Time                       { return time.Now() }
func (h *fakeHost) TakeMatching(filter string, limit int) []*message.QueueMessage { return nil }

func qm(id string) *message.QueueMessage {
	return message.NewQueueMessage(&message.Message{ID: id, Headers: message.NewHeaders()}, message.ClientRef{}, time.Now())
}

func TestPushBroadcastsToAllConnected(t *testing.T) {
	a := &fakeSlot{ref: message.ClientRef{ID: "a"}, connected: true}
	b := &fakeSlot{ref: message.ClientRef{ID: "b"}, connected: true}
	c := &fakeSlot{ref: message.ClientRef{ID: "c"}, connected: false}
	host := &fakeHost{slots: []ConsumerSlot{a, b, c}}

	res := Push{}.Push(context.Background(), host, qm("m1"))

	assert.Equal(t, message.ResultSuccess, res)
	assert.Len(t, a.sent, 1)
	assert.Len(t, b.sent, 1)
	assert.Len(t, c.sent, 0)
}

func TestPushNoConsumersWhenNoneConnected(t *testing.T) {
	a := &fakeSlot{ref: message.ClientRef{ID: "a"}, connected: false}
	host := &fakeHost{slots: []ConsumerSlot{a}}

	res := Push{}.Push(context.Background(), host, qm("m1"))

	assert.Equal(t, message.ResultNoConsumers, res)
}

func TestRoundRobinRotatesAcrossCalls(t *testing.T) {
	a := &fakeSlot{ref: message.ClientRef{ID: "a"}, connected: true}
	b := &fakeSlot{ref: message.ClientRef{ID: "b"}, connected: true}
	host := &fakeHost{slots: []ConsumerSlot{a, b}}
	rr := NewRoundRobin()

	require.Equal(t, message.ResultSuccess, rr.Push(context.Background(), host, qm("m1")))
	require.Equal(t, message.ResultSuccess, rr.Push(context.Background(), host, qm("m2")))

	assert.Len(t, a.sent, 1)
	assert.Len(t, b.sent, 1)
}

func TestRoundRobinNoConsumersPutsBackFresh(t *testing.T) {
	host := &fakeHost{slots: nil}
	rr := NewRoundRobin()

	m := qm("m1")
	res := rr.Push(context.Background(), host, m)

	assert.Equal(t, message.ResultNoConsumers, res)
	require.Len(t, host.putBackFresh, 1)
	assert.Same(t, m, host.putBackFresh[0])
}

func TestRoundRobinSkipsIneligibleSlot(t *testing.T) {
	busy := &fakeSlot{ref: message.ClientRef{ID: "busy"}, connected: true, busyUntil: time.Now().Add(time.Hour)}
	free := &fakeSlot{ref: message.ClientRef{ID: "free"}, connected: true}
	host := &fakeHost{slots: []ConsumerSlot{busy, free}}
	rr := NewRoundRobin()

	res := rr.Push(context.Background(), host, qm("m1"))

	assert.Equal(t, message.ResultSuccess, res)
	assert.Len(t, busy.sent, 0)
	assert.Len(t, free.sent, 1)
}

func TestPullNoMessagesWhenStoreEmpty(t *testing.T) {
	host := &fakeHost{}
	slot := &fakeSlot{ref: message.ClientRef{ID: "a"}, connected: true}

	out := Pull{}.Pull(context.Background(), host, slot, PullRequest{BatchSize: 1})

	assert.Equal(t, message.ResultNoConsumers, out.Result)
	assert.Empty(t, out.Messages)
}

func TestPullDisconnectedSlotRejected(t *testing.T) {
	host := &fakeHost{}
	slot := &fakeSlot{ref: message.ClientRef{ID: "a"}, connected: false}

	out := Pull{}.Pull(context.Background(), host, slot, PullRequest{BatchSize: 1})

	assert.Equal(t, message.ResultNoConsumers, out.Result)
}
