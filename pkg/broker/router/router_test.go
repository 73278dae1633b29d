package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/client"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
)

type fakeBinding struct {
	name        string
	priority    int32
	interaction Interaction
	ok          bool
	calls       int
}

func (b *fakeBinding) Name() string            { return b.name }
func (b *fakeBinding) Priority() int32          { return b.priority }
func (b *fakeBinding) Interaction() Interaction { return b.interaction }
func (b *fakeBinding) Send(ctx context.Context, sender *client.Client, m *message.Message) bool {
	b.calls++
	return b.ok
}

func newMsg() *message.Message {
	return &message.Message{Headers: message.NewHeaders(), Payload: []byte("x")}
}

func TestPublishDisabledWhenRouterDisabled(t *testing.T) {
	r := New("r1", Distribute)
	r.AddBinding(&fakeBinding{name: "b1", ok: true})
	r.Disable()

	res := r.Publish(context.Background(), nil, newMsg())

	assert.Equal(t, message.PublishDisabled, res)
}

func TestPublishNoBindings(t *testing.T) {
	r := New("r1", Distribute)

	res := r.Publish(context.Background(), nil, newMsg())

	assert.Equal(t, message.PublishNoBindings, res)
}

func TestPublishNoReceiversWhenAllBindingsFail(t *testing.T) {
	r := New("r1", Distribute)
	r.AddBinding(&fakeBinding{name: "b1", ok: false})
	r.AddBinding(&fakeBinding{name: "b2", ok: false})

	res := r.Publish(context.Background(), nil, newMsg())

	assert.Equal(t, message.PublishNoReceivers, res)
}

func TestPublishDistributeSendsToEveryBinding(t *testing.T) {
	r := New("r1", Distribute)
	b1 := &fakeBinding{name: "b1", ok: true}
	b2 := &fakeBinding{name: "b2", ok: true}
	r.AddBinding(b1)
	r.AddBinding(b2)

	res := r.Publish(context.Background(), nil, newMsg())

	require.Equal(t, message.PublishOkNoRespond, res)
	assert.Equal(t, 1, b1.calls)
	assert.Equal(t, 1, b2.calls)
}

func TestPublishDistributeReportsWillRespondWhenAnyBindingExpectsInteraction(t *testing.T) {
	r := New("r1", Distribute)
	r.AddBinding(&fakeBinding{name: "b1", ok: true, interaction: InteractionNone})
	r.AddBinding(&fakeBinding{name: "b2", ok: true, interaction: InteractionResponse})

	res := r.Publish(context.Background(), nil, newMsg())

	assert.Equal(t, message.PublishOkAndWillRespond, res)
}

func TestPublishOnlyFirstStopsAtFirstSuccess(t *testing.T) {
	r := New("r1", OnlyFirst)
	b1 := &fakeBinding{name: "b1", ok: false}
	b2 := &fakeBinding{name: "b2", ok: true}
	b3 := &fakeBinding{name: "b3", ok: true}
	r.AddBinding(b1)
	r.AddBinding(b2)
	r.AddBinding(b3)

	res := r.Publish(context.Background(), nil, newMsg())

	require.Equal(t, message.PublishOkNoRespond, res)
	assert.Equal(t, 1, b1.calls)
	assert.Equal(t, 1, b2.calls)
	assert.Equal(t, 0, b3.calls)
}

func TestPublishRoundRobinAdvancesCursorAcrossCalls(t *testing.T) {
	r := New("r1", RoundRobin)
	b1 := &fakeBinding{name: "b1", ok: true}
	b2 := &fakeBinding{name: "b2", ok: true}
	r.AddBinding(b1)
	r.AddBinding(b2)

	r.Publish(context.Background(), nil, newMsg())
	r.Publish(context.Background(), nil, newMsg())
	r.Publish(context.Background(), nil, newMsg())

	assert.Equal(t, 2, b1.calls)
	assert.Equal(t, 1, b2.calls)
}

func TestAddBindingOrdersByDescendingPriority(t *testing.T) {
	r := New("r1", Distribute)
	low := &fakeBinding{name: "low", priority: 1, ok: true}
	high := &fakeBinding{name: "high", priority: 10, ok: true}
	mid := &fakeBinding{name: "mid", priority: 5, ok: true}
	r.AddBinding(low)
	r.AddBinding(high)
	r.AddBinding(mid)

	names := make([]string, 0, 3)
	for _, b := range r.Bindings() {
		names = append(names, b.Name())
	}

	assert.Equal(t, []string{"high", "mid", "low"}, names)
}

func TestRemoveBindingReportsWhetherItExisted(t *testing.T) {
	r := New("r1", Distribute)
	r.AddBinding(&fakeBinding{name: "b1", ok: true})

	assert.True(t, r.RemoveBinding("b1"))
	assert.False(t, r.RemoveBinding("b1"))
}
