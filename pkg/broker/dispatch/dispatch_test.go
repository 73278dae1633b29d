package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/auth"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/client"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/queue"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/registry"
)

func newDispatcher(t *testing.T, admin auth.AdminAuthorizer, cli auth.ClientAuthorizer) *Dispatcher {
	t.Helper()
	deps := Deps{
		Queues:              registry.NewQueues(queue.Deps{}, nil),
		Routers:             registry.NewRouters(nil),
		Channels:            registry.NewChannels(),
		Clients:             registry.NewClients(),
		Admin:               admin,
		Client:              cli,
		DefaultQueueOptions: queue.DefaultOptions(),
	}
	return New(context.Background(), deps)
}

type fakeConn struct{ connected bool }

func (c *fakeConn) Send(m *message.Message) error { return nil }
func (c *fakeConn) Connected() bool                { return c.connected }

func newSender(id string) *client.Client {
	return &client.Client{Ref: message.ClientRef{ID: id}, Connection: &fakeConn{connected: true}}
}

func adminMsg(ct message.ContentType, target string) *message.Message {
	return &message.Message{ContentType: uint16(ct), Target: target, Headers: message.NewHeaders()}
}

func TestCreateQueueThenPushSucceeds(t *testing.T) {
	d := newDispatcher(t, nil, nil)
	sender := newSender("c1")

	res, err := d.Dispatch(context.Background(), sender, adminMsg(message.ContentTypeCreateQueue, "orders"))
	require.NoError(t, err)
	require.Equal(t, message.ResultSuccess, res)

	push := &message.Message{Kind: message.KindQueueMessage, Target: "orders", Headers: message.NewHeaders(), Payload: []byte("x")}
	res, err = d.Dispatch(context.Background(), sender, push)
	require.NoError(t, err)
	assert.Equal(t, message.ResultSuccess, res)
}

func TestCreateQueueRejectsDuplicate(t *testing.T) {
	d := newDispatcher(t, nil, nil)
	sender := newSender("c1")

	_, err := d.Dispatch(context.Background(), sender, adminMsg(message.ContentTypeCreateQueue, "orders"))
	require.NoError(t, err)

	res, _ := d.Dispatch(context.Background(), sender, adminMsg(message.ContentTypeCreateQueue, "orders"))
	assert.Equal(t, message.ResultDuplicate, res)
}

func TestPushToMissingQueueReturnsNotFound(t *testing.T) {
	d := newDispatcher(t, nil, nil)
	sender := newSender("c1")

	push := &message.Message{Kind: message.KindQueueMessage, Target: "missing", Headers: message.NewHeaders(), Payload: []byte("x")}
	res, err := d.Dispatch(context.Background(), sender, push)

	require.NoError(t, err)
	assert.Equal(t, message.ResultNotFound, res)
}

func TestAdminOpDeniedByAuthorizer(t *testing.T) {
	d := newDispatcher(t, auth.NewDenylist("c1"), nil)
	sender := newSender("c1")

	res, err := d.Dispatch(context.Background(), sender, adminMsg(message.ContentTypeCreateQueue, "orders"))

	require.NoError(t, err)
	assert.Equal(t, message.ResultUnauthorized, res)
}

func TestChannelCreateSubscribeAndPush(t *testing.T) {
	d := newDispatcher(t, nil, nil)
	sender := newSender("c1")

	res, err := d.Dispatch(context.Background(), sender, adminMsg(message.ContentTypeCreateChannel, "events"))
	require.NoError(t, err)
	require.Equal(t, message.ResultSuccess, res)

	res, err = d.Dispatch(context.Background(), sender, adminMsg(message.ContentTypeChannelSubscribe, "events"))
	require.NoError(t, err)
	require.Equal(t, message.ResultSuccess, res)

	pushMsg := adminMsg(message.ContentTypeChannelPush, "events")
	pushMsg.Payload = []byte("hi")
	res, err = d.Dispatch(context.Background(), sender, pushMsg)
	require.NoError(t, err)
	assert.Equal(t, message.ResultSuccess, res)
}

func TestDispatchRespectsContextCancellation(t *testing.T) {
	d := newDispatcher(t, nil, nil)
	sender := newSender("c1")
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := d.Dispatch(ctx, sender, adminMsg(message.ContentTypeCreateQueue, "orders"))

	assert.Error(t, err)
}
