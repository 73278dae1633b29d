package channel

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/client"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
)

type fakeConn struct {
	mu   sync.Mutex
	sent int
}

func (c *fakeConn) Send(m *message.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent++
	return nil
}
func (c *fakeConn) Connected() bool { return true }
func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent
}

func newSubscriber(id string) (*client.Client, *fakeConn) {
	conn := &fakeConn{}
	return &client.Client{Ref: message.ClientRef{ID: id}, Connection: conn}, conn
}

type denyAll struct{}

func (denyAll) Authorize(c *client.Client, channelName string) bool { return false }

func TestSubscribeRejectedWhenAuthorizerDenies(t *testing.T) {
	ch := New("events", "", DefaultOptions(), []Authorizer{denyAll{}}, Hooks{})
	c, _ := newSubscriber("c1")

	res := ch.Subscribe(c)

	assert.Equal(t, message.ResultUnauthorized, res)
	assert.Equal(t, 0, ch.SubscriberCount())
}

func TestSubscribeEnforcesClientLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.ClientLimit = 1
	ch := New("events", "", opts, nil, Hooks{})
	c1, _ := newSubscriber("c1")
	c2, _ := newSubscriber("c2")

	require.Equal(t, message.ResultSuccess, ch.Subscribe(c1))
	assert.Equal(t, message.ResultLimitExceeded, ch.Subscribe(c2))
}

func TestSubscribeFiresOnSubscribeHook(t *testing.T) {
	var fired *client.Client
	ch := New("events", "", DefaultOptions(), nil, Hooks{OnSubscribe: func(c *client.Client) { fired = c }})
	c, _ := newSubscriber("c1")

	ch.Subscribe(c)

	require.NotNil(t, fired)
	assert.Equal(t, "c1", fired.Ref.ID)
}

func TestPushBroadcastsToAllSubscribers(t *testing.T) {
	ch := New("events", "", DefaultOptions(), nil, Hooks{})
	c1, conn1 := newSubscriber("c1")
	c2, conn2 := newSubscriber("c2")
	ch.Subscribe(c1)
	ch.Subscribe(c2)

	res := ch.Push(&message.Message{Headers: message.NewHeaders(), Payload: []byte("hi")})

	require.Equal(t, message.ResultSuccess, res)
	require.Eventually(t, func() bool { return conn1.count() == 1 && conn2.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestPushRejectedWhenPaused(t *testing.T) {
	ch := New("events", "", DefaultOptions(), nil, Hooks{})
	ch.Pause()

	res := ch.Push(&message.Message{Headers: message.NewHeaders(), Payload: []byte("hi")})

	assert.Equal(t, message.ResultStatusNotSupported, res)
}

func TestPushRejectedWhenOverSizeLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.MessageSizeLimit = 2
	ch := New("events", "", opts, nil, Hooks{})

	res := ch.Push(&message.Message{Headers: message.NewHeaders(), Payload: []byte("too big")})

	assert.Equal(t, message.ResultLimitExceeded, res)
}

func TestUnsubscribeRemovesClientAndFiresHook(t *testing.T) {
	var fired *client.Client
	ch := New("events", "", DefaultOptions(), nil, Hooks{OnUnsubscribe: func(c *client.Client) { fired = c }})
	c, _ := newSubscriber("c1")
	ch.Subscribe(c)

	ok := ch.Unsubscribe(c.Ref)

	assert.True(t, ok)
	assert.Equal(t, 0, ch.SubscriberCount())
	require.NotNil(t, fired)
}
