package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/client"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/strategy"
)

type fakeConn struct {
	mu        sync.Mutex
	connected bool
	sent      []*message.Message
}

func newFakeConn() *fakeConn { return &fakeConn{connected: true} }

func (c *fakeConn) Send(m *message.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, m)
	return nil
}
func (c *fakeConn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
func (c *fakeConn) last() *message.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return nil
	}
	return c.sent[len(c.sent)-1]
}
func (c *fakeConn) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func newTestClient(id string) (*client.Client, *fakeConn) {
	conn := newFakeConn()
	return &client.Client{Ref: message.ClientRef{ID: id, Type: "test"}, Connection: conn}, conn
}

func newMsg(payload string) *message.Message {
	return &message.Message{Headers: message.NewHeaders(), Payload: []byte(payload)}
}

func TestPushAssignsIDAndInitializesOnFirstPush(t *testing.T) {
	q := New("orders", TypeRoundRobin, DefaultOptions(), Deps{})
	require.Equal(t, StatusNotInitialized, q.Status())

	msg := newMsg("a")
	res, err := q.Push(context.Background(), msg, message.ClientRef{}, nil)

	require.NoError(t, err)
	assert.Equal(t, message.ResultSuccess, res)
	assert.Equal(t, StatusRunning, q.Status())
	assert.NotEmpty(t, msg.ID)
}

func TestPushRejectedWhenPaused(t *testing.T) {
	q := New("orders", TypeRoundRobin, DefaultOptions(), Deps{})
	_, err := q.Push(context.Background(), newMsg("init"), message.ClientRef{}, nil)
	require.NoError(t, err)
	q.Pause()

	res, err := q.Push(context.Background(), newMsg("b"), message.ClientRef{}, nil)

	require.NoError(t, err)
	assert.Equal(t, message.ResultStatusNotSupported, res)
}

func TestPushEnforcesMessageLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.MessageLimit = 1
	q := New("orders", TypePull, opts, Deps{})

	res1, err := q.Push(context.Background(), newMsg("a"), message.ClientRef{}, nil)
	require.NoError(t, err)
	require.Equal(t, message.ResultSuccess, res1)

	res2, err := q.Push(context.Background(), newMsg("b"), message.ClientRef{}, nil)
	require.NoError(t, err)
	assert.Equal(t, message.ResultLimitExceeded, res2)
}

func TestRoundRobinDeliversToJoinedClientAndAcknowledges(t *testing.T) {
	q := New("work", TypeRoundRobin, DefaultOptions(), Deps{})
	c, conn := newTestClient("c1")
	q.Join(c)

	_, err := q.Push(context.Background(), newMsg("job"), message.ClientRef{}, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return conn.count() == 1 }, time.Second, 5*time.Millisecond)

	delivered := conn.last()
	require.NotNil(t, delivered)
	require.NotEmpty(t, delivered.ID)

	err = q.Acknowledge(context.Background(), c.Ref, &message.Message{ID: delivered.ID, Headers: message.NewHeaders()})
	require.NoError(t, err)

	assert.Equal(t, 0, q.store.CountAll())
	assert.Equal(t, 0, q.tracker.PendingCount())
}

func TestRoundRobinPutsBackOnNack(t *testing.T) {
	opts := DefaultOptions()
	opts.AckTimeout = time.Hour
	q := New("work", TypeRoundRobin, opts, Deps{})
	c, conn := newTestClient("c1")
	q.Join(c)

	_, err := q.Push(context.Background(), newMsg("job"), message.ClientRef{}, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return conn.count() == 1 }, time.Second, 5*time.Millisecond)
	delivered := conn.last()

	nack := &message.Message{ID: delivered.ID, Headers: message.NewHeaders()}
	nack.Headers.Set(message.HeaderNackReason, "processing failed")
	err = q.Acknowledge(context.Background(), c.Ref, nack)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return conn.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestPullDeliversOnlyOnRequest(t *testing.T) {
	q := New("batch", TypePull, DefaultOptions(), Deps{})
	c, conn := newTestClient("c1")
	qc := q.Join(c)

	_, err := q.Push(context.Background(), newMsg("a"), message.ClientRef{}, nil)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, conn.count())

	out := q.state.Pull(context.Background(), q, qc, strategy.PullRequest{BatchSize: 10})
	assert.Equal(t, message.ResultSuccess, out.Result)
	assert.Len(t, out.Messages, 1)
}

func TestPushBroadcastsWithoutStoringInQueue(t *testing.T) {
	q := New("fanout", TypePush, DefaultOptions(), Deps{})
	c1, conn1 := newTestClient("c1")
	c2, conn2 := newTestClient("c2")
	q.Join(c1)
	q.Join(c2)

	_, err := q.Push(context.Background(), newMsg("hello"), message.ClientRef{}, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return conn1.count() == 1 && conn2.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, q.store.CountAll())
}

func TestLeaveRemovesClient(t *testing.T) {
	q := New("work", TypeRoundRobin, DefaultOptions(), Deps{})
	c, _ := newTestClient("c1")
	q.Join(c)
	require.Equal(t, 1, q.ClientCount())

	q.Leave(c.Ref)

	assert.Equal(t, 0, q.ClientCount())
}
