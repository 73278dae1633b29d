package tracker_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/tracker"
	"github.com/stretchr/testify/require"
)

func delivery(id string, deadline time.Time) *tracker.MessageDelivery {
	return &tracker.MessageDelivery{
		QueueMessage: &message.QueueMessage{Message: &message.Message{ID: id}},
		Receiver:     message.ClientRef{ID: "c1"},
		Deadline:     deadline,
	}
}

func TestTrackAndFindAndRemove(t *testing.T) {
	tr := tracker.New()
	tr.Track(delivery("m1", time.Time{}), nil)

	got, ok := tr.FindAndRemove(message.ClientRef{ID: "c1"}, "m1")
	require.True(t, ok)
	require.Equal(t, "m1", got.QueueMessage.Message.ID)

	_, ok = tr.FindAndRemove(message.ClientRef{ID: "c1"}, "m1")
	require.False(t, ok)
}

func TestTimeoutFiresOnce(t *testing.T) {
	tr := tracker.New()
	var fired int32
	tr.Track(delivery("m1", time.Now().Add(20*time.Millisecond)), func(d *tracker.MessageDelivery) {
		atomic.AddInt32(&fired, 1)
	})

	require.Eventually(t, func() bool { return atomic.LoadInt32(&fired) == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, 0, tr.PendingCount())

	// A second tick never double-fires, since the entry is removed on timeout.
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestPendingCount(t *testing.T) {
	tr := tracker.New()
	tr.Track(delivery("m1", time.Time{}), nil)
	tr.Track(delivery("m2", time.Time{}), nil)
	require.Equal(t, 2, tr.PendingCount())
	tr.Destroy()
	require.Equal(t, 0, tr.PendingCount())
}

func TestAckCancelsTimer(t *testing.T) {
	tr := tracker.New()
	var fired int32
	tr.Track(delivery("m1", time.Now().Add(30*time.Millisecond)), func(d *tracker.MessageDelivery) {
		atomic.AddInt32(&fired, 1)
	})

	_, ok := tr.FindAndRemove(message.ClientRef{ID: "c1"}, "m1")
	require.True(t, ok)

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, int32(0), atomic.LoadInt32(&fired))
}
