package store_test

import (
	"testing"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/store"
	"github.com/stretchr/testify/require"
)

func qm(id string, highPriority bool) *message.QueueMessage {
	return &message.QueueMessage{
		Message: &message.Message{ID: id, HighPriority: highPriority},
	}
}

func TestPutGetNextPriorityOverRegular(t *testing.T) {
	s := store.New()
	s.Put(qm("r1", false))
	s.Put(qm("p1", true))
	s.Put(qm("r2", false))

	require.Equal(t, "p1", s.GetNext(true, false).Message.ID)
	require.Equal(t, "r1", s.GetNext(true, false).Message.ID)
	require.Equal(t, "r2", s.GetNext(true, false).Message.ID)
	require.Nil(t, s.GetNext(true, false))
}

func TestFIFOWithinClass(t *testing.T) {
	s := store.New()
	for _, id := range []string{"a", "b", "c"} {
		s.Put(qm(id, false))
	}
	require.Equal(t, []string{"a", "b", "c"}, s.GetMessageIDList(false))
}

func TestFindAndRemove(t *testing.T) {
	s := store.New()
	s.Put(qm("a", false))
	s.Put(qm("b", false))
	s.Put(qm("c", true))

	found := s.FindAndRemove(func(m *message.QueueMessage) bool { return m.Message.ID == "b" })
	require.NotNil(t, found)
	require.Equal(t, 2, s.CountAll())
	require.Equal(t, 1, s.CountPriority())
	require.Equal(t, 1, s.CountRegular())
}

func TestFindAllDoesNotMutate(t *testing.T) {
	s := store.New()
	s.Put(qm("a", false))
	s.Put(qm("b", true))

	all := s.FindAll(func(*message.QueueMessage) bool { return true })
	require.Len(t, all, 2)
	require.Equal(t, 2, s.CountAll())
}

func TestClear(t *testing.T) {
	s := store.New()
	s.Put(qm("a", false))
	s.Put(qm("b", true))
	s.ClearPriority()
	require.Equal(t, 1, s.CountAll())
	s.ClearAll()
	require.Equal(t, 0, s.CountAll())
}

func TestGetUnsafeSnapshot(t *testing.T) {
	s := store.New()
	s.Put(qm("a", false))
	snap := s.GetUnsafe()
	require.Len(t, snap, 1)
}
