// Package store implements the dual priority/regular FIFO message store:
// two independent sequences, a priority one and a regular one,
// linearised under a single logical lock per store.
package store

import (
	"sync"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
)

// MessageStore holds the priority and regular FIFO sequences for one queue.
// All mutating operations are linearised under a single lock
type MessageStore struct {
	mu       sync.RWMutex
	priority []*message.QueueMessage
	regular  []*message.QueueMessage
}

// New returns an empty MessageStore.
func New() *MessageStore {
	return &MessageStore{}
}

// Put appends m to the priority sequence if it is marked high-priority,
// else to the regular sequence. O(1).
func (s *MessageStore) Put(m *message.QueueMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.Message.HighPriority {
		s.priority = append(s.priority, m)
	} else {
		s.regular = append(s.regular, m)
	}
}

// PutFront re-inserts m at the head of the priority sequence if it is
// marked high-priority, else at the head of the regular sequence, used by
// the put-back policy to give a redelivered message precedence over
// freshly-arrived ones of the same class.
func (s *MessageStore) PutFront(m *message.QueueMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.Message.HighPriority {
		s.priority = append([]*message.QueueMessage{m}, s.priority...)
	} else {
		s.regular = append([]*message.QueueMessage{m}, s.regular...)
	}
}

// GetNext returns the head of the priority sequence if non-empty (or its
// tail when fromEnd is true), else the head of the regular sequence, else
// nil. If remove is true the returned message is dequeued. Priority always
// precedes regular.
func (s *MessageStore) GetNext(remove bool, fromEnd bool) *message.QueueMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.take(&s.priority, remove, fromEnd); ok {
		return m
	}
	if m, ok := s.take(&s.regular, remove, fromEnd); ok {
		return m
	}
	return nil
}

// GetPriorityNext restricts GetNext to the priority sequence only.
func (s *MessageStore) GetPriorityNext(remove bool) *message.QueueMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, _ := s.take(&s.priority, remove, false)
	return m
}

// GetRegularNext restricts GetNext to the regular sequence only.
func (s *MessageStore) GetRegularNext(remove bool) *message.QueueMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, _ := s.take(&s.regular, remove, false)
	return m
}

func (s *MessageStore) take(seq *[]*message.QueueMessage, remove bool, fromEnd bool) (*message.QueueMessage, bool) {
	if len(*seq) == 0 {
		return nil, false
	}
	idx := 0
	if fromEnd {
		idx = len(*seq) - 1
	}
	m := (*seq)[idx]
	if remove {
		*seq = append((*seq)[:idx], (*seq)[idx+1:]...)
	}
	return m, true
}

// FindAndRemove scans both sequences (priority first) for the first message
// matching pred, removes and returns it.
func (s *MessageStore) FindAndRemove(pred func(*message.QueueMessage) bool) *message.QueueMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.findAndRemoveIn(&s.priority, pred); ok {
		return m
	}
	if m, ok := s.findAndRemoveIn(&s.regular, pred); ok {
		return m
	}
	return nil
}

func (s *MessageStore) findAndRemoveIn(seq *[]*message.QueueMessage, pred func(*message.QueueMessage) bool) (*message.QueueMessage, bool) {
	for i, m := range *seq {
		if pred(m) {
			*seq = append((*seq)[:i], (*seq)[i+1:]...)
			return m, true
		}
	}
	return nil, false
}

// FindAll scans both sequences and returns every matching message, in
// priority-then-regular, FIFO order. It does not mutate the store.
func (s *MessageStore) FindAll(pred func(*message.QueueMessage) bool) []*message.QueueMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*message.QueueMessage
	for _, m := range s.priority {
		if pred(m) {
			out = append(out, m)
		}
	}
	for _, m := range s.regular {
		if pred(m) {
			out = append(out, m)
		}
	}
	return out
}

// CountAll returns the total number of stored messages.
func (s *MessageStore) CountAll() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.priority) + len(s.regular)
}

// CountPriority returns the number of priority messages.
func (s *MessageStore) CountPriority() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.priority)
}

// CountRegular returns the number of regular messages.
func (s *MessageStore) CountRegular() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.regular)
}

// ClearPriority atomically empties the priority sequence.
func (s *MessageStore) ClearPriority() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priority = nil
}

// ClearRegular atomically empties the regular sequence.
func (s *MessageStore) ClearRegular() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regular = nil
}

// ClearAll atomically empties both sequences.
func (s *MessageStore) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.priority = nil
	s.regular = nil
}

// GetUnsafe returns a lazily-read, read-only snapshot of the regular
// sequence for sync paths that tolerate racing mutation.
// Callers must not mutate the returned slice or its elements.
func (s *MessageStore) GetUnsafe() []*message.QueueMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.regular
}

// GetUnsafePriority is GetUnsafe restricted to the priority sequence.
func (s *MessageStore) GetUnsafePriority() []*message.QueueMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.priority
}

// GetMessageIDList returns an ordered id snapshot of one sequence.
func (s *MessageStore) GetMessageIDList(priority bool) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq := s.regular
	if priority {
		seq = s.priority
	}
	out := make([]string, len(seq))
	for i, m := range seq {
		out[i] = m.Message.ID
	}
	return out
}
