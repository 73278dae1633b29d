package queue

import (
	"sync"
	"time"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/client"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
)

// QueueClient is one (queue, client) subscription. It implements
// strategy.ConsumerSlot so the pluggable strategies can dispatch through
// it without depending on the queue package.
type QueueClient struct {
	queue    *Queue
	cli      *client.Client
	joinedAt time.Time

	mu                  sync.Mutex
	currentlyProcessing *message.QueueMessage
	processDeadline     time.Time // zero means idle
}

func newQueueClient(q *Queue, c *client.Client, now time.Time) *QueueClient {
	return &QueueClient{queue: q, cli: c, joinedAt: now}
}

func (qc *QueueClient) Client() message.ClientRef { return qc.cli.Ref }
func (qc *QueueClient) Connected() bool           { return qc.cli.Connected() }

// Eligible implements strategy.ConsumerSlot: connected AND (ack-mode off
// OR not currently processing OR its deadline has elapsed).
func (qc *QueueClient) Eligible(now time.Time) bool {
	if !qc.Connected() {
		return false
	}
	qc.mu.Lock()
	defer qc.mu.Unlock()
	if qc.processDeadline.IsZero() {
		return true
	}
	return !now.Before(qc.processDeadline)
}

func (qc *QueueClient) BeginProcessing(now, deadline time.Time) {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	qc.processDeadline = deadline
}

func (qc *QueueClient) clearProcessing() {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	qc.currentlyProcessing = nil
	qc.processDeadline = time.Time{}
}

func (qc *QueueClient) setCurrent(m *message.QueueMessage) {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	qc.currentlyProcessing = m
}

func (qc *QueueClient) Send(m *message.Message) error {
	return qc.cli.Send(m)
}
