package message

import "time"

// PutBack is the class a message re-enters the store as.
type PutBack int

const (
	PutBackNo PutBack = iota
	PutBackPriority
	PutBackRegular
)

// Transmission controls whether an ack/nack is sent back to the producer.
type Transmission int

const (
	TransmissionNone Transmission = iota
	TransmissionSuccessful
	TransmissionFailed
)

// Decision is what a DeliveryHandler callback returns, instructing the
// queue pipeline what to do next.
type Decision struct {
	Interrupt    bool
	Save         bool
	Delete       bool
	PutBack      PutBack
	Transmission Transmission
}

// Merge composes two decisions: booleans OR, PutBack/Transmission take the
// non-default value.
func (d Decision) Merge(other Decision) Decision {
	out := Decision{
		Interrupt: d.Interrupt || other.Interrupt,
		Save:      d.Save || other.Save,
		Delete:    d.Delete || other.Delete,
	}
	out.PutBack = d.PutBack
	if other.PutBack != PutBackNo {
		out.PutBack = other.PutBack
	}
	out.Transmission = d.Transmission
	if other.Transmission != TransmissionNone {
		out.Transmission = other.Transmission
	}
	return out
}

// QueueMessage is the envelope a Queue wraps around a Message while it is
// owned by the queue pipeline.
type QueueMessage struct {
	Message *Message

	CreatedAt time.Time
	Deadline  time.Time // zero means "no deadline"

	IsInQueue         bool
	IsSent            bool
	IsRemoved         bool
	IsSaved           bool
	IsProducerAckSent bool

	Source            ClientRef // zero value means no known producer
	Decision          Decision
	DeliveryReceivers map[ClientRef]struct{}
}

// NewQueueMessage wraps a Message for entry into a queue.
func NewQueueMessage(m *Message, source ClientRef, now time.Time) *QueueMessage {
	return &QueueMessage{
		Message:           m,
		CreatedAt:         now,
		IsInQueue:         true,
		Source:            source,
		DeliveryReceivers: make(map[ClientRef]struct{}),
	}
}

// MarkSent flips IsSent monotonically true and records the receiver.
func (qm *QueueMessage) MarkSent(receiver ClientRef) {
	qm.IsSent = true
	if qm.DeliveryReceivers == nil {
		qm.DeliveryReceivers = make(map[ClientRef]struct{})
	}
	if !receiver.IsZero() {
		qm.DeliveryReceivers[receiver] = struct{}{}
	}
}

// MarkSaved flips IsSaved monotonically true.
func (qm *QueueMessage) MarkSaved() {
	qm.IsSaved = true
}

// MarkRemoved clears IsInQueue and sets IsRemoved, enforcing the design
// invariant that the two are mutually exclusive.
func (qm *QueueMessage) MarkRemoved() {
	qm.IsInQueue = false
	qm.IsRemoved = true
}
