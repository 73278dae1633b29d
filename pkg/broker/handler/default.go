package handler

import "github.com/chris-alexander-pop/system-design-library/pkg/broker/message"

// DefaultHandler is the reference DeliveryHandler used when a producer's
// init message carries no Delivery-Handler header: deliver, wait for ack,
// delete on success, put the message back on failure or timeout.
type DefaultHandler struct{}

// NewDefaultHandler returns the reference handler.
func NewDefaultHandler() *DefaultHandler {
	return &DefaultHandler{}
}

func (h *DefaultHandler) ReceivedFromProducer(m *message.QueueMessage) message.Decision {
	return message.Decision{}
}

func (h *DefaultHandler) BeginSend(m *message.QueueMessage, receiver message.ClientRef) message.Decision {
	return message.Decision{}
}

func (h *DefaultHandler) CanConsumerReceive(m *message.QueueMessage, receiver message.ClientRef) bool {
	return true
}

func (h *DefaultHandler) ConsumerReceiveFailed(m *message.QueueMessage, receiver message.ClientRef, cause error) message.Decision {
	return message.Decision{PutBack: message.PutBackRegular}
}

func (h *DefaultHandler) EndSend(m *message.QueueMessage, receiver message.ClientRef) message.Decision {
	return message.Decision{}
}

func (h *DefaultHandler) AcknowledgeReceived(m *message.QueueMessage, receiver message.ClientRef, success bool) message.Decision {
	if success {
		return message.Decision{Delete: true, Transmission: message.TransmissionSuccessful}
	}
	return message.Decision{PutBack: message.PutBackRegular, Transmission: message.TransmissionFailed}
}

func (h *DefaultHandler) MessageTimedOut(m *message.QueueMessage, receiver message.ClientRef) message.Decision {
	return message.Decision{PutBack: message.PutBackRegular}
}

func (h *DefaultHandler) SaveMessage(m *message.QueueMessage) error {
	return nil
}

func (h *DefaultHandler) MessageDequeued(m *message.QueueMessage) {}

func (h *DefaultHandler) ExceptionThrown(m *message.QueueMessage, cause error) message.Decision {
	return message.Decision{PutBack: message.PutBackRegular}
}
