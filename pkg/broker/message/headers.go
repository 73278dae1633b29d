package message

// Well-known headers the core interprets.
const (
	HeaderAcknowledge           = "Acknowledge"
	HeaderQueueType             = "Queue-Type"
	HeaderQueueTopic            = "Queue-Topic"
	HeaderPutBackDelay          = "Put-Back-Delay"
	HeaderMessageTimeout        = "Message-Timeout"
	HeaderAckTimeout            = "Ack-Timeout"
	HeaderDelayBetweenMessages  = "Delay-Between-Messages"
	HeaderDeliveryHandler       = "Delivery-Handler"
	HeaderNackReason            = "Nack-Reason"
	HeaderRouteMethod           = "Route-Method"
	HeaderBindingName           = "Binding-Name"
	HeaderFilter                = "Filter"
	HeaderClearPriority         = "Clear-Priority"
	HeaderClearMessages         = "Clear-Messages"

	// internal/administrative headers, carried only between producer and the
	// queue init pipeline, never forwarded to consumers or durable storage.
	HeaderQueueName = "Queue-Name"

	// binding-CRUD headers carrying structured binding fields the framed
	// wire format has no dedicated encoding for.
	HeaderBindingTarget      = "Binding-Target"
	HeaderBindingKind        = "Binding-Kind"
	HeaderBindingPriority    = "Binding-Priority"
	HeaderInteraction        = "Interaction"
	HeaderBindingContentType = "Binding-Content-Type"
)

// internalHeaders lists every header that must be stripped before a
// message reaches a consumer or a MessageStore persistence layer.
var internalHeaders = []string{
	HeaderQueueName,
	HeaderQueueType,
	HeaderQueueTopic,
	HeaderMessageTimeout,
	HeaderAckTimeout,
	HeaderPutBackDelay,
	HeaderDelayBetweenMessages,
	HeaderDeliveryHandler,
}

// StripInternalHeaders removes every internal/administrative header from m,
// in place.
func StripInternalHeaders(m *Message) {
	if m == nil || m.Headers == nil {
		return
	}
	for _, h := range internalHeaders {
		m.Headers.Delete(h)
	}
}

// AcknowledgeMode is the parsed value of the Acknowledge header.
type AcknowledgeMode int

const (
	AcknowledgeNone AcknowledgeMode = iota
	AcknowledgeJust
	AcknowledgeWait
)

// ParseAcknowledgeMode parses the Acknowledge header value, defaulting to
// AcknowledgeNone for an empty or unrecognised value.
func ParseAcknowledgeMode(v string) AcknowledgeMode {
	switch v {
	case "just":
		return AcknowledgeJust
	case "wait":
		return AcknowledgeWait
	default:
		return AcknowledgeNone
	}
}
