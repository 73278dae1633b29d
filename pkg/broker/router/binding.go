// Package router implements named routers holding an ordered set of
// bindings and the Distribute/OnlyFirst/RoundRobin routing policies.
package router

import (
	"context"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/client"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
)

// Method is the routing policy shared by a Router and its RoundRobin
// binding cursors.
type Method int

const (
	Distribute Method = iota
	OnlyFirst
	RoundRobin
)

func (m Method) String() string {
	switch m {
	case OnlyFirst:
		return "OnlyFirst"
	case RoundRobin:
		return "RoundRobin"
	default:
		return "Distribute"
	}
}

// ParseMethod resolves a Route-Method header value, defaulting to
// Distribute for an empty value.
func ParseMethod(v string) (Method, bool) {
	switch v {
	case "", "Distribute":
		return Distribute, true
	case "OnlyFirst":
		return OnlyFirst, true
	case "RoundRobin":
		return RoundRobin, true
	default:
		return Distribute, false
	}
}

// Interaction describes what, if anything, a binding expects back from
// a send.
type Interaction int

const (
	InteractionNone Interaction = iota
	InteractionAck
	InteractionResponse
)

func (i Interaction) String() string {
	switch i {
	case InteractionAck:
		return "Ack"
	case InteractionResponse:
		return "Response"
	default:
		return "None"
	}
}

// ParseInteraction resolves an interaction string, defaulting to
// InteractionNone for an empty or unrecognised value.
func ParseInteraction(v string) Interaction {
	switch v {
	case "Ack":
		return InteractionAck
	case "Response":
		return InteractionResponse
	default:
		return InteractionNone
	}
}

// Binding is the polymorphic contract a Router's targets implement:
// Send attempts delivery to whatever the binding addresses.
type Binding interface {
	Name() string
	Priority() int32
	Interaction() Interaction
	// Send attempts delivery of a fresh copy of m, returning whether at
	// least one receiver got it.
	Send(ctx context.Context, sender *client.Client, m *message.Message) bool
}

// outgoingCopy clones m so each binding sees a fresh copy, additionally
// forcing waitResponse when the binding's interaction is Response.
func outgoingCopy(m *message.Message, interaction Interaction) *message.Message {
	out := m.Clone()
	if interaction == InteractionResponse {
		out.WaitResponse = true
	}
	return out
}
