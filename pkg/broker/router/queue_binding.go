package router

import (
	"context"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/client"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
)

// QueueTarget is the subset of queue.Queue a QueueBinding depends on, kept
// as an interface so router has no import-cycle-risking dependency on the
// concrete queue package beyond what it actually calls.
type QueueTarget interface {
	Push(ctx context.Context, m *message.Message, source message.ClientRef, sourceClient *client.Client) (message.Result, error)
}

// QueueBinding routes to a named queue.
type QueueBinding struct {
	name        string
	priority    int32
	interaction Interaction
	contentType uint16
	hasContent  bool
	queueName   string
	resolve     func(name string) (QueueTarget, bool)
}

// NewQueueBinding builds a QueueBinding. resolve looks the target queue up
// by name at send time (late-bound so a binding survives queue
// recreation).
func NewQueueBinding(name string, priority int32, interaction Interaction, queueName string, resolve func(string) (QueueTarget, bool)) *QueueBinding {
	return &QueueBinding{name: name, priority: priority, interaction: interaction, queueName: queueName, resolve: resolve}
}

// SetContentType overrides the outgoing message's contentType, applied
// to every message this binding sends.
func (b *QueueBinding) SetContentType(ct uint16) {
	b.contentType = ct
	b.hasContent = true
}

func (b *QueueBinding) Name() string            { return b.name }
func (b *QueueBinding) Priority() int32          { return b.priority }
func (b *QueueBinding) Interaction() Interaction { return b.interaction }
func (b *QueueBinding) Target() string           { return b.queueName }

func (b *QueueBinding) Send(ctx context.Context, sender *client.Client, m *message.Message) bool {
	target, ok := b.resolve(b.queueName)
	if !ok {
		return false
	}
	out := outgoingCopy(m, b.interaction)
	out.Kind = message.KindQueueMessage
	out.Target = b.queueName
	if b.hasContent {
		out.ContentType = b.contentType
	}
	var ref message.ClientRef
	if sender != nil {
		ref = sender.Ref
	}
	res, err := target.Push(ctx, out, ref, sender)
	return err == nil && res == message.ResultSuccess
}
