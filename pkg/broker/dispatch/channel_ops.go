package dispatch

import (
	"context"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/channel"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/client"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
)

func (d *Dispatcher) createChannel(ctx context.Context, sender *client.Client, m *message.Message) (message.Result, error) {
	if !d.authorizeAdmin(ctx, sender, "CreateChannel") {
		return message.ResultUnauthorized, nil
	}
	topic := firstHeader(m, message.HeaderQueueTopic)
	if _, err := d.deps.Channels.Create(m.Target, topic, channel.DefaultOptions(), nil, channel.Hooks{}); err != nil {
		return message.ResultDuplicate, err
	}
	return message.ResultSuccess, nil
}

func (d *Dispatcher) removeChannel(ctx context.Context, sender *client.Client, m *message.Message) (message.Result, error) {
	if !d.authorizeAdmin(ctx, sender, "RemoveChannel") {
		return message.ResultUnauthorized, nil
	}
	if !d.deps.Channels.Remove(m.Target) {
		return message.ResultNotFound, nil
	}
	return message.ResultSuccess, nil
}

func (d *Dispatcher) subscribeChannel(ctx context.Context, sender *client.Client, m *message.Message) (message.Result, error) {
	if !d.authorizeClient(ctx, sender, m.Target) {
		return message.ResultUnauthorized, nil
	}
	ch, ok := d.deps.Channels.Get(m.Target)
	if !ok {
		return message.ResultNotFound, nil
	}
	return ch.Subscribe(sender), nil
}

func (d *Dispatcher) unsubscribeChannel(sender *client.Client, m *message.Message) (message.Result, error) {
	ch, ok := d.deps.Channels.Get(m.Target)
	if !ok {
		return message.ResultNotFound, nil
	}
	ch.Unsubscribe(refOf(sender))
	return message.ResultSuccess, nil
}

func (d *Dispatcher) pushChannel(ctx context.Context, sender *client.Client, m *message.Message) (message.Result, error) {
	if !d.authorizeClient(ctx, sender, m.Target) {
		return message.ResultUnauthorized, nil
	}
	ch, ok := d.deps.Channels.Get(m.Target)
	if !ok {
		return message.ResultNotFound, nil
	}
	return ch.Push(m), nil
}
