package dispatch

import (
	"context"
	"strconv"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/client"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/queue"
)

// subscribeQueue finds or auto-creates the target queue, authorizes, joins
// the client.
func (d *Dispatcher) subscribeQueue(ctx context.Context, sender *client.Client, m *message.Message) (message.Result, error) {
	if !d.authorizeClient(ctx, sender, m.Target) {
		return message.ResultUnauthorized, nil
	}
	qq, ok := d.deps.Queues.Get(m.Target)
	if !ok {
		qType, _ := queue.ParseType(firstHeader(m, message.HeaderQueueType))
		var err error
		qq, err = d.deps.Queues.Create(m.Target, firstHeader(m, message.HeaderQueueTopic), qType, d.deps.DefaultQueueOptions)
		if err != nil {
			return message.ResultError, err
		}
	}
	qq.Join(sender)
	return message.ResultSuccess, nil
}

// unsubscribeQueue removes sender from the target queue; target="*"
// unsubscribes from every queue.
func (d *Dispatcher) unsubscribeQueue(sender *client.Client, m *message.Message) (message.Result, error) {
	if m.Target == "*" {
		for _, qq := range d.deps.Queues.List("") {
			qq.Leave(refOf(sender))
		}
		return message.ResultSuccess, nil
	}
	qq, ok := d.deps.Queues.Get(m.Target)
	if !ok {
		return message.ResultNotFound, nil
	}
	qq.Leave(refOf(sender))
	return message.ResultSuccess, nil
}

func (d *Dispatcher) createQueue(ctx context.Context, sender *client.Client, m *message.Message) (message.Result, error) {
	if !d.authorizeAdmin(ctx, sender, "CreateQueue") {
		return message.ResultUnauthorized, nil
	}
	qType, _ := queue.ParseType(firstHeader(m, message.HeaderQueueType))
	_, err := d.deps.Queues.Create(m.Target, firstHeader(m, message.HeaderQueueTopic), qType, d.deps.DefaultQueueOptions)
	if err != nil {
		return message.ResultDuplicate, err
	}
	d.notifyQueueUpdated(ctx, m.Target)
	return message.ResultSuccess, nil
}

func (d *Dispatcher) removeQueue(ctx context.Context, sender *client.Client, m *message.Message) (message.Result, error) {
	if !d.authorizeAdmin(ctx, sender, "RemoveQueue") {
		return message.ResultUnauthorized, nil
	}
	if !d.deps.Queues.Remove(m.Target) {
		return message.ResultNotFound, nil
	}
	return message.ResultSuccess, nil
}

// updateQueue applies header-carried option overrides to an existing
// queue. Per the resolved open question this does not touch messages
// already enqueued (queue.SetOptions is non-retroactive).
func (d *Dispatcher) updateQueue(ctx context.Context, sender *client.Client, m *message.Message) (message.Result, error) {
	if !d.authorizeAdmin(ctx, sender, "UpdateQueue") {
		return message.ResultUnauthorized, nil
	}
	qq, ok := d.deps.Queues.Get(m.Target)
	if !ok {
		return message.ResultNotFound, nil
	}
	opts := qq.Options()
	if v, ok := m.Headers.Get(message.HeaderMessageTimeout); ok {
		if secs, err := strconv.Atoi(v); err == nil {
			opts.MessageTimeout = secondsToDuration(secs)
		}
	}
	if v, ok := m.Headers.Get(message.HeaderAckTimeout); ok {
		if secs, err := strconv.Atoi(v); err == nil {
			opts.AckTimeout = secondsToDuration(secs)
		}
	}
	if v, ok := m.Headers.Get(message.HeaderPutBackDelay); ok {
		if ms, err := strconv.Atoi(v); err == nil {
			opts.PutBackDelay = millisToDuration(ms)
		}
	}
	if v, ok := m.Headers.Get(message.HeaderDelayBetweenMessages); ok {
		if ms, err := strconv.Atoi(v); err == nil {
			opts.DelayBetweenMessages = millisToDuration(ms)
		}
	}
	qq.SetOptions(opts)
	d.notifyQueueUpdated(ctx, m.Target)
	return message.ResultSuccess, nil
}

func (d *Dispatcher) clearMessages(ctx context.Context, sender *client.Client, m *message.Message) (message.Result, error) {
	if !d.authorizeAdmin(ctx, sender, "ClearMessages") {
		return message.ResultUnauthorized, nil
	}
	qq, ok := d.deps.Queues.Get(m.Target)
	if !ok {
		return message.ResultNotFound, nil
	}
	clearPriority := firstHeader(m, message.HeaderClearPriority) == "yes"
	clearRegular := firstHeader(m, message.HeaderClearMessages) == "yes"
	qq.ClearMessages(clearPriority, clearRegular)
	return message.ResultSuccess, nil
}

func (d *Dispatcher) pushToQueue(ctx context.Context, sender *client.Client, m *message.Message) (message.Result, error) {
	if !d.authorizeClient(ctx, sender, m.Target) {
		return message.ResultUnauthorized, nil
	}
	qq, ok := d.deps.Queues.Get(m.Target)
	if !ok {
		return message.ResultNotFound, nil
	}
	return qq.Push(ctx, m, refOf(sender), sender)
}

func (d *Dispatcher) acknowledge(ctx context.Context, sender *client.Client, m *message.Message) (message.Result, error) {
	qq, ok := d.deps.Queues.Get(firstHeader(m, message.HeaderQueueName))
	if !ok {
		return message.ResultNotFound, nil
	}
	if err := qq.Acknowledge(ctx, refOf(sender), m); err != nil {
		return message.ResultError, err
	}
	return message.ResultSuccess, nil
}

func firstHeader(m *message.Message, key string) string {
	v, _ := m.Headers.Get(key)
	return v
}
