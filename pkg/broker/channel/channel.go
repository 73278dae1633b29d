// Package channel implements the broadcast fan-out pub/sub subsystem: a
// named set of subscribers, push refusing when paused or oversized, and
// best-effort fire-and-forget delivery.
package channel

import (
	"sync"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/client"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
)

// Status mirrors the subset of queue.Status a Channel actually uses:
// running, paused, or destroyed.
type Status int

const (
	StatusRunning Status = iota
	StatusPaused
	StatusDestroyed
)

// Options are the channel-wide limits, set once at creation.
type Options struct {
	MessageSizeLimit int `env:"CHANNEL_MESSAGE_SIZE_LIMIT" env-default:"0"`
	ClientLimit      int `env:"CHANNEL_CLIENT_LIMIT" env-default:"0"`
}

// DefaultOptions returns zero-valued (unlimited) Options.
func DefaultOptions() Options { return Options{} }

// Authorizer runs subscribe-time checks; Subscribe fails closed if any
// authorizer rejects the client.
type Authorizer interface {
	Authorize(c *client.Client, channelName string) bool
}

// Hooks are fired around subscription changes, mirroring queue.Deps'
// event-bus wiring without requiring the events package directly here.
type Hooks struct {
	OnSubscribe   func(c *client.Client)
	OnUnsubscribe func(c *client.Client)
}

// Channel is a named broadcast group.
type Channel struct {
	name  string
	topic string

	options     Options
	authorizers []Authorizer
	hooks       Hooks

	mu          sync.Mutex
	status      Status
	subscribers map[message.ClientRef]*client.Client
}

// New constructs a running Channel.
func New(name, topic string, opts Options, authorizers []Authorizer, hooks Hooks) *Channel {
	return &Channel{
		name:        name,
		topic:       topic,
		options:     opts,
		authorizers: authorizers,
		hooks:       hooks,
		status:      StatusRunning,
		subscribers: make(map[message.ClientRef]*client.Client),
	}
}

func (ch *Channel) Name() string  { return ch.name }
func (ch *Channel) Topic() string { return ch.topic }

func (ch *Channel) Status() Status {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.status
}

func (ch *Channel) Pause() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.status != StatusDestroyed {
		ch.status = StatusPaused
	}
}

func (ch *Channel) Resume() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.status != StatusDestroyed {
		ch.status = StatusRunning
	}
}

// Destroy marks the channel terminal and drops every subscriber.
func (ch *Channel) Destroy() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.status = StatusDestroyed
	ch.subscribers = make(map[message.ClientRef]*client.Client)
}

// SubscriberCount reports the current subscriber set size.
func (ch *Channel) SubscriberCount() int {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return len(ch.subscribers)
}

// Subscribe runs every authorizer, enforces ClientLimit, adds c to the
// subscriber set, and fires OnSubscribe.
func (ch *Channel) Subscribe(c *client.Client) message.Result {
	if c == nil {
		return message.ResultError
	}
	for _, a := range ch.authorizers {
		if !a.Authorize(c, ch.name) {
			return message.ResultUnauthorized
		}
	}

	ch.mu.Lock()
	if ch.status == StatusDestroyed {
		ch.mu.Unlock()
		return message.ResultNotFound
	}
	if ch.options.ClientLimit > 0 && len(ch.subscribers) >= ch.options.ClientLimit {
		ch.mu.Unlock()
		return message.ResultLimitExceeded
	}
	ch.subscribers[c.Ref] = c
	ch.mu.Unlock()

	if ch.hooks.OnSubscribe != nil {
		ch.hooks.OnSubscribe(c)
	}
	return message.ResultSuccess
}

// Unsubscribe removes ref from the subscriber set, reporting whether it
// was present.
func (ch *Channel) Unsubscribe(ref message.ClientRef) bool {
	ch.mu.Lock()
	c, ok := ch.subscribers[ref]
	if ok {
		delete(ch.subscribers, ref)
	}
	ch.mu.Unlock()
	if ok && ch.hooks.OnUnsubscribe != nil {
		ch.hooks.OnUnsubscribe(c)
	}
	return ok
}

// snapshot clone-on-reads the subscriber set so Push never holds the
// channel lock across I/O.
func (ch *Channel) snapshot() []*client.Client {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	out := make([]*client.Client, 0, len(ch.subscribers))
	for _, c := range ch.subscribers {
		out = append(out, c)
	}
	return out
}

// Push refuses if the channel is paused or destroyed, or the payload
// exceeds the size limit; otherwise it strips internal headers, then
// fire-and-forget sends one serialized copy to every connected subscriber.
func (ch *Channel) Push(m *message.Message) message.Result {
	ch.mu.Lock()
	status := ch.status
	ch.mu.Unlock()

	if status == StatusPaused || status == StatusDestroyed {
		return message.ResultStatusNotSupported
	}
	if ch.options.MessageSizeLimit > 0 && len(m.Payload) > ch.options.MessageSizeLimit {
		return message.ResultLimitExceeded
	}

	message.StripInternalHeaders(m)

	subs := ch.snapshot()
	for _, c := range subs {
		go func(c *client.Client) {
			_ = c.Send(m)
		}(c)
	}
	return message.ResultSuccess
}
