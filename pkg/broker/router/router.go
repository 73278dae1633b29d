package router

import (
	"context"
	"sort"
	"sync"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/client"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
	"github.com/chris-alexander-pop/system-design-library/pkg/logger"
)

// Router holds an ordered set of bindings and applies the Distribute,
// OnlyFirst or RoundRobin policy across them on Publish.
type Router struct {
	name   string
	method Method

	mu       sync.Mutex
	enabled  bool
	bindings []Binding
	cursor   int
}

// New builds an enabled Router. method governs how Publish fans out across
// bindings; each binding may additionally apply its own Method internally
// (e.g. DirectBinding selecting among several receivers).
func New(name string, method Method) *Router {
	return &Router{name: name, method: method, enabled: true}
}

func (r *Router) Name() string { return r.name }

func (r *Router) Enable()  { r.mu.Lock(); r.enabled = true; r.mu.Unlock() }
func (r *Router) Disable() { r.mu.Lock(); r.enabled = false; r.mu.Unlock() }
func (r *Router) Enabled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.enabled
}

// AddBinding inserts b, keeping bindings sorted by descending priority with
// stable insertion-order ties.
func (r *Router) AddBinding(b Binding) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings = append(r.bindings, b)
	sort.SliceStable(r.bindings, func(i, j int) bool {
		return r.bindings[i].Priority() > r.bindings[j].Priority()
	})
}

// RemoveBinding drops the binding named name, reporting whether one existed.
func (r *Router) RemoveBinding(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, b := range r.bindings {
		if b.Name() == name {
			r.bindings = append(r.bindings[:i], r.bindings[i+1:]...)
			return true
		}
	}
	return false
}

func (r *Router) Bindings() []Binding {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Binding, len(r.bindings))
	copy(out, r.bindings)
	return out
}

// Publish dispatches m to this router's bindings: Distribute sends
// a fresh copy to every binding, OnlyFirst stops at the first successful
// send, RoundRobin advances a cursor across bindings on each call.
func (r *Router) Publish(ctx context.Context, sender *client.Client, m *message.Message) message.RouterPublishResult {
	if !r.Enabled() {
		return message.PublishDisabled
	}

	bindings, method := r.snapshotForPublish()
	if len(bindings) == 0 {
		return message.PublishNoBindings
	}

	willRespond := false
	sentAny := false

	switch method {
	case OnlyFirst:
		for _, b := range bindings {
			if b.Send(ctx, sender, m) {
				sentAny = true
				willRespond = b.Interaction() != InteractionNone
				break
			}
		}
	case RoundRobin:
		b := bindings[r.nextIndex(len(bindings))]
		if b.Send(ctx, sender, m) {
			sentAny = true
			willRespond = b.Interaction() != InteractionNone
		}
	default: // Distribute
		for _, b := range bindings {
			if b.Send(ctx, sender, m) {
				sentAny = true
				if b.Interaction() != InteractionNone {
					willRespond = true
				}
			}
		}
	}

	if !sentAny {
		logger.L().Debug("router publish found no receivers", "router", r.name)
		return message.PublishNoReceivers
	}
	if willRespond {
		return message.PublishOkAndWillRespond
	}
	return message.PublishOkNoRespond
}

func (r *Router) snapshotForPublish() ([]Binding, Method) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Binding, len(r.bindings))
	copy(out, r.bindings)
	return out, r.method
}

func (r *Router) nextIndex(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.cursor % n
	r.cursor++
	return idx
}
