package router

import (
	"context"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/client"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
)

const directBindingCacheTTL = time.Second

// ClientDirectory resolves the selectors a DirectBinding target may use.
type ClientDirectory interface {
	ByID(id string) (*client.Client, bool)
	ByType(t string) []*client.Client
	ByName(n string) []*client.Client
}

// DirectBinding routes to one or more directly addressed clients, caching
// the resolved receiver list for directBindingCacheTTL.
type DirectBinding struct {
	name        string
	priority    int32
	interaction Interaction
	method      Method
	target      string
	filter      func(*client.Client) bool
	directory   ClientDirectory

	cache *lru.LRU[string, []*client.Client]

	cursorMu sync.Mutex
	cursor   int
}

// NewDirectBinding builds a DirectBinding. filter may be nil.
func NewDirectBinding(name string, priority int32, interaction Interaction, method Method, target string, directory ClientDirectory, filter func(*client.Client) bool) *DirectBinding {
	return &DirectBinding{
		name:        name,
		priority:    priority,
		interaction: interaction,
		method:      method,
		target:      target,
		filter:      filter,
		directory:   directory,
		cache:       lru.NewLRU[string, []*client.Client](64, nil, directBindingCacheTTL),
	}
}

func (b *DirectBinding) Name() string            { return b.name }
func (b *DirectBinding) Priority() int32         { return b.priority }
func (b *DirectBinding) Interaction() Interaction { return b.interaction }
func (b *DirectBinding) Target() string          { return b.target }

func (b *DirectBinding) receivers() []*client.Client {
	if cached, ok := b.cache.Get(b.target); ok {
		return cached
	}
	resolved := b.resolve()
	b.cache.Add(b.target, resolved)
	return resolved
}

func (b *DirectBinding) resolve() []*client.Client {
	var candidates []*client.Client
	switch {
	case strings.HasPrefix(b.target, "@type:"):
		candidates = b.directory.ByType(strings.TrimPrefix(b.target, "@type:"))
	case strings.HasPrefix(b.target, "@name:"):
		candidates = b.directory.ByName(strings.TrimPrefix(b.target, "@name:"))
	default:
		if c, ok := b.directory.ByID(b.target); ok {
			candidates = []*client.Client{c}
		}
	}
	if b.filter == nil {
		return candidates
	}
	out := make([]*client.Client, 0, len(candidates))
	for _, c := range candidates {
		if b.filter(c) {
			out = append(out, c)
		}
	}
	return out
}

func (b *DirectBinding) Send(ctx context.Context, sender *client.Client, m *message.Message) bool {
	receivers := b.receivers()
	if len(receivers) == 0 {
		return false
	}
	out := outgoingCopy(m, b.interaction)
	out.Kind = message.KindDirectMessage

	switch b.method {
	case OnlyFirst:
		for _, r := range receivers {
			if sendOne(r, out) {
				return true
			}
		}
		return false
	case RoundRobin:
		b.cursorMu.Lock()
		idx := b.cursor % len(receivers)
		b.cursor++
		b.cursorMu.Unlock()
		return sendOne(receivers[idx], out)
	default: // Distribute
		sent := false
		for _, r := range receivers {
			if sendOne(r, out) {
				sent = true
			}
		}
		return sent
	}
}

func sendOne(c *client.Client, m *message.Message) bool {
	if c == nil || !c.Connected() {
		return false
	}
	return c.Send(m) == nil
}
