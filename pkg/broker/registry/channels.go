package registry

import (
	"sort"
	"sync"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/channel"
	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
)

// Channels owns every named channel.Channel by name.
type Channels struct {
	mu    sync.RWMutex
	byKey map[string]*channel.Channel
}

// NewChannels builds an empty Channels registry.
func NewChannels() *Channels {
	return &Channels{byKey: make(map[string]*channel.Channel)}
}

// Create builds and registers a new channel, rejecting a duplicate or
// malformed name.
func (c *Channels) Create(name, topic string, opts channel.Options, authorizers []channel.Authorizer, hooks channel.Hooks) (*channel.Channel, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	k := key(name)

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byKey[k]; exists {
		return nil, errors.New(errors.CodeAlreadyExists, "channel already exists: "+name, nil)
	}
	ch := channel.New(name, topic, opts, authorizers, hooks)
	c.byKey[k] = ch
	return ch, nil
}

// Get looks up a channel by name, case-insensitively.
func (c *Channels) Get(name string) (*channel.Channel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ch, ok := c.byKey[key(name)]
	return ch, ok
}

// Remove destroys and unregisters the named channel, reporting whether it
// existed.
func (c *Channels) Remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := key(name)
	ch, ok := c.byKey[k]
	if !ok {
		return false
	}
	delete(c.byKey, k)
	ch.Destroy()
	return true
}

// List returns every registered channel whose name matches filter, sorted
// by name.
func (c *Channels) List(filter string) []*channel.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*channel.Channel, 0, len(c.byKey))
	for _, ch := range c.byKey {
		if matchFilter(filter, ch.Name()) {
			out = append(out, ch)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
