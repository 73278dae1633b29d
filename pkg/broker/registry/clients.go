package registry

import (
	"sync"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/client"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/message"
)

// DisconnectHook is run synchronously for every client removed via
// Disconnect, letting Queues/Channels registries (or the dispatcher) tear
// down their own back-references synchronously, without Clients importing
// either package.
type DisconnectHook func(ref message.ClientRef)

// Clients tracks every connected client.Client and implements
// router.ClientDirectory for DirectBinding selector resolution.
type Clients struct {
	mu    sync.RWMutex
	byID  map[string]*client.Client
	hooks []DisconnectHook
}

// NewClients builds an empty Clients registry.
func NewClients() *Clients {
	return &Clients{byID: make(map[string]*client.Client)}
}

// OnDisconnect registers a hook fired (in registration order) when a
// client is removed via Disconnect.
func (c *Clients) OnDisconnect(hook DisconnectHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, hook)
}

// Add registers a newly connected client, replacing any prior entry with
// the same id.
func (c *Clients) Add(cl *client.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID[cl.Ref.ID] = cl
}

// Disconnect removes the client and synchronously fires every registered
// DisconnectHook so back-references elsewhere in the broker are cleared
// before Disconnect returns.
func (c *Clients) Disconnect(ref message.ClientRef) {
	c.mu.Lock()
	delete(c.byID, ref.ID)
	hooks := make([]DisconnectHook, len(c.hooks))
	copy(hooks, c.hooks)
	c.mu.Unlock()

	for _, h := range hooks {
		h(ref)
	}
}

// ByID implements router.ClientDirectory.
func (c *Clients) ByID(id string) (*client.Client, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cl, ok := c.byID[id]
	return cl, ok
}

// ByType implements router.ClientDirectory, matching Ref.Type exactly.
func (c *Clients) ByType(t string) []*client.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*client.Client
	for _, cl := range c.byID {
		if cl.Ref.Type == t {
			out = append(out, cl)
		}
	}
	return out
}

// ByName implements router.ClientDirectory, matching Ref.Name exactly.
func (c *Clients) ByName(n string) []*client.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*client.Client
	for _, cl := range c.byID {
		if cl.Ref.Name == n {
			out = append(out, cl)
		}
	}
	return out
}
