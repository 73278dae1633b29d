package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/cluster"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/handler"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/persist"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/queue"
	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
	"github.com/chris-alexander-pop/system-design-library/pkg/events"
	"github.com/chris-alexander-pop/system-design-library/pkg/logger"
)

// Queues owns every named queue.Queue by name.
type Queues struct {
	deps    queue.Deps
	persist *persist.Store

	mu    sync.RWMutex
	byKey map[string]*queue.Queue
}

// NewQueues builds an empty Queues registry. store may be nil, in which
// case persistence is skipped.
func NewQueues(deps queue.Deps, store *persist.Store) *Queues {
	if deps.Handlers == nil {
		deps.Handlers = handler.NewRegistry()
	}
	if deps.Cluster == nil {
		deps.Cluster = cluster.Standalone{}
	}
	if store == nil {
		store = persist.New("", "")
	}
	return &Queues{deps: deps, persist: store, byKey: make(map[string]*queue.Queue)}
}

// Create builds and registers a new queue, rejecting a duplicate or
// malformed name.
func (q *Queues) Create(name, topic string, qType queue.Type, opts queue.Options) (*queue.Queue, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	k := key(name)

	q.mu.Lock()
	if _, exists := q.byKey[k]; exists {
		q.mu.Unlock()
		return nil, errors.New(errors.CodeAlreadyExists, "queue already exists: "+name, nil)
	}
	qq := queue.New(name, qType, opts, q.deps)
	q.byKey[k] = qq
	q.mu.Unlock()

	q.save()
	if err := q.deps.Cluster.SendQueueUpdated(context.Background(), name); err != nil {
		logger.L().Warn("registry: cluster notify of queue create failed", "queue", name, "error", err)
	}
	return qq, nil
}

// Get looks up a queue by name, case-insensitively.
func (q *Queues) Get(name string) (*queue.Queue, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	qq, ok := q.byKey[key(name)]
	return qq, ok
}

// Remove destroys and unregisters the named queue, reporting whether it
// existed.
func (q *Queues) Remove(name string) bool {
	q.mu.Lock()
	k := key(name)
	qq, ok := q.byKey[k]
	if ok {
		delete(q.byKey, k)
	}
	q.mu.Unlock()
	if !ok {
		return false
	}

	qq.Destroy()
	q.save()
	if err := q.deps.Cluster.SendQueueRemoved(context.Background(), name); err != nil {
		logger.L().Warn("registry: cluster notify of queue removal failed", "queue", name, "error", err)
	}
	return true
}

// List returns every registered queue whose name matches filter (empty
// matches everything), sorted by name.
func (q *Queues) List(filter string) []*queue.Queue {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]*queue.Queue, 0, len(q.byKey))
	for _, qq := range q.byKey {
		if matchFilter(filter, qq.Name()) {
			out = append(out, qq)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// save persists the current queue set, best-effort, on every mutation.
func (q *Queues) save() {
	q.mu.RLock()
	defs := make([]persist.QueueDef, 0, len(q.byKey))
	for _, qq := range q.byKey {
		defs = append(defs, persist.QueueDef{
			Name:      qq.Name(),
			Type:      qq.Type().String(),
			Topic:     qq.Topic(),
			IsEnabled: qq.Status() != queue.StatusDestroyed,
		})
	}
	q.mu.RUnlock()
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	q.persist.SaveQueues(defs)
}

// eventBus exposes the shared event bus so other registries (Routers,
// Channels) can publish lifecycle events with the same collaborator the
// queues were built with.
func (q *Queues) eventBus() events.Bus { return q.deps.EventBus }
