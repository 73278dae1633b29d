package registry

import (
	"sort"
	"sync"

	"github.com/chris-alexander-pop/system-design-library/pkg/broker/persist"
	"github.com/chris-alexander-pop/system-design-library/pkg/broker/router"
	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
)

// Routers owns every named router.Router by name.
type Routers struct {
	persist *persist.Store

	mu    sync.RWMutex
	byKey map[string]*router.Router
}

// NewRouters builds an empty Routers registry. store may be nil, in which
// case persistence is skipped.
func NewRouters(store *persist.Store) *Routers {
	if store == nil {
		store = persist.New("", "")
	}
	return &Routers{persist: store, byKey: make(map[string]*router.Router)}
}

// Create builds and registers a new router, rejecting a duplicate or
// malformed name.
func (r *Routers) Create(name string, method router.Method) (*router.Router, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	k := key(name)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byKey[k]; exists {
		return nil, errors.New(errors.CodeAlreadyExists, "router already exists: "+name, nil)
	}
	rr := router.New(name, method)
	r.byKey[k] = rr
	r.saveLocked()
	return rr, nil
}

// Get looks up a router by name, case-insensitively.
func (r *Routers) Get(name string) (*router.Router, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rr, ok := r.byKey[key(name)]
	return rr, ok
}

// Remove unregisters the named router, reporting whether it existed.
func (r *Routers) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(name)
	if _, ok := r.byKey[k]; !ok {
		return false
	}
	delete(r.byKey, k)
	r.saveLocked()
	return true
}

// List returns every registered router whose name matches filter, sorted
// by name.
func (r *Routers) List(filter string) []*router.Router {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*router.Router, 0, len(r.byKey))
	for _, rr := range r.byKey {
		if matchFilter(filter, rr.Name()) {
			out = append(out, rr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Save persists the current router+binding set, best-effort. Each router
// is written with its name and enabled flag, and each binding with its
// name, priority and interaction; a router's method and a binding's type,
// target, method and content type are not written. Exported so
// the dispatcher can trigger a save after mutating a router's bindings
// in place (AddBinding/RemoveBinding don't themselves know about
// persistence).
func (r *Routers) Save() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.saveLocked()
}

func (r *Routers) saveLocked() {
	defs := make([]persist.RouterDef, 0, len(r.byKey))
	for _, rr := range r.byKey {
		bindings := rr.Bindings()
		bdefs := make([]persist.BindingDef, 0, len(bindings))
		for _, b := range bindings {
			bdefs = append(bdefs, persist.BindingDef{
				Name:        b.Name(),
				Priority:    b.Priority(),
				Interaction: b.Interaction().String(),
			})
		}
		defs = append(defs, persist.RouterDef{
			Name:      rr.Name(),
			IsEnabled: rr.Enabled(),
			Bindings:  bdefs,
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	r.persist.SaveRouters(defs)
}
