package handler

import (
	"sync"

	"github.com/chris-alexander-pop/system-design-library/pkg/errors"
)

const (
	// CodeHandlerNotFound is returned when a queue's Delivery-Handler header
	// names a factory that was never registered.
	CodeHandlerNotFound = "HANDLER_NOT_FOUND"
	// DefaultFactoryName is used when a producer's init message carries no
	// Delivery-Handler header.
	DefaultFactoryName = "Default"
)

// Registry is a named-map factory: delivery handlers are looked up by
// name instead of constructed via reflection.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns a Registry pre-populated with the reference "Default"
// factory.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register(DefaultFactoryName, func(ctx BuildContext) (DeliveryHandler, error) {
		return NewDefaultHandler(), nil
	})
	return r
}

// Register adds or replaces a named factory.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Build resolves name (defaulting to DefaultFactoryName when empty) and
// invokes its factory.
func (r *Registry) Build(name string, ctx BuildContext) (DeliveryHandler, error) {
	if name == "" {
		name = DefaultFactoryName
	}
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.New(CodeHandlerNotFound, "no delivery handler factory registered: "+name, nil)
	}
	return f(ctx)
}
