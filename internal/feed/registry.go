package feed

import (
	"fmt"
	"sync"
	"time"

	"tickmap/pkg/contracts/domain"
)

// Handler implements one data kind: where its files live for a given
// ticker and date, and how one raw CSV row becomes a record. Handlers
// must be stateless; a single instance serves every subscription of
// its kind.
type Handler interface {
	// Kind returns the data-kind identifier used in subscriptions.
	Kind() string
	// LocateSource composes the on-disk path for a ticker's data. The
	// ticker is a parameter precisely so a mapping change translates
	// into "re-derive the path with the new ticker" without the
	// router knowing anything about file layout.
	LocateSource(baseDir, ticker string, date time.Time) string
	// ParseRecord converts one CSV row into a bar. The caller stamps
	// the source ticker.
	ParseRecord(row []string) (domain.Bar, error)
}

// Registry manages registered data-kind handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	order    []string // registration order
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler to the registry.
func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("cannot register nil handler")
	}
	kind := h.Kind()
	if kind == "" {
		return fmt.Errorf("handler kind cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[kind]; exists {
		return fmt.Errorf("handler for kind %s already registered", kind)
	}
	r.handlers[kind] = h
	r.order = append(r.order, kind)
	return nil
}

// Get retrieves a handler by kind.
func (r *Registry) Get(kind string) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, exists := r.handlers[kind]
	if !exists {
		return nil, fmt.Errorf("no handler registered for kind %s", kind)
	}
	return h, nil
}

// Has checks if a kind is registered.
func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.handlers[kind]
	return exists
}

// Kinds returns registered kinds in registration order.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, len(r.order))
	copy(kinds, r.order)
	return kinds
}

// DefaultRegistry returns a registry with the built-in handlers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	if err := r.Register(DailyBarHandler{}); err != nil {
		panic(err)
	}
	return r
}
