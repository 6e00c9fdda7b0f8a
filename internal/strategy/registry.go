package strategy

import (
	"sort"
	"sync"

	"github.com/rxtech-lab/argo-sizing/pkg/errors"
)

// Factory builds an unvalidated strategy from its config.
type Factory func(cfg Config) (Strategy, error)

// Registry resolves strategy IDs to factories.
type Registry interface {
	Register(id ID, factory Factory) error
	Create(cfg Config) (Strategy, error)
	List() []ID
	Remove(id ID) error
}

// RegistryV1 manages all available strategies.
type RegistryV1 struct {
	factories map[ID]Factory
	mu        sync.RWMutex
}

// NewRegistry creates an empty strategy registry.
func NewRegistry() *RegistryV1 {
	return &RegistryV1{
		factories: make(map[ID]Factory),
		mu:        sync.RWMutex{},
	}
}

// NewDefaultRegistry creates a registry with the built-in strategies.
func NewDefaultRegistry() Registry {
	r := NewRegistry()

	// ids are distinct so registration cannot fail
	_ = r.Register(IDPile, func(cfg Config) (Strategy, error) {
		return NewPile(cfg.PileOrDefault()), nil
	})
	_ = r.Register(IDMca, func(cfg Config) (Strategy, error) {
		return NewMca(cfg.McaOrDefault()), nil
	})

	return r
}

// Register adds a strategy factory to the registry.
func (r *RegistryV1) Register(id ID, factory Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[id]; exists {
		return errors.Newf(errors.ErrCodeStrategyAlreadyExists, "strategy %s already registered", id)
	}

	r.factories[id] = factory

	return nil
}

// Create validates cfg and builds the strategy it selects.
func (r *RegistryV1) Create(cfg Config) (Strategy, error) {
	r.mu.RLock()
	factory, exists := r.factories[cfg.Type]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrCodeUnsupportedStrategy, "strategy %s not found", cfg.Type)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return factory(cfg)
}

// List returns the registered strategy IDs in sorted order.
func (r *RegistryV1) List() []ID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]ID, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids
}

// Remove removes a strategy from the registry.
func (r *RegistryV1) Remove(id ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[id]; !exists {
		return errors.Newf(errors.ErrCodeUnsupportedStrategy, "strategy %s not found", id)
	}

	delete(r.factories, id)

	return nil
}
