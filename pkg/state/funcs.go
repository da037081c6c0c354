package state

import (
	"context"
	"fmt"
	"sort"
	"sync"

	ssp "github.com/goliatone/go-socialshare"
)

// Funcs adapts plain functions to ssp.PermaStore. Nil functions fail with
// an error, except GetAllFunc which falls back to nothing stored.
type Funcs struct {
	GetFunc    func(ctx context.Context, network string) (bool, error)
	GetAllFunc func(ctx context.Context) (map[string]bool, error)
	SetFunc    func(ctx context.Context, network string, policy ssp.CookiePolicy) error
	ClearFunc  func(ctx context.Context, network string, policy ssp.CookiePolicy) error
}

var _ ssp.PermaStore = Funcs{}

func (f Funcs) Get(ctx context.Context, network string) (bool, error) {
	if f.GetFunc == nil {
		if f.GetAllFunc != nil {
			all, err := f.GetAllFunc(ctx)
			return all[network], err
		}
		return false, fmt.Errorf("state: get is not implemented")
	}
	return f.GetFunc(ctx, network)
}

func (f Funcs) GetAll(ctx context.Context) (map[string]bool, error) {
	if f.GetAllFunc == nil {
		return map[string]bool{}, nil
	}
	return f.GetAllFunc(ctx)
}

func (f Funcs) Set(ctx context.Context, network string, policy ssp.CookiePolicy) error {
	if f.SetFunc == nil {
		return fmt.Errorf("state: set is not implemented")
	}
	return f.SetFunc(ctx, network, policy)
}

func (f Funcs) Clear(ctx context.Context, network string, policy ssp.CookiePolicy) error {
	if f.ClearFunc == nil {
		return fmt.Errorf("state: clear is not implemented")
	}
	return f.ClearFunc(ctx, network, policy)
}

// Registry holds named stores. Widgets pick one per operation through the
// set_perma_option, del_perma_option, get_perma_option and
// get_perma_options settings.
type Registry struct {
	mu     sync.RWMutex
	stores map[string]ssp.PermaStore
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{stores: map[string]ssp.PermaStore{}}
}

// Register stores store under name.
func (r *Registry) Register(name string, store ssp.PermaStore) error {
	if name == "" {
		return fmt.Errorf("state: store name must not be empty")
	}
	if store == nil {
		return fmt.Errorf("state: store %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stores == nil {
		r.stores = map[string]ssp.PermaStore{}
	}
	if _, exists := r.stores[name]; exists {
		return fmt.Errorf("state: store %q already registered", name)
	}
	r.stores[name] = store
	return nil
}

// Lookup returns the store registered as name.
func (r *Registry) Lookup(name string) (ssp.PermaStore, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	store, ok := r.stores[name]
	return store, ok
}

// Names returns the registered names in ascending order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.stores))
	for name := range r.stores {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Options turns the registry into mount options.
func (r *Registry) Options() []ssp.Option {
	r.mu.RLock()
	defer r.mu.RUnlock()
	opts := make([]ssp.Option, 0, len(r.stores))
	for name, store := range r.stores {
		opts = append(opts, ssp.WithNamedPermaStore(name, store))
	}
	return opts
}
