package ssp

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ModuleFactory builds the module for one configured network.
type ModuleFactory func(name string, cfg ModuleConfig) (Module, error)

// ModuleRegistry maps network names and embed kinds to factories. A factory
// registered for a network name wins over the one for its embed kind.
type ModuleRegistry struct {
	mu       sync.RWMutex
	networks map[string]ModuleFactory
	kinds    map[string]ModuleFactory
}

// NewModuleRegistry constructs an empty registry.
func NewModuleRegistry() *ModuleRegistry {
	return &ModuleRegistry{
		networks: make(map[string]ModuleFactory),
		kinds:    make(map[string]ModuleFactory),
	}
}

// DefaultModuleRegistry knows the iframe and link embed kinds.
func DefaultModuleRegistry() *ModuleRegistry {
	registry := NewModuleRegistry()
	_ = registry.RegisterKind(EmbedIframe, IframeModule)
	_ = registry.RegisterKind(EmbedLink, LinkModule)
	return registry
}

// IframeModule is the factory for gated iframe embeds.
func IframeModule(name string, cfg ModuleConfig) (Module, error) {
	return iframeModule{baseModule{name: name, cfg: cfg}}, nil
}

// LinkModule is the factory for plain anchor embeds.
func LinkModule(name string, cfg ModuleConfig) (Module, error) {
	return linkModule{baseModule{name: name, cfg: cfg}}, nil
}

// Register binds factory to a network name.
func (r *ModuleRegistry) Register(network string, factory ModuleFactory) error {
	return r.register(r.networksMap, "network", network, factory)
}

// RegisterKind binds factory to an embed kind.
func (r *ModuleRegistry) RegisterKind(kind string, factory ModuleFactory) error {
	return r.register(r.kindsMap, "embed kind", kind, factory)
}

func (r *ModuleRegistry) networksMap() map[string]ModuleFactory {
	if r.networks == nil {
		r.networks = make(map[string]ModuleFactory)
	}
	return r.networks
}

func (r *ModuleRegistry) kindsMap() map[string]ModuleFactory {
	if r.kinds == nil {
		r.kinds = make(map[string]ModuleFactory)
	}
	return r.kinds
}

func (r *ModuleRegistry) register(target func() map[string]ModuleFactory, what, name string, factory ModuleFactory) error {
	if r == nil {
		return fmt.Errorf("ssp: module registry is nil")
	}
	if factory == nil {
		return fmt.Errorf("ssp: %s %q factory is nil", what, name)
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return fmt.Errorf("ssp: %s name must not be empty", what)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	factories := target()
	if _, exists := factories[key]; exists {
		return fmt.Errorf("ssp: %s %q already registered", what, name)
	}
	factories[key] = factory
	return nil
}

// Build constructs the module for name.
func (r *ModuleRegistry) Build(name string, cfg ModuleConfig) (Module, error) {
	if r == nil {
		return nil, fmt.Errorf("ssp: module registry is nil")
	}
	kind := strings.ToLower(strings.TrimSpace(cfg.EmbedKind))
	if kind == "" {
		kind = EmbedIframe
	}

	r.mu.RLock()
	factory, ok := r.networks[strings.ToLower(name)]
	if !ok {
		factory, ok = r.kinds[kind]
	}
	r.mu.RUnlock()
	if !ok {
		return nil, &ConfigurationError{
			Field:  "services." + name + ".embed_kind",
			Reason: fmt.Sprintf("no module factory for kind %q", kind),
		}
	}

	module, err := factory(name, cfg)
	if err != nil {
		return nil, fmt.Errorf("ssp: build module %s: %w", name, err)
	}
	return module, nil
}

// Kinds returns the registered embed kinds sorted alphabetically.
func (r *ModuleRegistry) Kinds() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]string, 0, len(r.kinds))
	for kind := range r.kinds {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
