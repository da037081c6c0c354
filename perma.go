package ssp

import (
	"context"
	"fmt"
)

// PermaStore persists the per-network "always enable" preference.
//
// Implementations must not cache: every call reaches the backing store so
// repeated reads reflect the latest write. Set and Clear are idempotent and
// Clear removes the entry rather than recording false.
type PermaStore interface {
	Get(ctx context.Context, network string) (bool, error)
	GetAll(ctx context.Context) (map[string]bool, error)
	Set(ctx context.Context, network string, policy CookiePolicy) error
	Clear(ctx context.Context, network string, policy CookiePolicy) error
}

// permaRouter applies the per-operation store overrides named in Config.
type permaRouter struct {
	fallback PermaStore
	set      PermaStore
	del      PermaStore
	get      PermaStore
	getAll   PermaStore
}

func newPermaRouter(cfg Config, fallback PermaStore, named map[string]PermaStore) (*permaRouter, error) {
	pick := func(field, name string) (PermaStore, error) {
		if name == "" {
			return fallback, nil
		}
		store, ok := named[name]
		if !ok {
			return nil, &ConfigurationError{Field: field, Reason: fmt.Sprintf("no perma store registered as %q", name)}
		}
		return store, nil
	}

	router := &permaRouter{fallback: fallback}
	var err error
	if router.set, err = pick("set_perma_option", cfg.SetPermaOption); err != nil {
		return nil, err
	}
	if router.del, err = pick("del_perma_option", cfg.DelPermaOption); err != nil {
		return nil, err
	}
	if router.get, err = pick("get_perma_option", cfg.GetPermaOption); err != nil {
		return nil, err
	}
	if router.getAll, err = pick("get_perma_options", cfg.GetPermaOptions); err != nil {
		return nil, err
	}
	return router, nil
}

func (r *permaRouter) available() bool {
	return r != nil && r.set != nil && r.del != nil && (r.get != nil || r.getAll != nil)
}

// load reads the stored preferences for names. A configured bulk reader is
// used when present, otherwise each network is read on its own.
func (r *permaRouter) load(ctx context.Context, names []string) (map[string]bool, error) {
	if r.getAll != nil {
		all, err := r.getAll.GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("ssp: read perma options: %w", err)
		}
		return all, nil
	}
	out := make(map[string]bool, len(names))
	for _, name := range names {
		on, err := r.get.Get(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("ssp: read perma option %s: %w", name, err)
		}
		out[name] = on
	}
	return out, nil
}

func (r *permaRouter) store(ctx context.Context, network string, policy CookiePolicy) error {
	if r.set == nil {
		return fmt.Errorf("ssp: no perma store configured")
	}
	if err := r.set.Set(ctx, network, policy); err != nil {
		return fmt.Errorf("ssp: store perma option %s: %w", network, err)
	}
	return nil
}

func (r *permaRouter) clear(ctx context.Context, network string, policy CookiePolicy) error {
	if r.del == nil {
		return fmt.Errorf("ssp: no perma store configured")
	}
	if err := r.del.Clear(ctx, network, policy); err != nil {
		return fmt.Errorf("ssp: clear perma option %s: %w", network, err)
	}
	return nil
}

func (r *permaRouter) read(ctx context.Context, network string) (bool, error) {
	if r.get != nil {
		return r.get.Get(ctx, network)
	}
	all, err := r.getAll.GetAll(ctx)
	if err != nil {
		return false, err
	}
	return all[network], nil
}
