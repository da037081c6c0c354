package ssp

import (
	"context"
	"errors"
	"fmt"
)

// AutoMount mounts every host that carries the opt-in marker and has not
// been initialized yet. Hosts without enabled services are marked and
// skipped. Failures on one host do not stop the others; they are joined in
// the returned error.
func AutoMount(ctx context.Context, hosts []*Host, caller Values, opts ...Option) ([]*Widget, error) {
	var (
		widgets []*Widget
		errs    []error
	)
	for _, host := range hosts {
		if !host.Marked() || host.Initialized() {
			continue
		}
		widget, err := Mount(ctx, host, caller, opts...)
		if err != nil {
			host.markInitialized()
			if errors.Is(err, ErrNothingToRender) {
				continue
			}
			errs = append(errs, fmt.Errorf("ssp: mount %s: %w", hostLabel(host), err))
			continue
		}
		widgets = append(widgets, widget)
	}
	return widgets, errors.Join(errs...)
}

func hostLabel(host *Host) string {
	if host.ID != "" {
		return host.ID
	}
	return "<anonymous>"
}
