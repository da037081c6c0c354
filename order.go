package ssp

import "sort"

// ModuleOrder returns the render order of the enabled services: networks
// named in declared come first in that order, the remaining enabled networks
// follow sorted by name. Unknown, disabled and repeated names are dropped.
func ModuleOrder(services map[string]ModuleConfig, declared []string) []string {
	order := make([]string, 0, len(services))
	seen := make(map[string]struct{}, len(services))
	for _, name := range declared {
		service, ok := services[name]
		if !ok || !service.Status {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		order = append(order, name)
	}

	rest := make([]string, 0, len(services)-len(order))
	for name, service := range services {
		if !service.Status {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		rest = append(rest, name)
	}
	sort.Strings(rest)
	return append(order, rest...)
}
