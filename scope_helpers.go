package ssp

const (
	// Priorities of the resolution layers. Higher numbers win.
	ScopePriorityDefaults   = 100
	ScopePriorityCaller     = 200
	ScopePriorityAttributes = 300
)

// Scope names of the resolution layers, as reported by Trace.
const (
	ScopeDefaults   = "defaults"
	ScopeCaller     = "caller"
	ScopeAttributes = "attributes"
)

// precedenceStack assembles the canonical three-layer stack
// (defaults -> caller -> attributes).
func precedenceStack(defaults, caller, attributes map[string]any) (*Stack[map[string]any], error) {
	return NewStack(
		NewLayer(NewScope(ScopeAttributes, ScopePriorityAttributes, "Element Attributes"), attributes),
		NewLayer(NewScope(ScopeCaller, ScopePriorityCaller, "Caller Options"), caller),
		NewLayer(NewScope(ScopeDefaults, ScopePriorityDefaults, "Library Defaults"), defaults),
	)
}
