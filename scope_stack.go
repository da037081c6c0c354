package ssp

import (
	"errors"
	"fmt"
	"sort"

	"github.com/goliatone/go-socialshare/layering"
)

// Scope names one settings source within a resolve pass.
type Scope struct {
	Name     string `json:"name"`
	Label    string `json:"label,omitempty"`
	Priority int    `json:"priority"`
}

// NewScope builds a Scope. Validation is deferred to Stack construction.
func NewScope(name string, priority int, label string) Scope {
	return Scope{Name: name, Label: label, Priority: priority}
}

// Layer pairs a scope with the settings it contributed.
type Layer[T any] struct {
	Scope    Scope
	Snapshot T
}

// NewLayer constructs a Layer holding a deep copy of snapshot.
func NewLayer[T any](scope Scope, snapshot T) Layer[T] {
	return Layer[T]{
		Scope:    scope,
		Snapshot: layering.Clone(snapshot),
	}
}

var (
	// ErrScopeNameRequired indicates a missing scope name.
	ErrScopeNameRequired = errors.New("scope: name must be provided")
	// ErrDuplicateScopeName indicates two layers share a scope name.
	ErrDuplicateScopeName = errors.New("scope: names must be unique")
	// ErrPriorityOrder indicates duplicate priorities.
	ErrPriorityOrder = errors.New("scope: priorities must be strictly ordered")
)

// Stack is an immutable set of layers ordered from strongest to weakest.
type Stack[T any] struct {
	layers []Layer[T]
}

// NewStack validates and sorts layers so that the highest priority comes
// first. Snapshots are deep copied.
func NewStack[T any](layers ...Layer[T]) (*Stack[T], error) {
	seen := make(map[string]struct{}, len(layers))
	copied := make([]Layer[T], len(layers))
	for i, layer := range layers {
		if layer.Scope.Name == "" {
			return nil, ErrScopeNameRequired
		}
		if _, ok := seen[layer.Scope.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateScopeName, layer.Scope.Name)
		}
		seen[layer.Scope.Name] = struct{}{}
		copied[i] = NewLayer(layer.Scope, layer.Snapshot)
	}

	sort.SliceStable(copied, func(i, j int) bool {
		return copied[i].Scope.Priority > copied[j].Scope.Priority
	})
	for i := 1; i < len(copied); i++ {
		if copied[i-1].Scope.Priority == copied[i].Scope.Priority {
			return nil, fmt.Errorf("%w: %d", ErrPriorityOrder, copied[i].Scope.Priority)
		}
	}
	return &Stack[T]{layers: copied}, nil
}

// Layers returns copies of the layers, strongest first.
func (s *Stack[T]) Layers() []Layer[T] {
	if s == nil {
		return nil
	}
	out := make([]Layer[T], len(s.layers))
	for i, layer := range s.layers {
		out[i] = NewLayer(layer.Scope, layer.Snapshot)
	}
	return out
}

// Len returns the number of layers.
func (s *Stack[T]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.layers)
}

// Merge deep merges the layers, strongest wins.
func (s *Stack[T]) Merge() (T, error) {
	var zero T
	if s == nil || len(s.layers) == 0 {
		return zero, fmt.Errorf("scope: stack must include at least one layer")
	}
	snapshots := make([]T, len(s.layers))
	for i, layer := range s.layers {
		snapshots[i] = layer.Snapshot
	}
	return layering.MergeLayers(snapshots...), nil
}
