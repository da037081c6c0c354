package ssp

import (
	"encoding/json"
	"strings"
)

// Trace records which settings layer supplied the value at Path.
type Trace struct {
	Path   string       `json:"path"`
	Layers []Provenance `json:"layers"`
}

// Provenance details how one layer contributed to a traced path.
type Provenance struct {
	Scope Scope  `json:"scope"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
	Found bool   `json:"found"`
}

// Winner returns the strongest layer that defines the path.
func (t Trace) Winner() (Provenance, bool) {
	for _, layer := range t.Layers {
		if layer.Found {
			return layer, true
		}
	}
	return Provenance{}, false
}

// ToJSON serialises the trace.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a payload produced by ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

func traceLayers(path string, layers []Layer[map[string]any]) Trace {
	trace := Trace{Path: path, Layers: make([]Provenance, 0, len(layers))}
	for _, layer := range layers {
		value, found := lookupPath(layer.Snapshot, path)
		trace.Layers = append(trace.Layers, Provenance{
			Scope: layer.Scope,
			Path:  path,
			Value: value,
			Found: found,
		})
	}
	return trace
}

// lookupPath walks a dot separated path through nested maps.
func lookupPath(tree map[string]any, path string) (any, bool) {
	if tree == nil || path == "" {
		return nil, false
	}
	var current any = tree
	for _, segment := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
