package ssp

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

// Function is a helper callable from attribute expressions. Only functions
// registered here, plus the built-in setting lookup, are reachable.
type Function func(args ...any) (any, error)

// reservedFunctionNames cannot be registered because the evaluators bind
// them themselves.
var reservedFunctionNames = map[string]struct{}{
	"setting": {},
	"element": {},
	"args":    {},
}

// FunctionRegistry stores expression helpers keyed by name.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// Register stores fn under name guarding against duplicates and reserved names.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("ssp: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("ssp: function name must not be empty")
	}
	key := strings.ToLower(name)
	if _, reserved := reservedFunctionNames[key]; reserved {
		return fmt.Errorf("ssp: function name %q is reserved", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("ssp: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]Function, len(r.functions)),
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("ssp: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("ssp: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ShareFunctions returns a registry holding the helpers available to
// attribute expressions by default:
//
//	urlencode(s)      query-escapes s
//	hostname(url)     host part of url, "" when it does not parse
//	truncate(s, n)    first n runes of s, with an ellipsis when cut
func ShareFunctions() *FunctionRegistry {
	registry := NewFunctionRegistry()
	_ = registry.Register("urlencode", func(args ...any) (any, error) {
		text, err := stringArg("urlencode", args, 0)
		if err != nil {
			return nil, err
		}
		return url.QueryEscape(text), nil
	})
	_ = registry.Register("hostname", func(args ...any) (any, error) {
		raw, err := stringArg("hostname", args, 0)
		if err != nil {
			return nil, err
		}
		parsed, err := url.Parse(raw)
		if err != nil {
			return "", nil
		}
		return parsed.Hostname(), nil
	})
	_ = registry.Register("truncate", func(args ...any) (any, error) {
		text, err := stringArg("truncate", args, 0)
		if err != nil {
			return nil, err
		}
		if len(args) != 2 {
			return nil, fmt.Errorf("ssp: truncate expects 2 arguments, got %d", len(args))
		}
		limit, ok := intArg(args[1])
		if !ok || limit < 0 {
			return nil, fmt.Errorf("ssp: truncate limit must be a non-negative integer, got %v", args[1])
		}
		if utf8.RuneCountInString(text) <= limit {
			return text, nil
		}
		return string([]rune(text)[:limit]) + "\u2026", nil
	})
	return registry
}

func stringArg(fn string, args []any, index int) (string, error) {
	if len(args) <= index {
		return "", fmt.Errorf("ssp: %s expects a string argument", fn)
	}
	text, ok := args[index].(string)
	if !ok {
		return "", fmt.Errorf("ssp: %s expects a string argument, got %T", fn, args[index])
	}
	return text, nil
}

// intArg accepts the integer shapes expr and CEL hand to Go functions.
func intArg(value any) (int, bool) {
	switch n := value.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}
