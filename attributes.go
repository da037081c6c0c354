package ssp

import (
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-socialshare/layering"
)

// attributeParser turns the flat data-* namespace of a host into a settings
// tree. Structured values go through the restricted evaluator; everything
// else stays a string unless the field has a known scalar type.
type attributeParser struct {
	eval func(expression, field string) (any, error)
}

// ParseAttributes parses host attributes into a settings tree using the
// default expression evaluator. Setting lookups inside expressions see
// nothing; use Resolve for the full precedence chain.
func ParseAttributes(host *Host, opts ...Option) (map[string]any, error) {
	cfg := applyOptions(opts)
	if err := cfg.err(); err != nil {
		return nil, err
	}
	r := newResolver(cfg, host, nil)
	return r.parser().parse(host)
}

func (p attributeParser) parse(host *Host) (map[string]any, error) {
	data := map[string]any{}
	if host == nil {
		return data, nil
	}
	if host.Lang != "" {
		data["language"] = host.Lang
	}

	keys := make([]string, 0, len(host.Attributes))
	for name := range host.Attributes {
		if !strings.HasPrefix(name, AttributePrefix) || len(name) == len(AttributePrefix) {
			continue
		}
		if name == MarkerAttribute || name == InitializedAttribute {
			continue
		}
		keys = append(keys, name)
	}
	sort.Strings(keys)

	for _, name := range keys {
		path := attributePath(name)
		if err := p.assign(data, path, host.Attributes[name]); err != nil {
			return nil, err
		}
	}

	if err := p.coerce(data); err != nil {
		return nil, err
	}
	return data, nil
}

// attributePath maps "data-services.twitter.txt-info" to
// ["services", "twitter", "txt_info"].
func attributePath(name string) []string {
	trimmed := strings.TrimPrefix(name, AttributePrefix)
	return strings.Split(strings.ReplaceAll(trimmed, "-", "_"), ".")
}

func (p attributeParser) assign(data map[string]any, path []string, raw string) error {
	node := data
	for i, segment := range path[:len(path)-1] {
		field := strings.Join(path[:i+1], ".")
		existing, ok := node[segment]
		if !ok {
			child := map[string]any{}
			node[segment] = child
			node = child
			continue
		}
		switch typed := existing.(type) {
		case map[string]any:
			node = typed
		case string:
			child, err := p.structured(typed, field)
			if err != nil {
				return err
			}
			node[segment] = child
			node = child
		default:
			return &ConfigurationError{Field: field, Reason: "cannot set a nested value on a scalar"}
		}
	}

	leaf := path[len(path)-1]
	field := strings.Join(path, ".")
	if existing, ok := node[leaf].(map[string]any); ok {
		evaluated, err := p.structured(raw, field)
		if err != nil {
			return err
		}
		// values already placed by more specific attributes win
		node[leaf] = layering.MergeMaps(existing, evaluated)
		return nil
	}

	value, err := p.leaf(raw, field)
	if err != nil {
		return err
	}
	node[leaf] = value
	return nil
}

// leaf evaluates derivable and structured literals and keeps anything else
// verbatim.
func (p attributeParser) leaf(raw, field string) (any, error) {
	trimmed := strings.TrimSpace(raw)
	if expression, ok := derivedExpression(trimmed); ok {
		return p.eval(expression, field)
	}
	if looksStructured(trimmed) {
		return p.eval(trimmed, field)
	}
	return raw, nil
}

func (p attributeParser) structured(raw, field string) (map[string]any, error) {
	expression := strings.TrimSpace(raw)
	if inner, ok := derivedExpression(expression); ok {
		expression = inner
	}
	value, err := p.eval(expression, field)
	if err != nil {
		return nil, err
	}
	mapping, ok := asMapping(value)
	if !ok {
		return nil, &ConfigurationError{Field: field, Reason: "expected a mapping"}
	}
	return mapping, nil
}

func (p attributeParser) coerce(data map[string]any) error {
	// a blank data-cookie-expires leaves the weaker value in place
	if raw, ok := data["cookie_expires"].(string); ok && strings.TrimSpace(raw) == "" {
		delete(data, "cookie_expires")
	} else if ok {
		days, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return &ConfigurationError{Field: "cookie_expires", Reason: "not a number", Err: err}
		}
		data["cookie_expires"] = days
	}
	for _, key := range []string{"perma_option", "ignore_fragment"} {
		if raw, ok := data[key].(string); ok {
			data[key] = parseBool(raw)
		}
	}

	if raw, ok := data["order"].(string); ok {
		fields := strings.Fields(raw)
		if len(fields) == 0 {
			delete(data, "order")
		} else {
			order := make([]any, len(fields))
			for i, name := range fields {
				order[i] = name
			}
			data["order"] = order
		}
	}

	if raw, ok := data["services"].(string); ok {
		value, err := p.eval(strings.TrimSpace(unwrapDerived(raw)), "services")
		if err != nil {
			return err
		}
		data["services"] = value
	}

	if raw, ok := data["options"]; ok {
		delete(data, "options")
		var extra map[string]any
		switch typed := raw.(type) {
		case string:
			mapping, err := p.structured(typed, "options")
			if err != nil {
				return err
			}
			extra = mapping
		case map[string]any:
			extra = typed
		default:
			return &ConfigurationError{Field: "options", Reason: "expected a mapping"}
		}
		for key, value := range extra {
			data[key] = value
		}
	}

	services, ok := data["services"].(map[string]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if raw, ok := services[name].(string); ok {
			mapping, err := p.structured(raw, "services."+name)
			if err != nil {
				return err
			}
			services[name] = mapping
		}
		service, ok := services[name].(map[string]any)
		if !ok {
			continue
		}
		for _, key := range []string{"status", "perma_option"} {
			if raw, ok := service[key].(string); ok {
				service[key] = parseBool(raw)
			}
		}
	}
	return nil
}

func parseBool(raw string) bool {
	return strings.ToLower(strings.TrimSpace(raw)) == "true"
}

// derivedExpression unwraps "${ expr }".
func derivedExpression(raw string) (string, bool) {
	if strings.HasPrefix(raw, "${") && strings.HasSuffix(raw, "}") {
		return strings.TrimSpace(raw[2 : len(raw)-1]), true
	}
	return "", false
}

func unwrapDerived(raw string) string {
	if inner, ok := derivedExpression(strings.TrimSpace(raw)); ok {
		return inner
	}
	return raw
}

func looksStructured(raw string) bool {
	if len(raw) < 2 {
		return false
	}
	first, last := raw[0], raw[len(raw)-1]
	return (first == '{' && last == '}') || (first == '[' && last == ']')
}

func asMapping(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case Values:
		return map[string]any(typed), true
	case map[any]any:
		out := make(map[string]any, len(typed))
		for key, nested := range typed {
			name, ok := key.(string)
			if !ok {
				return nil, false
			}
			out[name] = nested
		}
		return out, true
	default:
		return nil, false
	}
}
