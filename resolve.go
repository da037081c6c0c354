package ssp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-socialshare/internal/hydrate"
	"github.com/goliatone/go-socialshare/layering"
)

// Resolution is the outcome of one resolve pass.
type Resolution struct {
	Config Config
	// Order lists the enabled services in render order.
	Order []string
	// URI is the canonical address that will be shared.
	URI string

	layers []Layer[map[string]any]
}

// Trace reports which layer supplied the value at path.
func (r *Resolution) Trace(path string) Trace {
	if r == nil {
		return Trace{Path: path}
	}
	return traceLayers(path, r.layers)
}

// Resolve merges defaults < caller < host attributes into the configuration
// of one widget. When no service is enabled the returned error matches
// ErrNothingToRender and callers should skip mounting.
func Resolve(defaults Config, caller Values, host *Host, opts ...Option) (*Resolution, error) {
	cfg := applyOptions(opts)
	return resolveWith(cfg, defaults, caller, host)
}

func resolveWith(cfg optionsConfig, defaults Config, caller Values, host *Host) (*Resolution, error) {
	if err := cfg.err(); err != nil {
		return nil, err
	}
	defaultsTree, err := toTree(defaults)
	if err != nil {
		return nil, &ConfigurationError{Field: "defaults", Reason: "not serialisable", Err: err}
	}

	r := newResolver(cfg, host, defaultsTree)
	callerTree, err := r.deriveCaller(caller)
	if err != nil {
		return nil, err
	}

	r.weak = layering.MergeMaps(callerTree, defaultsTree)
	attributesTree, err := r.parser().parse(host)
	if err != nil {
		return nil, err
	}

	stack, err := precedenceStack(defaultsTree, callerTree, attributesTree)
	if err != nil {
		return nil, &ConfigurationError{Reason: "layering", Err: err}
	}
	merged, err := stack.Merge()
	if err != nil {
		return nil, &ConfigurationError{Reason: "layering", Err: err}
	}

	resolved, err := decodeConfig(host, merged)
	if err != nil {
		return nil, err
	}

	order := ModuleOrder(resolved.Services, resolved.Order)
	if len(order) == 0 {
		return nil, nothingToRender()
	}

	return &Resolution{
		Config: resolved,
		Order:  order,
		URI:    shareURI(resolved, host),
		layers: stack.Layers(),
	}, nil
}

var configDecoder = hydrate.NewDecoder[Config](
	hydrate.WithPreHook[Config](checkServicesShape),
	hydrate.WithPostHook[Config](inheritModuleDefaults),
	hydrate.WithPostHook[Config](func(_ hydrate.Context, cfg *Config) error {
		return cfg.Validate()
	}),
)

func decodeConfig(host *Host, merged map[string]any) (Config, error) {
	ctx := hydrate.Context{Source: "resolve"}
	if host != nil {
		ctx.Widget = host.ID
	}
	resolved, err := configDecoder.Decode(ctx, merged)
	if err != nil {
		var cfgErr *ConfigurationError
		if errors.As(err, &cfgErr) {
			return Config{}, cfgErr
		}
		return Config{}, &ConfigurationError{Reason: "decode", Err: err}
	}
	return resolved, nil
}

func checkServicesShape(_ hydrate.Context, tree map[string]any) (map[string]any, error) {
	raw, ok := tree["services"]
	if !ok || raw == nil {
		tree["services"] = map[string]any{}
		return tree, nil
	}
	services, ok := raw.(map[string]any)
	if !ok {
		return nil, &ConfigurationError{Field: "services", Reason: fmt.Sprintf("expected a mapping, got %T", raw)}
	}
	for name, service := range services {
		if _, ok := service.(map[string]any); !ok {
			return nil, &ConfigurationError{Field: "services." + name, Reason: fmt.Sprintf("expected a mapping, got %T", service)}
		}
	}
	return tree, nil
}

func inheritModuleDefaults(_ hydrate.Context, cfg *Config) error {
	for name, service := range cfg.Services {
		if service.Language == "" {
			service.Language = cfg.Language
		}
		if service.PathPrefix == "" {
			service.PathPrefix = cfg.PathPrefix
		}
		cfg.Services[name] = service
	}
	return nil
}

// shareURI picks the address to share: explicit uri, then the canonical
// link, then the page URL. The fragment is dropped when ignore_fragment is on.
func shareURI(cfg Config, host *Host) string {
	uri := cfg.URI
	if uri == "" && host != nil {
		uri = host.Page.Canonical
		if uri == "" {
			uri = host.Page.URL
		}
	}
	if uri == "" || !cfg.IgnoreFragment {
		return uri
	}
	parsed, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	parsed.Fragment = ""
	parsed.RawFragment = ""
	return parsed.String()
}

// resolver holds the per-pass evaluation state.
type resolver struct {
	cfg     optionsConfig
	element map[string]any
	weak    map[string]any
}

func newResolver(cfg optionsConfig, host *Host, weak map[string]any) *resolver {
	return &resolver{
		cfg:     cfg,
		element: host.binding(),
		weak:    weak,
	}
}

func (r *resolver) parser() attributeParser {
	return attributeParser{eval: r.evaluate}
}

func (r *resolver) setting(path string) (any, bool) {
	value, ok := lookupPath(r.weak, path)
	if !ok {
		return nil, false
	}
	return layering.Clone(value), true
}

func (r *resolver) evaluate(expression, field string) (any, error) {
	start := time.Now()
	value, err := r.cfg.evaluator.Evaluate(EvalContext{
		Element: layering.Clone(r.element),
		Setting: r.setting,
		Field:   field,
	}, expression)
	err = wrapEvaluationError(evaluatorEngineName(r.cfg.evaluator), expression, field, err)
	r.cfg.evalLogger.LogEvaluation(EvaluatorLogEvent{
		Engine:   evaluatorEngineName(r.cfg.evaluator),
		Expr:     expression,
		Field:    field,
		Duration: time.Since(start),
		Err:      err,
	})
	if err != nil {
		return nil, &ConfigurationError{Field: field, Reason: "expression failed", Err: err}
	}
	return value, nil
}

func (r *resolver) deriveCaller(caller Values) (map[string]any, error) {
	if caller == nil {
		return map[string]any{}, nil
	}
	derived, err := r.derive(map[string]any(caller), "")
	if err != nil {
		return nil, err
	}
	tree, err := toTree(derived)
	if err != nil {
		return nil, &ConfigurationError{Reason: "caller options not serialisable", Err: err}
	}
	return tree, nil
}

// derive replaces expressions and callbacks inside caller options. Callers
// see the library defaults through setting().
func (r *resolver) derive(value any, path string) (any, error) {
	switch typed := value.(type) {
	case Expression:
		return r.evaluate(string(typed), path)
	case DeriveFunc:
		return r.call(typed, path)
	case func(DeriveContext) (any, error):
		return r.call(typed, path)
	case Values:
		return r.derive(map[string]any(typed), path)
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(typed))
		for _, key := range keys {
			nested, err := r.derive(typed[key], joinPath(path, key))
			if err != nil {
				return nil, err
			}
			out[key] = nested
		}
		return out, nil
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			nested, err := r.derive(item, fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = nested
		}
		return out, nil
	default:
		return value, nil
	}
}

func (r *resolver) call(fn func(DeriveContext) (any, error), path string) (any, error) {
	value, err := fn(DeriveContext{
		Element: layering.Clone(r.element),
		Setting: r.setting,
	})
	if err != nil {
		return nil, &ConfigurationError{Field: path, Reason: "derived value failed", Err: err}
	}
	return value, nil
}

// toTree normalises any JSON-compatible value into a map tree.
func toTree(value any) (map[string]any, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := json.Unmarshal(payload, &tree); err != nil {
		return nil, err
	}
	if tree == nil {
		tree = map[string]any{}
	}
	return tree, nil
}

func joinPath(prefix, segment string) string {
	if prefix == "" {
		return segment
	}
	return strings.Join([]string{prefix, segment}, ".")
}
