package ssp

import (
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/goliatone/go-socialshare/pkg/activity"
)

// Option configures Resolve, Mount and AutoMount.
type Option func(*optionsConfig)

type optionsConfig struct {
	defaults      *Config
	evaluator     Evaluator
	programCache  ProgramCache
	functions     *FunctionRegistry
	evalLogger    EvaluatorLogger
	logger        *slog.Logger
	permaStore    PermaStore
	permaStores   map[string]PermaStore
	modules       *ModuleRegistry
	activityHooks activity.Hooks
	hoverDelay    time.Duration
	scheduler     Scheduler
	widgetID      string
	// errs collects options that could not be applied.
	errs []error
}

const defaultHoverDelay = 500 * time.Millisecond

func applyOptions(opts []Option) optionsConfig {
	cfg := optionsConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.evalLogger == nil {
		cfg.evalLogger = noopEvaluatorLogger{}
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.hoverDelay <= 0 {
		cfg.hoverDelay = defaultHoverDelay
	}
	if cfg.scheduler == nil {
		cfg.scheduler = timeScheduler{}
	}
	if cfg.modules == nil {
		cfg.modules = DefaultModuleRegistry()
	}
	if cfg.evaluator == nil {
		if cfg.functions == nil {
			cfg.functions = ShareFunctions()
		}
		exprOpts := []ExprEvaluatorOption{ExprWithFunctionRegistry(cfg.functions)}
		if cfg.programCache != nil {
			exprOpts = append(exprOpts, ExprWithProgramCache(cfg.programCache))
		}
		cfg.evaluator = NewExprEvaluator(exprOpts...)
	}
	return cfg
}

// err reports the options that failed to apply.
func (cfg optionsConfig) err() error {
	return errors.Join(cfg.errs...)
}

// WithDefaults replaces the library defaults used by Mount and AutoMount.
func WithDefaults(defaults Config) Option {
	cloned := defaults.Clone()
	return func(cfg *optionsConfig) {
		cfg.defaults = &cloned
	}
}

func (cfg optionsConfig) defaultsOrLibrary() Config {
	if cfg.defaults != nil {
		return cfg.defaults.Clone()
	}
	return DefaultConfig()
}

// WithEvaluator replaces the default expr evaluator, e.g. with NewCELEvaluator.
func WithEvaluator(e Evaluator) Option {
	return func(cfg *optionsConfig) {
		cfg.evaluator = e
	}
}

// WithProgramCache registers a program cache on the default evaluator.
func WithProgramCache(cache ProgramCache) Option {
	return func(cfg *optionsConfig) {
		cfg.programCache = cache
	}
}

// WithFunctionRegistry exposes registry functions to attribute expressions
// evaluated by the default evaluator.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *optionsConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithCustomFunction registers fn for attribute expressions next to the
// ShareFunctions helpers. Reserved or already registered names make
// Resolve and Mount fail with a ConfigurationError.
func WithCustomFunction(name string, fn Function) Option {
	return func(cfg *optionsConfig) {
		if cfg.functions == nil {
			cfg.functions = ShareFunctions()
		}
		if err := cfg.functions.Register(name, fn); err != nil {
			cfg.errs = append(cfg.errs, &ConfigurationError{
				Field:  "functions." + name,
				Reason: "custom function rejected",
				Err:    err,
			})
		}
	}
}

// WithEvaluatorLogger records every expression evaluation.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *optionsConfig) {
		cfg.evalLogger = logger
	}
}

// WithLogger sets the diagnostic logger. Engine/view desyncs and failed
// perma replays are reported here instead of being returned.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *optionsConfig) {
		cfg.logger = logger
	}
}

// WithPermaStore sets the store used for perma-options.
func WithPermaStore(store PermaStore) Option {
	return func(cfg *optionsConfig) {
		cfg.permaStore = store
	}
}

// WithNamedPermaStore registers a store the set_perma_option,
// del_perma_option, get_perma_option and get_perma_options settings can
// route individual operations to.
func WithNamedPermaStore(name string, store PermaStore) Option {
	return func(cfg *optionsConfig) {
		if name == "" || store == nil {
			return
		}
		if cfg.permaStores == nil {
			cfg.permaStores = map[string]PermaStore{}
		}
		cfg.permaStores[name] = store
	}
}

// WithModuleRegistry replaces the registry used to build network modules.
func WithModuleRegistry(registry *ModuleRegistry) Option {
	return func(cfg *optionsConfig) {
		cfg.modules = registry
	}
}

// WithActivityHooks attaches lifecycle hooks. Nil entries are dropped.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *optionsConfig) {
		cfg.activityHooks = append(cfg.activityHooks, normalized...)
	}
}

// WithHoverDelay overrides the 500ms info reveal delay.
func WithHoverDelay(delay time.Duration) Option {
	return func(cfg *optionsConfig) {
		cfg.hoverDelay = delay
	}
}

// WithScheduler replaces the timer source used for hover reveals.
func WithScheduler(scheduler Scheduler) Option {
	return func(cfg *optionsConfig) {
		cfg.scheduler = scheduler
	}
}

// WithWidgetID fixes the widget identifier instead of generating one.
func WithWidgetID(id string) Option {
	return func(cfg *optionsConfig) {
		cfg.widgetID = id
	}
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make(activity.Hooks, 0, len(hooks))
	for _, hook := range hooks {
		if hook != nil {
			normalized = append(normalized, hook)
		}
	}
	return normalized
}
