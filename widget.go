package ssp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/goliatone/go-socialshare/pkg/activity"
	"github.com/google/uuid"
)

// Widget is one mounted share bar. All methods are safe for concurrent use;
// transitions on one widget are serialized by its own mutex and no state is
// shared with other widgets.
type Widget struct {
	mu sync.Mutex

	id      string
	host    *Host
	cfg     Config
	order   []string
	uri     string
	trace   *Resolution
	modules map[string]*instance

	perma   *permaRouter
	emitter *activity.Emitter
	logger  *slog.Logger
	hover   *hoverController

	subscribers map[int]func(StateChange)
	nextSub     int
	destroyed   bool
}

// instance is the per-network runtime record.
type instance struct {
	module       Module
	state        State
	markup       string
	permaChecked bool
}

// Mount resolves the configuration of host and builds its modules. Resolve
// errors are returned before any state exists; a configuration without
// enabled services fails with an error matching ErrNothingToRender.
//
// Defaults come from WithDefaults, falling back to DefaultConfig.
func Mount(ctx context.Context, host *Host, caller Values, opts ...Option) (*Widget, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if host == nil {
		return nil, &ConfigurationError{Field: "host", Reason: "host is required"}
	}
	cfg := applyOptions(opts)

	res, err := resolveWith(cfg, cfg.defaultsOrLibrary(), caller, host)
	if err != nil {
		return nil, err
	}

	w := &Widget{
		id:          cfg.widgetID,
		host:        host,
		cfg:         res.Config,
		order:       append([]string(nil), res.Order...),
		uri:         res.URI,
		trace:       res,
		modules:     make(map[string]*instance, len(res.Order)),
		emitter:     activity.NewEmitter(cfg.activityHooks, activity.Config{Enabled: true}),
		logger:      cfg.logger,
		subscribers: map[int]func(StateChange){},
	}
	if w.id == "" {
		w.id = uuid.NewString()
	}
	w.hover = newHoverController(cfg.scheduler, cfg.hoverDelay)

	if cfg.permaStore != nil || len(cfg.permaStores) > 0 {
		if w.perma, err = newPermaRouter(res.Config, cfg.permaStore, cfg.permaStores); err != nil {
			return nil, err
		}
	}

	for _, name := range res.Order {
		module, err := cfg.modules.Build(name, res.Config.Services[name])
		if err != nil {
			return nil, err
		}
		inst := &instance{module: module, state: StateOff}
		if module.Safe() {
			markup, err := module.EmbedMarkup(w.uri, host.Page)
			if err != nil {
				return nil, err
			}
			inst.state = StateOn
			inst.markup = markup
		}
		w.modules[name] = inst
	}

	replayed, err := w.replayPermaOptions(ctx)
	if err != nil {
		return nil, err
	}

	host.markInitialized()
	w.emit(ctx, activity.BuildCreateEvent(activity.WidgetEventInput{
		WidgetID: w.id,
		HostID:   host.ID,
		Metadata: map[string]any{
			"order":  append([]string(nil), w.order...),
			"config": w.cfg.Clone(),
		},
	}))
	w.announce(ctx, replayed...)
	return w, nil
}

// replayPermaOptions reads the stored preferences once and switches on the
// modules the visitor enabled permanently. Replays go through the same
// transition path as clicks and refresh the stored entry.
func (w *Widget) replayPermaOptions(ctx context.Context) ([]*StateChange, error) {
	eligible := w.permaEligible()
	if !w.cfg.PermaOption || len(eligible) == 0 || !w.perma.available() {
		return nil, nil
	}
	stored, err := w.perma.load(ctx, eligible)
	if err != nil {
		return nil, err
	}

	var changes []*StateChange
	policy := w.cfg.CookiePolicy()
	for _, name := range eligible {
		if !stored[name] {
			continue
		}
		inst := w.modules[name]
		inst.permaChecked = true
		change, err := w.switchOn(name, inst, TriggerPerma)
		if err != nil {
			w.logger.Warn("socialshare: perma replay failed",
				"widget", w.id, "network", name, "error", err)
			continue
		}
		changes = append(changes, change)
		if err := w.perma.store(ctx, name, policy); err != nil {
			w.logger.Warn("socialshare: perma refresh failed",
				"widget", w.id, "network", name, "error", err)
		}
	}
	return changes, nil
}

func (w *Widget) permaEligible() []string {
	names := make([]string, 0, len(w.order))
	for _, name := range w.order {
		if w.modules[name].module.PermaEligible() {
			names = append(names, name)
		}
	}
	return names
}

// ID returns the widget identifier.
func (w *Widget) ID() string {
	return w.id
}

// Host returns the element the widget is mounted on.
func (w *Widget) Host() *Host {
	return w.host
}

// Order returns the module order fixed at mount.
func (w *Widget) Order() []string {
	return append([]string(nil), w.order...)
}

// URI returns the address being shared.
func (w *Widget) URI() string {
	return w.uri
}

// Options returns a copy of the widget configuration.
func (w *Widget) Options() (Config, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.mountedLocked(""); err != nil {
		return Config{}, err
	}
	return w.cfg.Clone(), nil
}

// Trace reports which settings layer supplied path at mount time.
func (w *Widget) Trace(path string) Trace {
	return w.trace.Trace(path)
}

// State returns the activation state of network.
func (w *Widget) State(network string) (State, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	inst, err := w.instanceLocked(network)
	if err != nil {
		return StateOff, err
	}
	return inst.state, nil
}

// Enabled reports whether network is live. Safe modules always are.
func (w *Widget) Enabled(network string) (bool, error) {
	state, err := w.State(network)
	if err != nil {
		return false, err
	}
	return state == StateOn, nil
}

// Disabled reports whether network still shows its placeholder.
func (w *Widget) Disabled(network string) (bool, error) {
	state, err := w.State(network)
	if err != nil {
		return false, err
	}
	return state == StateOff, nil
}

// States returns the on/off flag of every mounted module.
func (w *Widget) States() (map[string]bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.mountedLocked(""); err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(w.modules))
	for name, inst := range w.modules {
		out[name] = inst.state == StateOn
	}
	return out, nil
}

// Subscribe registers fn for state, reveal and perma changes. fn runs after
// the widget lock is released. The returned func removes the subscription.
func (w *Widget) Subscribe(fn func(StateChange)) func() {
	if fn == nil {
		return func() {}
	}
	w.mu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subscribers[id] = fn
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subscribers, id)
			w.mu.Unlock()
		})
	}
}

// ReportDesync records a view that disagrees with the engine. It never fails;
// the diagnostic goes to the logger.
func (w *Widget) ReportDesync(network, detail string) {
	w.mu.Lock()
	state := "unknown"
	if inst, ok := w.modules[network]; ok {
		state = inst.state.String()
	}
	w.mu.Unlock()
	w.logger.Warn("socialshare: view desync",
		"widget", w.id, "network", network, "state", state, "detail", detail)
}

// Destroy emits the destroy event and then releases the widget. Any later
// call fails with *UnmountedAccessError.
func (w *Widget) Destroy(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	w.mu.Lock()
	if err := w.mountedLocked(""); err != nil {
		w.mu.Unlock()
		return err
	}
	event := activity.BuildDestroyEvent(activity.WidgetEventInput{WidgetID: w.id, HostID: w.host.ID})
	w.mu.Unlock()

	w.emit(ctx, event)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.mountedLocked(""); err != nil {
		return err
	}
	w.hover.stopAll()
	w.destroyed = true
	w.modules = map[string]*instance{}
	w.subscribers = map[int]func(StateChange){}
	return nil
}

func (w *Widget) mountedLocked(network string) error {
	if w.destroyed {
		return &UnmountedAccessError{Widget: w.id, Network: network}
	}
	return nil
}

func (w *Widget) instanceLocked(network string) (*instance, error) {
	if err := w.mountedLocked(network); err != nil {
		return nil, err
	}
	inst, ok := w.modules[network]
	if !ok {
		return nil, &UnmountedAccessError{Widget: w.id, Network: network}
	}
	return inst, nil
}

func (w *Widget) emit(ctx context.Context, event activity.Event) {
	if err := w.emitter.Emit(ctx, event); err != nil {
		w.logger.Warn("socialshare: activity hook failed",
			"widget", w.id, "verb", event.Verb, "error", err)
	}
}

func (w *Widget) publish(changes []StateChange) {
	if len(changes) == 0 {
		return
	}
	w.mu.Lock()
	subscribers := make([]func(StateChange), 0, len(w.subscribers))
	for id := 0; id < w.nextSub; id++ {
		if fn, ok := w.subscribers[id]; ok {
			subscribers = append(subscribers, fn)
		}
	}
	w.mu.Unlock()
	for _, change := range changes {
		for _, fn := range subscribers {
			fn(change)
		}
	}
}

// errNoPermaStore is returned by SetPermaOption when no store was configured.
var errNoPermaStore = errors.New("ssp: no perma store configured")

func permaIneligible(network string) error {
	return &ConfigurationError{
		Field:  fmt.Sprintf("services.%s.perma_option", network),
		Reason: "network is not perma eligible",
	}
}
