package ssp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/goliatone/go-socialshare/pkg/activity"
	"github.com/google/go-cmp/cmp"
)

func testDefaults() Config {
	cfg := DefaultConfig()
	gated := func(display, embed string) ModuleConfig {
		return ModuleConfig{
			Status:       true,
			Privacy:      "unsafe",
			DummyLineImg: "dummy_" + strings.ToLower(display) + ".png",
			DummyBoxImg:  "dummy_box_" + strings.ToLower(display) + ".png",
			TxtInfo:      display + " info",
			TxtOff:       "not connected to " + display,
			TxtOn:        "connected to " + display,
			DisplayName:  display,
			PermaOption:  true,
			EmbedURL:     embed,
		}
	}
	cfg.Services = map[string]ModuleConfig{
		"twitter":  gated("Twitter", "https://twitter.test/share?url={uri}&text={text}"),
		"facebook": gated("Facebook", "https://facebook.test/like?href={uri}"),
		"mail": {
			Status:      true,
			Privacy:     PrivacySafe,
			DisplayName: "E-Mail",
			EmbedURL:    "mailto:?subject={title}",
			EmbedKind:   EmbedLink,
		},
	}
	return cfg
}

func testHost() *Host {
	return &Host{
		ID:   "share",
		Lang: "en",
		Page: Page{URL: "https://example.com/post#comments", Title: "Hello"},
	}
}

func mountTest(t *testing.T, opts ...Option) *Widget {
	t.Helper()
	base := []Option{WithDefaults(testDefaults()), WithWidgetID("w1")}
	widget, err := Mount(context.Background(), testHost(), nil, append(base, opts...)...)
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	return widget
}

func newTestLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, nil))
}

type fakePermaStore struct {
	mu       sync.Mutex
	entries  map[string]bool
	sets     []string
	clears   []string
	policies []CookiePolicy
	reads    int
	err      error
}

func newFakePermaStore(seed ...string) *fakePermaStore {
	store := &fakePermaStore{entries: map[string]bool{}}
	for _, name := range seed {
		store.entries[name] = true
	}
	return store
}

func (s *fakePermaStore) Get(_ context.Context, network string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	return s.entries[network], s.err
}

func (s *fakePermaStore) GetAll(_ context.Context) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]bool, len(s.entries))
	for name, on := range s.entries {
		out[name] = on
	}
	return out, nil
}

func (s *fakePermaStore) Set(_ context.Context, network string, policy CookiePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries[network] = true
	s.sets = append(s.sets, network)
	s.policies = append(s.policies, policy)
	return nil
}

func (s *fakePermaStore) Clear(_ context.Context, network string, policy CookiePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	delete(s.entries, network)
	s.clears = append(s.clears, network)
	s.policies = append(s.policies, policy)
	return nil
}

func mustState(t *testing.T, w *Widget, network string, want State) {
	t.Helper()
	got, err := w.State(network)
	if err != nil {
		t.Fatalf("state %s: %v", network, err)
	}
	if got != want {
		t.Fatalf("expected %s to be %s, got %s", network, want, got)
	}
}

func TestMountStartsGatedModulesOff(t *testing.T) {
	store := newFakePermaStore()
	widget := mountTest(t, WithPermaStore(store))

	if diff := cmp.Diff([]string{"facebook", "mail", "twitter"}, widget.Order()); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	mustState(t, widget, "twitter", StateOff)
	mustState(t, widget, "facebook", StateOff)
	mustState(t, widget, "mail", StateOn)
	if widget.URI() != "https://example.com/post" {
		t.Fatalf("expected fragment to be dropped, got %q", widget.URI())
	}
	if !widget.Host().Initialized() {
		t.Fatalf("expected host to be marked initialized")
	}
	if store.reads != 1 {
		t.Fatalf("expected a single store read at mount, got %d", store.reads)
	}
}

func TestActivateNeverWritesPermaOption(t *testing.T) {
	store := newFakePermaStore()
	widget := mountTest(t, WithPermaStore(store))

	if err := widget.Activate(context.Background(), "twitter", TriggerClick); err != nil {
		t.Fatalf("activate: %v", err)
	}
	mustState(t, widget, "twitter", StateOn)
	if len(store.sets) != 0 || len(store.clears) != 0 {
		t.Fatalf("expected no store writes, got sets=%v clears=%v", store.sets, store.clears)
	}

	view, err := widget.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	for _, module := range view.Modules {
		if module.Network != "twitter" {
			continue
		}
		if !strings.Contains(module.Markup, "https://twitter.test/share?url=https%3A%2F%2Fexample.com%2Fpost&amp;text=Hello") {
			t.Fatalf("unexpected markup %q", module.Markup)
		}
		if module.SwitchText != "connected to Twitter" {
			t.Fatalf("unexpected switch text %q", module.SwitchText)
		}
	}

	if err := widget.Deactivate(context.Background(), "twitter", TriggerClick); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	mustState(t, widget, "twitter", StateOff)
}

func TestStoredPermaOptionIsReplayedAndRefreshed(t *testing.T) {
	store := newFakePermaStore("twitter")
	widget := mountTest(t, WithPermaStore(store))

	mustState(t, widget, "twitter", StateOn)
	mustState(t, widget, "facebook", StateOff)
	if diff := cmp.Diff([]string{"twitter"}, store.sets); diff != "" {
		t.Fatalf("expected refresh write (-want +got):\n%s", diff)
	}
	want := CookiePolicy{Path: "/", ExpiresDays: 365}
	if store.policies[0] != want {
		t.Fatalf("expected policy %+v, got %+v", want, store.policies[0])
	}

	view, err := widget.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if !view.ShowPermaMenu || !view.ShowSettings {
		t.Fatalf("expected settings and perma menu, got %+v", view)
	}
	for _, module := range view.Modules {
		if module.Network == "twitter" && !module.PermaChecked {
			t.Fatalf("expected twitter checkbox to be checked")
		}
	}
}

func TestPermaReplayIsSkippedWhenDisabled(t *testing.T) {
	store := newFakePermaStore("twitter")
	widget := mountTest(t, WithPermaStore(store), WithDefaults(func() Config {
		cfg := testDefaults()
		cfg.PermaOption = false
		return cfg
	}()))

	mustState(t, widget, "twitter", StateOff)
	if store.reads != 0 {
		t.Fatalf("expected no store reads, got %d", store.reads)
	}
	if err := widget.SetPermaOption(context.Background(), "twitter", true); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSetPermaOption(t *testing.T) {
	store := newFakePermaStore()
	widget := mountTest(t, WithPermaStore(store))
	ctx := context.Background()

	if err := widget.SetPermaOption(ctx, "twitter", true); err != nil {
		t.Fatalf("check: %v", err)
	}
	mustState(t, widget, "twitter", StateOn)
	if on, err := widget.PermaOption(ctx, "twitter"); err != nil || !on {
		t.Fatalf("expected stored option, got %v (%v)", on, err)
	}

	if err := widget.SetPermaOption(ctx, "twitter", false); err != nil {
		t.Fatalf("uncheck: %v", err)
	}
	mustState(t, widget, "twitter", StateOn)
	if on, _ := widget.PermaOption(ctx, "twitter"); on {
		t.Fatalf("expected option to be cleared")
	}
	if diff := cmp.Diff([]string{"twitter"}, store.clears); diff != "" {
		t.Fatalf("clears mismatch (-want +got):\n%s", diff)
	}

	if err := widget.SetPermaOption(ctx, "mail", true); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected safe module to be ineligible, got %v", err)
	}
}

func TestSetPermaOptionWithoutStore(t *testing.T) {
	widget := mountTest(t)
	if err := widget.SetPermaOption(context.Background(), "twitter", true); !errors.Is(err, errNoPermaStore) {
		t.Fatalf("expected errNoPermaStore, got %v", err)
	}
	mustState(t, widget, "twitter", StateOff)

	view, err := widget.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if view.ShowPermaMenu {
		t.Fatalf("expected no perma menu without a store")
	}
}

func TestSetPermaOptionStoreFailureKeepsState(t *testing.T) {
	store := newFakePermaStore()
	widget := mountTest(t, WithPermaStore(store))
	store.err = errors.New("disk full")

	err := widget.SetPermaOption(context.Background(), "twitter", true)
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected store error, got %v", err)
	}
	mustState(t, widget, "twitter", StateOff)
}

func TestNamedPermaStoresRouteOperations(t *testing.T) {
	primary := newFakePermaStore()
	audit := newFakePermaStore()
	defaults := testDefaults()
	defaults.SetPermaOption = "audit"

	widget := mountTest(t, WithDefaults(defaults), WithPermaStore(primary), WithNamedPermaStore("audit", audit))
	if err := widget.SetPermaOption(context.Background(), "facebook", true); err != nil {
		t.Fatalf("check: %v", err)
	}
	if len(primary.sets) != 0 {
		t.Fatalf("expected primary store untouched, got %v", primary.sets)
	}
	if diff := cmp.Diff([]string{"facebook"}, audit.sets); diff != "" {
		t.Fatalf("audit sets mismatch (-want +got):\n%s", diff)
	}

	defaults.DelPermaOption = "missing"
	_, err := Mount(context.Background(), testHost(), nil,
		WithDefaults(defaults), WithPermaStore(primary), WithNamedPermaStore("audit", audit))
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "del_perma_option" {
		t.Fatalf("expected del_perma_option configuration error, got %v", err)
	}
}

func TestMissingEmbedSourceKeepsModuleOff(t *testing.T) {
	defaults := testDefaults()
	twitter := defaults.Services["twitter"]
	twitter.EmbedURL = ""
	defaults.Services["twitter"] = twitter

	widget := mountTest(t, WithDefaults(defaults))
	err := widget.Activate(context.Background(), "twitter", TriggerClick)
	var missing *MissingEmbedSourceError
	if !errors.As(err, &missing) || missing.Network != "twitter" {
		t.Fatalf("expected missing embed source, got %v", err)
	}
	mustState(t, widget, "twitter", StateOff)

	if err := widget.ActivateAll(context.Background(), TriggerCommand); !errors.Is(err, ErrMissingEmbedSource) {
		t.Fatalf("expected joined missing embed error, got %v", err)
	}
	mustState(t, widget, "facebook", StateOn)
}

func TestEmbedHintOnlyFillsUnresolvableModules(t *testing.T) {
	defaults := testDefaults()
	twitter := defaults.Services["twitter"]
	twitter.EmbedURL = ""
	defaults.Services["twitter"] = twitter
	host := testHost()
	host.Page.EmbedHint = "https://video.test/embed/1"

	widget, err := Mount(context.Background(), host, nil, WithDefaults(defaults), WithWidgetID("w1"))
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	if err := widget.ActivateAll(context.Background(), TriggerCommand); err != nil {
		t.Fatalf("activate all: %v", err)
	}
	view, err := widget.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	for _, module := range view.Modules {
		hinted := strings.Contains(module.Markup, "video.test")
		if hinted != (module.Network == "twitter") {
			t.Fatalf("%s: unexpected embed markup %s", module.Network, module.Markup)
		}
	}
}

func TestSafeModulesStayOn(t *testing.T) {
	widget := mountTest(t)
	ctx := context.Background()
	for _, op := range []func() error{
		func() error { return widget.Deactivate(ctx, "mail", TriggerClick) },
		func() error { return widget.Toggle(ctx, "mail", TriggerClick) },
		func() error { return widget.DeactivateAll(ctx, TriggerCommand) },
	} {
		if err := op(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		mustState(t, widget, "mail", StateOn)
	}
}

func TestToggleAll(t *testing.T) {
	widget := mountTest(t)
	ctx := context.Background()
	if err := widget.Activate(ctx, "twitter", TriggerClick); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := widget.ToggleAll(ctx, TriggerCommand); err != nil {
		t.Fatalf("toggle all: %v", err)
	}
	states, err := widget.States()
	if err != nil {
		t.Fatalf("states: %v", err)
	}
	want := map[string]bool{"twitter": false, "facebook": true, "mail": true}
	if !reflect.DeepEqual(want, states) {
		t.Fatalf("expected %v, got %v", want, states)
	}
}

func TestUnknownNetworkIsUnmountedAccess(t *testing.T) {
	widget := mountTest(t)
	err := widget.Activate(context.Background(), "myspace", TriggerClick)
	var unmounted *UnmountedAccessError
	if !errors.As(err, &unmounted) || unmounted.Network != "myspace" {
		t.Fatalf("expected unmounted access, got %v", err)
	}
}

func TestDestroy(t *testing.T) {
	capture := &activity.CaptureHook{}
	widget := mountTest(t, WithActivityHooks(activity.Hooks{capture}))
	ctx := context.Background()

	if err := widget.Destroy(ctx); err != nil {
		t.Fatalf("destroy: %v", err)
	}
	if _, err := widget.State("twitter"); !errors.Is(err, ErrUnmounted) {
		t.Fatalf("expected unmounted error, got %v", err)
	}
	if _, err := widget.Snapshot(); !errors.Is(err, ErrUnmounted) {
		t.Fatalf("expected unmounted snapshot, got %v", err)
	}
	if err := widget.Destroy(ctx); !errors.Is(err, ErrUnmounted) {
		t.Fatalf("expected second destroy to fail, got %v", err)
	}

	last, _ := capture.Last()
	if last.Verb != activity.VerbDestroy || last.ObjectID != "w1" {
		t.Fatalf("expected destroy event, got %+v", last)
	}
}

func TestSubscribersReceiveChanges(t *testing.T) {
	widget := mountTest(t, WithPermaStore(newFakePermaStore()))
	ctx := context.Background()

	var changes []StateChange
	unsubscribe := widget.Subscribe(func(change StateChange) {
		changes = append(changes, change)
	})

	if err := widget.Activate(ctx, "twitter", TriggerClick); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := widget.Activate(ctx, "twitter", TriggerClick); err != nil {
		t.Fatalf("activate again: %v", err)
	}
	if err := widget.SetPermaOption(ctx, "facebook", true); err != nil {
		t.Fatalf("perma: %v", err)
	}
	unsubscribe()
	if err := widget.Deactivate(ctx, "twitter", TriggerClick); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	want := []StateChange{
		{Widget: "w1", Network: "twitter", Kind: ChangeState, From: StateOff, To: StateOn, Trigger: TriggerClick},
		{Widget: "w1", Network: "facebook", Kind: ChangeState, From: StateOff, To: StateOn, Trigger: TriggerSettings},
		{Widget: "w1", Network: "facebook", Kind: ChangePerma, From: StateOn, To: StateOn, Trigger: TriggerSettings, PermaChecked: true},
	}
	if diff := cmp.Diff(want, changes); diff != "" {
		t.Fatalf("changes mismatch (-want +got):\n%s", diff)
	}
}

func TestActivityEvents(t *testing.T) {
	capture := &activity.CaptureHook{}
	store := newFakePermaStore("facebook")
	widget := mountTest(t, WithPermaStore(store), WithActivityHooks(activity.Hooks{capture}))
	ctx := activity.WithActor(context.Background(), "visitor-1")

	if err := widget.Activate(ctx, "twitter", TriggerClick); err != nil {
		t.Fatalf("activate: %v", err)
	}
	if err := widget.SetPermaOption(ctx, "facebook", false); err != nil {
		t.Fatalf("uncheck: %v", err)
	}

	want := []string{activity.VerbCreate, activity.VerbEnable, activity.VerbEnable, activity.VerbPermaClear}
	if diff := cmp.Diff(want, capture.Verbs()); diff != "" {
		t.Fatalf("verbs mismatch (-want +got):\n%s", diff)
	}

	replay := capture.Events[1]
	if replay.ObjectID != "w1/facebook" || replay.Metadata["trigger"] != string(TriggerPerma) {
		t.Fatalf("unexpected replay event %+v", replay)
	}
	click := capture.Events[2]
	if click.Network() != "twitter" || click.Metadata["new_state"] != StateOn.String() {
		t.Fatalf("unexpected click event %+v", click)
	}
	if click.ActorID != "visitor-1" || replay.ActorID != "" {
		t.Fatalf("expected the visitor on the click only, got %q / %q", click.ActorID, replay.ActorID)
	}
}

func TestActivityHookFailureDoesNotFailTransition(t *testing.T) {
	capture := &activity.CaptureHook{Err: errors.New("sink down")}
	widget := mountTest(t, WithActivityHooks(activity.Hooks{capture}))
	if err := widget.Activate(context.Background(), "twitter", TriggerClick); err != nil {
		t.Fatalf("expected hook failure to be logged only, got %v", err)
	}
	mustState(t, widget, "twitter", StateOn)
}

func TestWidgetsAreIsolated(t *testing.T) {
	first := mountTest(t)
	second, err := Mount(context.Background(), testHost(), nil, WithDefaults(testDefaults()))
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	if second.ID() == "" || second.ID() == first.ID() {
		t.Fatalf("expected a generated id, got %q", second.ID())
	}
	if err := first.Activate(context.Background(), "twitter", TriggerClick); err != nil {
		t.Fatalf("activate: %v", err)
	}
	mustState(t, second, "twitter", StateOff)
}

func TestConcurrentTransitions(t *testing.T) {
	widget := mountTest(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			network := []string{"twitter", "facebook"}[i%2]
			_ = widget.Toggle(ctx, network, TriggerClick)
			_, _ = widget.Snapshot()
		}(i)
	}
	wg.Wait()

	states, err := widget.States()
	if err != nil {
		t.Fatalf("states: %v", err)
	}
	names := make([]string, 0, len(states))
	for name := range states {
		names = append(names, name)
	}
	sort.Strings(names)
	if diff := cmp.Diff([]string{"facebook", "mail", "twitter"}, names); diff != "" {
		t.Fatalf("modules mismatch (-want +got):\n%s", diff)
	}
	// Sixteen toggles per network bring both back to Off.
	if states["twitter"] || states["facebook"] {
		t.Fatalf("expected both networks off, got %v", states)
	}
}

func TestReportDesyncLogs(t *testing.T) {
	var buf strings.Builder
	widget := mountTest(t, WithLogger(newTestLogger(&buf)))
	widget.ReportDesync("twitter", "iframe missing")
	if !strings.Contains(buf.String(), "socialshare: view desync") || !strings.Contains(buf.String(), "iframe missing") {
		t.Fatalf("expected desync log, got %q", buf.String())
	}
}
