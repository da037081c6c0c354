package render_test

import (
	"context"
	"strings"
	"testing"

	ssp "github.com/goliatone/go-socialshare"
	"github.com/goliatone/go-socialshare/network"
	"github.com/goliatone/go-socialshare/pkg/state"
	"github.com/goliatone/go-socialshare/render"
)

func mountWidget(t *testing.T, store ssp.PermaStore) *ssp.Widget {
	t.Helper()
	host := &ssp.Host{
		ID:   "share",
		Page: ssp.Page{URL: "https://example.com/post", Title: "Post"},
	}
	caller := ssp.Values{
		"services": map[string]any{
			"twitter":  map[string]any{"status": true},
			"facebook": map[string]any{"status": true, "perma_option": false},
			"mail":     map[string]any{"status": true},
		},
		"order": []any{"twitter", "facebook", "mail"},
	}
	opts := []ssp.Option{ssp.WithDefaults(network.Defaults()), ssp.WithWidgetID("w1")}
	if store != nil {
		opts = append(opts, ssp.WithPermaStore(store))
	}
	widget, err := ssp.Mount(context.Background(), host, caller, opts...)
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	return widget
}

func TestWidgetRendersPlaceholders(t *testing.T) {
	widget := mountWidget(t, state.NewStore(state.NewMemoryBackend()))
	view, err := widget.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	out, err := render.Widget(view)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(out)

	for _, want := range []string{
		`<ul class="social_share_privacy_area line" data-widget="w1">`,
		`<li class="help_info twitter" data-service="twitter">`,
		`<span class="switch off">`,
		`class="twitter_privacy_dummy privacy_dummy"`,
		`<li class="settings_info">`,
		`<input type="checkbox" data-service="twitter">`,
		`href="mailto:`,
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected %q in output:\n%s", want, html)
		}
	}
	if strings.Contains(html, "<iframe") {
		t.Fatalf("placeholders must not contain embeds:\n%s", html)
	}
	if strings.Contains(html, `<input type="checkbox" data-service="facebook"`) {
		t.Fatalf("facebook opted out of perma-options:\n%s", html)
	}
}

func TestWidgetRendersLiveEmbed(t *testing.T) {
	widget := mountWidget(t, nil)
	if err := widget.Activate(context.Background(), "twitter", ssp.TriggerClick); err != nil {
		t.Fatalf("activate: %v", err)
	}
	view, _ := widget.Snapshot()
	out, err := render.Widget(view)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(out)
	if !strings.Contains(html, `<span class="switch on">`) || !strings.Contains(html, "<iframe") {
		t.Fatalf("expected live twitter embed:\n%s", html)
	}
	// without a store the perma menu is not offered
	if strings.Contains(html, "<fieldset>") {
		t.Fatalf("unexpected perma menu:\n%s", html)
	}
}

func TestSafeOnlyWidgetHasNoSettings(t *testing.T) {
	view := ssp.View{
		WidgetID: "w2",
		Layout:   ssp.LayoutBox,
		Modules: []ssp.ModuleView{{
			Network:   "mail",
			ClassName: "mail",
			Safe:      true,
			State:     ssp.StateOn,
			Markup:    `<a href="mailto:">Mail</a>`,
		}},
	}
	out, err := render.Widget(view)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	html := string(out)
	if strings.Contains(html, "settings_info") || strings.Contains(html, "switch") {
		t.Fatalf("safe-only widget must not render switches or settings:\n%s", html)
	}
	if !strings.Contains(html, `social_share_privacy_area box`) {
		t.Fatalf("expected box layout:\n%s", html)
	}
}
