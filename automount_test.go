package ssp

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func markedHost(id string, attributes map[string]string) *Host {
	host := testHost()
	host.ID = id
	host.Attributes = map[string]string{MarkerAttribute: "true"}
	for name, value := range attributes {
		host.Attributes[name] = value
	}
	return host
}

func TestAutoMount(t *testing.T) {
	mounted := markedHost("mounted", map[string]string{"data-order": "twitter"})
	unmarked := testHost()
	unmarked.ID = "unmarked"
	seen := markedHost("seen", map[string]string{InitializedAttribute: "true"})
	empty := markedHost("empty", map[string]string{
		"data-services.twitter.status":  "false",
		"data-services.facebook.status": "false",
		"data-services.mail.status":     "false",
	})
	broken := markedHost("broken", map[string]string{"data-layout": "grid"})

	widgets, err := AutoMount(context.Background(),
		[]*Host{mounted, unmarked, seen, empty, broken}, nil,
		WithDefaults(testDefaults()))

	if len(widgets) != 1 || widgets[0].Host() != mounted {
		t.Fatalf("expected only the marked host to mount, got %d widgets", len(widgets))
	}
	if widgets[0].Order()[0] != "twitter" {
		t.Fatalf("expected host attributes to apply, got %v", widgets[0].Order())
	}
	if err == nil || !strings.Contains(err.Error(), "mount broken") || !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected joined configuration error for the broken host, got %v", err)
	}
	if errors.Is(err, ErrNothingToRender) {
		t.Fatalf("hosts with nothing to render are skipped silently")
	}
	if unmarked.Initialized() {
		t.Fatalf("unmarked host must be left alone")
	}
	if !empty.Initialized() || !broken.Initialized() {
		t.Fatalf("visited hosts must be marked initialized")
	}

	again, err := AutoMount(context.Background(), []*Host{mounted, empty, broken}, nil, WithDefaults(testDefaults()))
	if err != nil || len(again) != 0 {
		t.Fatalf("expected a second pass to be a no-op, got %d widgets (%v)", len(again), err)
	}
}

func TestMountNothingToRender(t *testing.T) {
	_, err := Mount(context.Background(), testHost(), nil)
	if !errors.Is(err, ErrNothingToRender) {
		t.Fatalf("expected nothing to render with no services, got %v", err)
	}
	if _, err := Mount(context.Background(), nil, nil); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected missing host to fail, got %v", err)
	}
}
