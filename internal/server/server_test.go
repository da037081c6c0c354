package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	ssp "github.com/goliatone/go-socialshare"
	"github.com/goliatone/go-socialshare/internal/config"
	"github.com/goliatone/go-socialshare/pkg/activity"
	"github.com/goliatone/go-socialshare/pkg/state"
	"github.com/goliatone/go-socialshare/pkg/state/cookiestore"
)

func newTestServer(t *testing.T, stores StoreFactory) *Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Caller = map[string]any{
		"services": map[string]any{
			"twitter":  map[string]any{"status": true},
			"facebook": map[string]any{"status": true},
		},
	}
	cfg.Host.Page = config.PageConfig{URL: "https://example.com/post", Title: "Post"}
	if stores == nil {
		stores = func(w http.ResponseWriter, r *http.Request) ssp.PermaStore {
			return cookiestore.NewStore(r, w)
		}
	}
	srv, err := New(cfg, stores, nil)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv
}

func TestPageRendersPlaceholders(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "social_share_privacy_area") {
		t.Fatalf("expected widget markup:\n%s", body)
	}
	if strings.Contains(body, "<iframe") {
		t.Fatalf("no embed may load before a click:\n%s", body)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("rendering must not write perma cookies")
	}
}

func TestPageEnableQueryActivates(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?enable=twitter", nil))

	if !strings.Contains(rec.Body.String(), "platform.twitter.com") {
		t.Fatalf("expected twitter embed:\n%s", rec.Body.String())
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("a click must not persist a perma-option")
	}
}

func TestPermaRoundTripThroughCookies(t *testing.T) {
	srv := newTestServer(t, nil)

	form := url.Values{"checked": {"true"}}
	req := httptest.NewRequest(http.MethodPost, "/perma/twitter", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect, got %d: %s", rec.Code, rec.Body.String())
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != state.Key("twitter") {
		t.Fatalf("expected twitter perma cookie, got %+v", cookies)
	}

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, next)
	body := rec.Body.String()
	if !strings.Contains(body, "platform.twitter.com") {
		t.Fatalf("expected replayed twitter embed:\n%s", body)
	}
	if !strings.Contains(body, `data-service="twitter" checked="checked"`) {
		t.Fatalf("expected checked perma box:\n%s", body)
	}
	// replay refreshes the stored preference
	if len(rec.Result().Cookies()) != 1 {
		t.Fatalf("expected replay to refresh the cookie")
	}
}

func TestCommandEndpoint(t *testing.T) {
	memory := state.NewStore(state.NewMemoryBackend())
	srv := newTestServer(t, func(http.ResponseWriter, *http.Request) ssp.PermaStore { return memory })

	req := httptest.NewRequest(http.MethodPost, "/command/disabled", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp commandResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Flags["twitter"] || !resp.Flags["facebook"] {
		t.Fatalf("expected every module disabled, got %v", resp.Flags)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/command/explode", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected unknown command to 404, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/command/enable", strings.NewReader(`{"args":[42]}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected malformed arguments to 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/command/enable", strings.NewReader(`{"args":["myspace"]}`)))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected unmounted network to 404, got %d", rec.Code)
	}
}

func TestMetricsCountActivity(t *testing.T) {
	srv := newTestServer(t, nil)
	srv.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/?enable=twitter", nil))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `socialshare_widget_events_total{network="twitter",trigger="click",verb="enable"} 1`) {
		t.Fatalf("expected enable counter in metrics:\n%s", body)
	}
}

func TestVisitorCookieAttributesActivity(t *testing.T) {
	srv := newTestServer(t, nil)
	capture := &activity.CaptureHook{}
	srv.hooks = append(srv.hooks, capture)

	req := httptest.NewRequest(http.MethodGet, "/?enable=twitter", nil)
	req.AddCookie(&http.Cookie{Name: VisitorCookie, Value: "visitor-9"})
	srv.Handler().ServeHTTP(httptest.NewRecorder(), req)

	var enabled int
	for _, event := range capture.Events {
		if event.Verb == activity.VerbEnable {
			enabled++
			if event.ActorID != "visitor-9" {
				t.Fatalf("expected visitor actor, got %+v", event)
			}
		}
	}
	if enabled != 1 {
		t.Fatalf("expected one enable event, got %v", capture.Verbs())
	}
}

func TestOptionsEndpointReportsOrder(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/options", nil))

	var resp optionsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.Join(resp.Order, ",") != "facebook,twitter" {
		t.Fatalf("unexpected order %v", resp.Order)
	}
	if resp.URI != "https://example.com/post" {
		t.Fatalf("unexpected uri %q", resp.URI)
	}
}

func TestCommandFailureStillDestroysWidget(t *testing.T) {
	srv := newTestServer(t, nil)
	capture := &activity.CaptureHook{}
	srv.hooks = append(srv.hooks, capture)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/command/enable", strings.NewReader(`{"args":["myspace"]}`)))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	verbs := capture.Verbs()
	if len(verbs) == 0 || verbs[len(verbs)-1] != activity.VerbDestroy {
		t.Fatalf("expected the widget torn down after a failed command, got %v", verbs)
	}
}
