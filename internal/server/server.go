// Package server is the demo HTTP surface of the ssp tool. Every request
// mounts a fresh widget; perma-options travel in cookies or a SQLite file.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	ssp "github.com/goliatone/go-socialshare"
	"github.com/goliatone/go-socialshare/internal/config"
	"github.com/goliatone/go-socialshare/network"
	"github.com/goliatone/go-socialshare/pkg/activity"
	"github.com/goliatone/go-socialshare/pkg/activity/promsink"
	"github.com/goliatone/go-socialshare/render"
)

// StoreFactory returns the perma store for one request.
type StoreFactory func(w http.ResponseWriter, r *http.Request) ssp.PermaStore

// Server serves the demo page and the widget command surface.
type Server struct {
	cfg      *config.Config
	stores   StoreFactory
	logger   *slog.Logger
	registry *prometheus.Registry
	hooks    activity.Hooks
	router   chi.Router
}

// New wires the router. A nil logger discards output.
func New(cfg *config.Config, stores StoreFactory, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("server: config is required")
	}
	if stores == nil {
		return nil, fmt.Errorf("server: store factory is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	registry := prometheus.NewRegistry()
	sink, err := promsink.New(registry)
	if err != nil {
		return nil, fmt.Errorf("server: metrics: %w", err)
	}
	s := &Server{
		cfg:      cfg,
		stores:   stores,
		logger:   logger,
		registry: registry,
		hooks:    activity.Hooks{sink},
	}
	s.router = s.buildRouter()
	return s, nil
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("ssp demo server listening", "addr", srv.Addr, "store", s.cfg.Server.Store)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.Server.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))
	r.Use(visitor)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Get("/", s.handlePage)
	r.Get("/options", s.handleOptions)
	r.Post("/perma/{network}", s.handlePerma)
	r.Post("/command/{name}", s.handleCommand)

	return r
}

// VisitorCookie names the cookie whose value attributes widget activity to
// a visitor. The server reads it but never sets it.
const VisitorCookie = "ssp_visitor"

func visitor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(VisitorCookie); err == nil && c.Value != "" {
			r = r.WithContext(activity.WithActor(r.Context(), c.Value))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) mount(w http.ResponseWriter, r *http.Request) (*ssp.Widget, error) {
	opts := []ssp.Option{
		ssp.WithDefaults(network.Defaults()),
		ssp.WithLogger(s.logger),
		ssp.WithActivityHooks(s.hooks),
		ssp.WithPermaStore(s.stores(w, r)),
	}
	if id := middleware.GetReqID(r.Context()); id != "" {
		opts = append(opts, ssp.WithWidgetID(id))
	}
	return ssp.Mount(r.Context(), s.cfg.NewHost(), s.cfg.CallerValues(), opts...)
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head><meta charset="utf-8"><title>{{.Title}}</title><link rel="stylesheet" href="{{.CSS}}"></head>
<body>
<div class="social-share-privacy-container">{{.Widget}}</div>
</body>
</html>
`))

type pageData struct {
	Lang   string
	Title  string
	CSS    string
	Widget template.HTML
}

// handlePage renders the widget. ?enable=twitter,facebook simulates clicks.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	widget, err := s.mount(w, r)
	if err != nil {
		s.fail(w, err)
		return
	}
	defer widget.Destroy(r.Context())

	for _, name := range splitList(r.URL.Query().Get("enable")) {
		if err := widget.Activate(r.Context(), name, ssp.TriggerClick); err != nil {
			s.fail(w, err)
			return
		}
	}

	view, err := widget.Snapshot()
	if err != nil {
		s.fail(w, err)
		return
	}
	html, err := render.Widget(view)
	if err != nil {
		s.fail(w, err)
		return
	}
	cfg, _ := widget.Options()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, pageData{
		Lang:   cfg.Language,
		Title:  s.cfg.Host.Page.Title,
		CSS:    cfg.CSSPath,
		Widget: html,
	}); err != nil {
		s.logger.Error("ssp page render failed", "error", err)
	}
}

type optionsResponse struct {
	Config ssp.Config `json:"config"`
	Order  []string   `json:"order"`
	URI    string     `json:"uri"`
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	res, err := ssp.Resolve(network.Defaults(), s.cfg.CallerValues(), s.cfg.NewHost())
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, optionsResponse{Config: res.Config, Order: res.Order, URI: res.URI})
}

// handlePerma is the settings checkbox: checked=true stores the preference.
func (s *Server) handlePerma(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	widget, err := s.mount(w, r)
	if err != nil {
		s.fail(w, err)
		return
	}
	defer widget.Destroy(r.Context())

	checked := strings.EqualFold(strings.TrimSpace(r.PostFormValue("checked")), "true")
	if err := widget.SetPermaOption(r.Context(), chi.URLParam(r, "network"), checked); err != nil {
		s.fail(w, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type commandRequest struct {
	Args []any `json:"args"`
}

type commandResponse struct {
	Options *ssp.Config     `json:"options,omitempty"`
	Value   any             `json:"value,omitempty"`
	Flag    bool            `json:"flag"`
	Flags   map[string]bool `json:"flags,omitempty"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}
	cmd, err := ssp.ParseCommand(chi.URLParam(r, "name"), req.Args...)
	if err != nil {
		if !errors.Is(err, ssp.ErrUnknownCommand) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.fail(w, err)
		return
	}
	widget, err := s.mount(w, r)
	if err != nil {
		s.fail(w, err)
		return
	}
	if _, destroying := cmd.(ssp.DestroyWidget); !destroying {
		defer widget.Destroy(r.Context())
	}
	result, err := widget.Dispatch(r.Context(), cmd)
	if err != nil {
		s.fail(w, err)
		return
	}

	resp := commandResponse{Value: result.Value, Flag: result.Flag, Flags: result.Flags}
	switch cmd.(type) {
	case ssp.GetOptions, ssp.MergeOptions, ssp.SetOption:
		resp.Options = &result.Options
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ssp.ErrNothingToRender):
		status = http.StatusNoContent
	case errors.Is(err, ssp.ErrUnknownCommand), errors.Is(err, ssp.ErrUnmounted):
		status = http.StatusNotFound
	case errors.Is(err, ssp.ErrConfiguration), errors.Is(err, ssp.ErrMissingEmbedSource):
		status = http.StatusUnprocessableEntity
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("ssp request failed", "error", err)
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
