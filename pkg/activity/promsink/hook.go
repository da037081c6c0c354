// Package promsink counts widget activity in Prometheus.
package promsink

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-socialshare/pkg/activity"
	"github.com/prometheus/client_golang/prometheus"
)

// Hook increments counters for every widget event it receives.
type Hook struct {
	events *prometheus.CounterVec
	perma  *prometheus.CounterVec
}

// New creates the counters and registers them with registerer. A nil
// registerer leaves the counters unregistered, which is useful in tests.
func New(registerer prometheus.Registerer) (*Hook, error) {
	h := &Hook{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socialshare",
			Subsystem: "widget",
			Name:      "events_total",
			Help:      "Widget lifecycle and activation events",
		}, []string{"verb", "network", "trigger"}),
		perma: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socialshare",
			Subsystem: "perma",
			Name:      "changes_total",
			Help:      "Perma-option preferences stored or cleared",
		}, []string{"network", "action"}),
	}
	if registerer == nil {
		return h, nil
	}
	var err error
	if h.events, err = register(registerer, h.events); err != nil {
		return nil, err
	}
	if h.perma, err = register(registerer, h.perma); err != nil {
		return nil, err
	}
	return h, nil
}

// register reuses an identical collector that is already registered.
func register(registerer prometheus.Registerer, counter *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	err := registerer.Register(counter)
	if err == nil {
		return counter, nil
	}
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing, nil
		}
	}
	return nil, fmt.Errorf("promsink: register: %w", err)
}

// Notify counts the event.
func (h *Hook) Notify(_ context.Context, event activity.Event) error {
	if h == nil {
		return nil
	}
	normalized := activity.NormalizeEvent(event)
	if normalized.Verb == "" {
		return nil
	}
	network := normalized.Network()
	h.events.WithLabelValues(normalized.Verb, network, normalized.Trigger()).Inc()

	if normalized.Consent() {
		action := "set"
		if normalized.Verb == activity.VerbPermaClear {
			action = "clear"
		}
		h.perma.WithLabelValues(network, action).Inc()
	}
	return nil
}

// Events exposes the event counter.
func (h *Hook) Events() *prometheus.CounterVec {
	return h.events
}

// Perma exposes the perma-option counter.
func (h *Hook) Perma() *prometheus.CounterVec {
	return h.perma
}
