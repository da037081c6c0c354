// Package activity reports what a mounted share widget did: mounts,
// teardowns, module activations and perma-option changes. Hooks receive
// the events; sinks such as promsink and usersink turn them into metrics
// or audit records.
package activity

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"
)

// Event is one widget occurrence. Widget specific details (network,
// trigger, state names) travel in Metadata; use the accessors to read them.
type Event struct {
	Verb           string
	ActorID        string
	UserID         string
	TenantID       string
	ObjectType     string
	ObjectID       string
	Channel        string
	DefinitionCode string
	Recipients     []string
	Metadata       map[string]any
	OccurredAt     time.Time
}

// Network is the module the event refers to, empty for widget events.
func (e Event) Network() string { return e.meta("network") }

// Trigger is how a module transition was caused: click, hover or perma.
func (e Event) Trigger() string { return e.meta("trigger") }

// WidgetID identifies the mounted widget that emitted the event.
func (e Event) WidgetID() string { return e.meta("widget_id") }

// Consent reports whether the event records a stored or withdrawn
// perma-option.
func (e Event) Consent() bool {
	return e.Verb == VerbPermaSet || e.Verb == VerbPermaClear
}

func (e Event) meta(key string) string {
	value, _ := e.Metadata[key].(string)
	return value
}

// complete reports whether the event names a verb and an object.
func (e Event) complete() bool {
	return e.Verb != "" && e.ObjectType != "" && e.ObjectID != ""
}

// ActivityHook receives normalized widget events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc adapts a function to ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// Only forwards events whose verb is one of verbs. With no verbs every
// event passes.
func Only(hook ActivityHook, verbs ...string) ActivityHook {
	if hook == nil {
		return nil
	}
	if len(verbs) == 0 {
		return hook
	}
	allowed := slices.Clone(verbs)
	return HookFunc(func(ctx context.Context, event Event) error {
		if !slices.Contains(allowed, event.Verb) {
			return nil
		}
		return hook.Notify(ctx, event)
	})
}

// Hooks fans an event out to every hook it holds.
type Hooks []ActivityHook

// Enabled reports whether there is anything to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify normalizes the event once and hands it to each hook. Incomplete
// events are dropped. Every hook runs; failures are joined.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}
	event = NormalizeEvent(event)
	if !event.complete() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NormalizeEvent returns a trimmed copy that shares no maps or slices with
// event. A zero OccurredAt becomes now.
func NormalizeEvent(event Event) Event {
	for _, field := range []*string{
		&event.Verb, &event.ActorID, &event.UserID, &event.TenantID,
		&event.ObjectType, &event.ObjectID, &event.Channel, &event.DefinitionCode,
	} {
		*field = strings.TrimSpace(*field)
	}
	event.Metadata = cloneMap(event.Metadata)
	if len(event.Recipients) == 0 {
		event.Recipients = nil
	} else {
		event.Recipients = slices.Clone(event.Recipients)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	return event
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
