package activity

import (
	"context"
	"strings"
)

// DefaultChannel is stamped on events that do not name a channel.
const DefaultChannel = "socialshare"

// Config tunes an Emitter.
type Config struct {
	Enabled bool
	Channel string
}

// Emitter is the widget's side of the hook chain. It fills in the
// channel, the definition code and the visitor before fanning out.
type Emitter struct {
	hooks   Hooks
	channel string
}

// NewEmitter keeps the non-nil hooks. A disabled config, or no hooks at
// all, yields an emitter that drops everything.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	e := &Emitter{channel: strings.TrimSpace(cfg.Channel)}
	if e.channel == "" {
		e.channel = DefaultChannel
	}
	if !cfg.Enabled {
		return e
	}
	for _, hook := range hooks {
		if hook != nil {
			e.hooks = append(e.hooks, hook)
		}
	}
	return e
}

// Enabled reports whether Emit would reach any hook.
func (e *Emitter) Enabled() bool {
	return e != nil && len(e.hooks) > 0
}

// Emit completes event and notifies the hooks.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	if strings.TrimSpace(event.DefinitionCode) == "" && strings.TrimSpace(event.Verb) != "" {
		event.DefinitionCode = event.Channel + ":" + strings.TrimSpace(event.Verb)
	}
	if strings.TrimSpace(event.ActorID) == "" {
		event.ActorID = ActorFrom(ctx)
	}
	return e.hooks.Notify(ctx, event)
}
