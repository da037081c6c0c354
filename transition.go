package ssp

import (
	"context"
	"errors"

	"github.com/goliatone/go-socialshare/pkg/activity"
)

// Trigger names what caused a transition.
type Trigger string

const (
	TriggerClick    Trigger = "click"
	TriggerPerma    Trigger = "perma"
	TriggerSettings Trigger = "settings"
	TriggerCommand  Trigger = "command"
)

// ChangeKind classifies a StateChange.
type ChangeKind int

const (
	// ChangeState is a module switching between Off and On.
	ChangeState ChangeKind = iota
	// ChangePerma is the settings checkbox of a module changing.
	ChangePerma
	// ChangeReveal is a hover region showing or hiding its overlay.
	ChangeReveal
)

// StateChange is delivered to subscribers after the widget lock is released.
type StateChange struct {
	Widget  string
	Network string
	Kind    ChangeKind
	From    State
	To      State
	Trigger Trigger
	// PermaChecked is set for ChangePerma.
	PermaChecked bool
	// Region and Visible are set for ChangeReveal.
	Region  string
	Visible bool
}

// Activate switches network on. The embed markup is built before the state
// changes; when it cannot be built the error is returned and the module stays
// Off. Activation never stores a perma-option.
func (w *Widget) Activate(ctx context.Context, network string, trigger Trigger) error {
	return w.apply(ctx, network, func(name string, inst *instance) (*StateChange, error) {
		return w.switchOn(name, inst, trigger)
	})
}

// Deactivate switches network off.
func (w *Widget) Deactivate(ctx context.Context, network string, trigger Trigger) error {
	return w.apply(ctx, network, func(name string, inst *instance) (*StateChange, error) {
		return w.switchOff(name, inst, trigger), nil
	})
}

// Toggle flips network.
func (w *Widget) Toggle(ctx context.Context, network string, trigger Trigger) error {
	return w.apply(ctx, network, func(name string, inst *instance) (*StateChange, error) {
		if inst.state == StateOn {
			return w.switchOff(name, inst, trigger), nil
		}
		return w.switchOn(name, inst, trigger)
	})
}

// ActivateAll switches on every mounted module in order. Failures are joined;
// the other modules still switch.
func (w *Widget) ActivateAll(ctx context.Context, trigger Trigger) error {
	return w.applyAll(ctx, func(name string, inst *instance) (*StateChange, error) {
		return w.switchOn(name, inst, trigger)
	})
}

// DeactivateAll switches off every mounted module.
func (w *Widget) DeactivateAll(ctx context.Context, trigger Trigger) error {
	return w.applyAll(ctx, func(name string, inst *instance) (*StateChange, error) {
		return w.switchOff(name, inst, trigger), nil
	})
}

// ToggleAll flips every mounted module.
func (w *Widget) ToggleAll(ctx context.Context, trigger Trigger) error {
	return w.applyAll(ctx, func(name string, inst *instance) (*StateChange, error) {
		if inst.state == StateOn {
			return w.switchOff(name, inst, trigger), nil
		}
		return w.switchOn(name, inst, trigger)
	})
}

type transitionFunc func(name string, inst *instance) (*StateChange, error)

func (w *Widget) apply(ctx context.Context, network string, fn transitionFunc) error {
	w.mu.Lock()
	inst, err := w.instanceLocked(network)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	change, err := fn(network, inst)
	w.mu.Unlock()
	if err != nil {
		return err
	}
	w.announce(ctx, change)
	return nil
}

func (w *Widget) applyAll(ctx context.Context, fn transitionFunc) error {
	w.mu.Lock()
	if err := w.mountedLocked(""); err != nil {
		w.mu.Unlock()
		return err
	}
	var (
		changes []*StateChange
		errs    []error
	)
	for _, name := range w.order {
		change, err := fn(name, w.modules[name])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		changes = append(changes, change)
	}
	w.mu.Unlock()

	w.announce(ctx, changes...)
	return errors.Join(errs...)
}

// switchOn must run with the widget lock held or before the widget is
// published.
func (w *Widget) switchOn(name string, inst *instance, trigger Trigger) (*StateChange, error) {
	if inst.module.Safe() || inst.state == StateOn {
		return nil, nil
	}
	markup, err := inst.module.EmbedMarkup(w.uri, w.host.Page)
	if err != nil {
		return nil, err
	}
	inst.markup = markup
	inst.state = StateOn
	return &StateChange{Widget: w.id, Network: name, Kind: ChangeState, From: StateOff, To: StateOn, Trigger: trigger}, nil
}

func (w *Widget) switchOff(name string, inst *instance, trigger Trigger) *StateChange {
	if inst.module.Safe() || inst.state == StateOff {
		return nil
	}
	inst.markup = ""
	inst.state = StateOff
	return &StateChange{Widget: w.id, Network: name, Kind: ChangeState, From: StateOn, To: StateOff, Trigger: trigger}
}

// SetPermaOption is the settings menu checkbox. Checking stores the
// preference and switches the module on; unchecking only removes the stored
// preference and leaves the current state alone.
func (w *Widget) SetPermaOption(ctx context.Context, network string, checked bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	w.mu.Lock()
	inst, err := w.instanceLocked(network)
	if err != nil {
		w.mu.Unlock()
		return err
	}
	if !w.cfg.PermaOption || !inst.module.PermaEligible() {
		w.mu.Unlock()
		return permaIneligible(network)
	}
	if !w.perma.available() {
		w.mu.Unlock()
		return errNoPermaStore
	}

	var changes []*StateChange
	policy := w.cfg.CookiePolicy()
	if checked {
		markup := inst.markup
		if inst.state == StateOff {
			if markup, err = inst.module.EmbedMarkup(w.uri, w.host.Page); err != nil {
				w.mu.Unlock()
				return err
			}
		}
		if err := w.perma.store(ctx, network, policy); err != nil {
			w.mu.Unlock()
			return err
		}
		if inst.state == StateOff {
			inst.markup = markup
			inst.state = StateOn
			changes = append(changes, &StateChange{Widget: w.id, Network: network, Kind: ChangeState, From: StateOff, To: StateOn, Trigger: TriggerSettings})
		}
	} else if err := w.perma.clear(ctx, network, policy); err != nil {
		w.mu.Unlock()
		return err
	}
	if inst.permaChecked != checked {
		inst.permaChecked = checked
		changes = append(changes, &StateChange{Widget: w.id, Network: network, Kind: ChangePerma, From: inst.state, To: inst.state, Trigger: TriggerSettings, PermaChecked: checked})
	}
	w.mu.Unlock()

	w.announce(ctx, changes...)
	return nil
}

// PermaOption reports the stored preference of network as the store sees it
// now.
func (w *Widget) PermaOption(ctx context.Context, network string) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.instanceLocked(network); err != nil {
		return false, err
	}
	if !w.perma.available() {
		return false, errNoPermaStore
	}
	return w.perma.read(ctx, network)
}

// announce publishes changes to subscribers and activity hooks.
func (w *Widget) announce(ctx context.Context, changes ...*StateChange) {
	if ctx == nil {
		ctx = context.Background()
	}
	delivered := make([]StateChange, 0, len(changes))
	for _, change := range changes {
		if change == nil {
			continue
		}
		delivered = append(delivered, *change)
		if event, ok := w.activityEvent(*change); ok {
			w.emit(ctx, event)
		}
	}
	w.publish(delivered)
}

func (w *Widget) activityEvent(change StateChange) (activity.Event, bool) {
	input := activity.WidgetEventInput{
		WidgetID: w.id,
		HostID:   w.host.ID,
		Network:  change.Network,
		Trigger:  string(change.Trigger),
		OldState: change.From.String(),
		NewState: change.To.String(),
	}
	switch change.Kind {
	case ChangeState:
		if change.To == StateOn {
			return activity.BuildEnableEvent(input), true
		}
		return activity.BuildDisableEvent(input), true
	case ChangePerma:
		if change.PermaChecked {
			return activity.BuildPermaSetEvent(input), true
		}
		return activity.BuildPermaClearEvent(input), true
	default:
		return activity.Event{}, false
	}
}
