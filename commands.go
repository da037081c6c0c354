package ssp

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-socialshare/layering"
)

// Command is the closed set of operations accepted by Dispatch.
type Command interface {
	commandName() string
}

// Enable switches Network on, or every module when Network is empty.
type Enable struct{ Network string }

// Disable switches Network off, or every module when Network is empty.
type Disable struct{ Network string }

// Toggle flips Network, or every module when Network is empty.
type Toggle struct{ Network string }

// GetOptions returns the widget configuration.
type GetOptions struct{}

// MergeOptions deep merges Values into the widget configuration.
type MergeOptions struct{ Values Values }

// GetOption reads one top-level or dotted setting.
type GetOption struct{ Name string }

// SetOption writes one setting.
type SetOption struct {
	Name  string
	Value any
}

// QueryEnabled reports live modules. An empty Network returns all of them.
type QueryEnabled struct{ Network string }

// QueryDisabled reports placeholder modules.
type QueryDisabled struct{ Network string }

// DestroyWidget tears the widget down.
type DestroyWidget struct{}

func (Enable) commandName() string        { return "enable" }
func (Disable) commandName() string       { return "disable" }
func (Toggle) commandName() string        { return "toggle" }
func (GetOptions) commandName() string    { return "options" }
func (MergeOptions) commandName() string  { return "options" }
func (GetOption) commandName() string     { return "option" }
func (SetOption) commandName() string     { return "option" }
func (QueryEnabled) commandName() string  { return "enabled" }
func (QueryDisabled) commandName() string { return "disabled" }
func (DestroyWidget) commandName() string { return "destroy" }

// Result carries the outcome of a command. Only the fields relevant to the
// command are set.
type Result struct {
	Options Config
	Value   any
	Flag    bool
	Flags   map[string]bool
}

// Dispatch runs cmd against the widget.
func (w *Widget) Dispatch(ctx context.Context, cmd Command) (Result, error) {
	switch c := cmd.(type) {
	case Enable:
		if c.Network == "" {
			return Result{}, w.ActivateAll(ctx, TriggerCommand)
		}
		return Result{}, w.Activate(ctx, c.Network, TriggerCommand)
	case Disable:
		if c.Network == "" {
			return Result{}, w.DeactivateAll(ctx, TriggerCommand)
		}
		return Result{}, w.Deactivate(ctx, c.Network, TriggerCommand)
	case Toggle:
		if c.Network == "" {
			return Result{}, w.ToggleAll(ctx, TriggerCommand)
		}
		return Result{}, w.Toggle(ctx, c.Network, TriggerCommand)
	case GetOptions:
		cfg, err := w.Options()
		return Result{Options: cfg}, err
	case MergeOptions:
		cfg, err := w.MergeOptions(c.Values)
		return Result{Options: cfg}, err
	case GetOption:
		value, err := w.Option(c.Name)
		return Result{Value: value}, err
	case SetOption:
		cfg, err := w.MergeOptions(nestValue(c.Name, c.Value))
		return Result{Options: cfg}, err
	case QueryEnabled:
		return w.query(c.Network, StateOn)
	case QueryDisabled:
		return w.query(c.Network, StateOff)
	case DestroyWidget:
		return Result{}, w.Destroy(ctx)
	case nil:
		return Result{}, &UnknownCommandError{Command: "<nil>"}
	default:
		return Result{}, &UnknownCommandError{Command: cmd.commandName()}
	}
}

func (w *Widget) query(network string, want State) (Result, error) {
	if network != "" {
		state, err := w.State(network)
		return Result{Flag: state == want}, err
	}
	states, err := w.States()
	if err != nil {
		return Result{}, err
	}
	flags := make(map[string]bool, len(states))
	for name, on := range states {
		flags[name] = on == (want == StateOn)
	}
	return Result{Flags: flags}, nil
}

// Option reads name from the widget configuration. Dotted names descend into
// nested settings, e.g. "services.twitter.status".
func (w *Widget) Option(name string) (any, error) {
	cfg, err := w.Options()
	if err != nil {
		return nil, err
	}
	tree, err := toTree(cfg)
	if err != nil {
		return nil, err
	}
	value, ok := lookupPath(tree, name)
	if !ok {
		return nil, nil
	}
	return value, nil
}

// MergeOptions deep merges values into the widget configuration. Module
// order and states are fixed at mount and are not affected.
func (w *Widget) MergeOptions(values Values) (Config, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.mountedLocked(""); err != nil {
		return Config{}, err
	}
	current, err := toTree(w.cfg)
	if err != nil {
		return Config{}, err
	}
	patch, err := toTree(values)
	if err != nil {
		return Config{}, &ConfigurationError{Reason: "options not serialisable", Err: err}
	}
	merged, err := decodeConfig(w.host, layering.MergeMaps(patch, current))
	if err != nil {
		return Config{}, err
	}
	w.cfg = merged
	return merged.Clone(), nil
}

func nestValue(name string, value any) Values {
	segments := strings.Split(name, ".")
	var nested any = value
	for i := len(segments) - 1; i > 0; i-- {
		nested = map[string]any{segments[i]: nested}
	}
	return Values{segments[0]: nested}
}

// ParseCommand maps the string command surface onto Command values:
//
//	enable [network]      disable [network]     toggle [network]
//	options [values]      option name [value]
//	enabled [network]     disabled [network]    destroy
func ParseCommand(name string, args ...any) (Command, error) {
	switch name {
	case "enable", "disable", "toggle", "enabled", "disabled":
		network, err := optionalString(name, args)
		if err != nil {
			return nil, err
		}
		switch name {
		case "enable":
			return Enable{Network: network}, nil
		case "disable":
			return Disable{Network: network}, nil
		case "toggle":
			return Toggle{Network: network}, nil
		case "enabled":
			return QueryEnabled{Network: network}, nil
		default:
			return QueryDisabled{Network: network}, nil
		}
	case "destroy":
		return DestroyWidget{}, nil
	case "options":
		if len(args) == 0 {
			return GetOptions{}, nil
		}
		values, ok := asMapping(args[0])
		if !ok {
			return nil, fmt.Errorf("ssp: command %q expects a mapping, got %T", name, args[0])
		}
		return MergeOptions{Values: Values(values)}, nil
	case "option":
		option, err := optionalString(name, args)
		if err != nil {
			return nil, err
		}
		if option == "" {
			return nil, fmt.Errorf("ssp: command %q expects an option name", name)
		}
		if len(args) == 1 {
			return GetOption{Name: option}, nil
		}
		return SetOption{Name: option, Value: args[1]}, nil
	default:
		return nil, &UnknownCommandError{Command: name}
	}
}

func optionalString(command string, args []any) (string, error) {
	if len(args) == 0 {
		return "", nil
	}
	value, ok := args[0].(string)
	if !ok {
		return "", fmt.Errorf("ssp: command %q expects a string argument, got %T", command, args[0])
	}
	return value, nil
}
