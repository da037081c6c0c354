package ssp

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every *ConfigurationError.
	ErrConfiguration = errors.New("ssp: invalid configuration")
	// ErrNothingToRender signals that no module is enabled. Callers skip
	// mounting instead of treating it as a failure.
	ErrNothingToRender = errors.New("ssp: no enabled services")
	// ErrMissingEmbedSource matches every *MissingEmbedSourceError.
	ErrMissingEmbedSource = errors.New("ssp: missing embed source")
	// ErrUnknownCommand matches every *UnknownCommandError.
	ErrUnknownCommand = errors.New("ssp: unknown command")
	// ErrUnmounted matches every *UnmountedAccessError.
	ErrUnmounted = errors.New("ssp: unmounted access")
)

// ConfigurationError reports malformed settings found while resolving.
type ConfigurationError struct {
	Field  string
	Reason string
	// Skip is set when the configuration is well formed but has nothing to
	// render.
	Skip bool
	Err  error
}

func (e *ConfigurationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := "ssp: configuration"
	if e.Field != "" {
		msg += " field=" + e.Field
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *ConfigurationError) Is(target error) bool {
	if target == ErrConfiguration {
		return true
	}
	return e != nil && e.Skip && target == ErrNothingToRender
}

// MissingEmbedSourceError is returned when a module cannot produce its live
// content. The module state is left untouched.
type MissingEmbedSourceError struct {
	Network string
	Reason  string
}

func (e *MissingEmbedSourceError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Reason == "" {
		return fmt.Sprintf("ssp: network %q has no embed source", e.Network)
	}
	return fmt.Sprintf("ssp: network %q has no embed source: %s", e.Network, e.Reason)
}

func (e *MissingEmbedSourceError) Is(target error) bool {
	return target == ErrMissingEmbedSource
}

// UnknownCommandError is returned for command names outside the command set.
type UnknownCommandError struct {
	Command string
}

func (e *UnknownCommandError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("ssp: unknown command %q", e.Command)
}

func (e *UnknownCommandError) Is(target error) bool {
	return target == ErrUnknownCommand
}

// UnmountedAccessError is returned when an operation addresses a widget or
// module that was never mounted or has been destroyed.
type UnmountedAccessError struct {
	Widget  string
	Network string
}

func (e *UnmountedAccessError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Network == "" {
		return fmt.Sprintf("ssp: widget %q is not mounted", e.Widget)
	}
	return fmt.Sprintf("ssp: network %q is not mounted on widget %q", e.Network, e.Widget)
}

func (e *UnmountedAccessError) Is(target error) bool {
	return target == ErrUnmounted
}

func nothingToRender() error {
	return &ConfigurationError{Field: "services", Reason: "no service is enabled", Skip: true, Err: ErrNothingToRender}
}
