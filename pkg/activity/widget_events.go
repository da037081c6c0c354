package activity

import (
	"strings"
	"time"
)

// Verbs emitted by mounted widgets.
const (
	VerbCreate     = "create"
	VerbDestroy    = "destroy"
	VerbEnable     = "enable"
	VerbDisable    = "disable"
	VerbPermaSet   = "perma.set"
	VerbPermaClear = "perma.clear"
)

// Object types carried by widget events.
const (
	ObjectWidget = "socialshare.widget"
	ObjectModule = "socialshare.module"
)

// WidgetEventInput describes the common fields of widget lifecycle events.
type WidgetEventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	Channel    string
	Recipients []string
	Metadata   map[string]any
	WidgetID   string
	HostID     string
	// Network is empty for widget level events.
	Network    string
	Trigger    string
	OldState   string
	NewState   string
	OccurredAt time.Time
}

// BuildCreateEvent reports a completed mount.
func BuildCreateEvent(input WidgetEventInput) Event {
	return buildWidgetEvent(VerbCreate, ObjectWidget, input)
}

// BuildDestroyEvent reports a widget about to be torn down.
func BuildDestroyEvent(input WidgetEventInput) Event {
	return buildWidgetEvent(VerbDestroy, ObjectWidget, input)
}

// BuildEnableEvent reports a module switched on.
func BuildEnableEvent(input WidgetEventInput) Event {
	return buildWidgetEvent(VerbEnable, ObjectModule, input)
}

// BuildDisableEvent reports a module switched off.
func BuildDisableEvent(input WidgetEventInput) Event {
	return buildWidgetEvent(VerbDisable, ObjectModule, input)
}

// BuildPermaSetEvent reports a stored perma-option.
func BuildPermaSetEvent(input WidgetEventInput) Event {
	return buildWidgetEvent(VerbPermaSet, ObjectModule, input)
}

// BuildPermaClearEvent reports a removed perma-option.
func BuildPermaClearEvent(input WidgetEventInput) Event {
	return buildWidgetEvent(VerbPermaClear, ObjectModule, input)
}

func buildWidgetEvent(verb, objectType string, input WidgetEventInput) Event {
	metadata := cloneMap(input.Metadata)
	set := func(key string, value string) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata[key] = value
	}
	set("widget_id", input.WidgetID)
	set("host_id", input.HostID)
	set("network", input.Network)
	set("trigger", input.Trigger)
	set("old_state", input.OldState)
	set("new_state", input.NewState)

	var recipients []string
	if len(input.Recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	objectID := strings.TrimSpace(input.WidgetID)
	if network := strings.TrimSpace(input.Network); network != "" && objectType == ObjectModule {
		if objectID == "" {
			objectID = network
		} else {
			objectID = objectID + "/" + network
		}
	}
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Recipients: recipients,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}
