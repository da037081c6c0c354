// Package usersink records widget activity in a go-users activity log, so
// perma-option consent can be audited next to the rest of a site's user
// activity.
package usersink

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/goliatone/go-socialshare/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook writes events to a go-users ActivitySink. With Verbs set only those
// verbs are recorded.
type Hook struct {
	Sink  usertypes.ActivitySink
	Verbs []string
}

// ConsentHook records only perma-option changes: the moments a visitor
// stored or withdrew permission to load a network without a click.
func ConsentHook(sink usertypes.ActivitySink) Hook {
	return Hook{Sink: sink, Verbs: []string{activity.VerbPermaSet, activity.VerbPermaClear}}
}

func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	event = activity.NormalizeEvent(event)
	if event.Verb == "" || event.ObjectType == "" || event.ObjectID == "" {
		return nil
	}
	if len(h.Verbs) > 0 && !slices.Contains(h.Verbs, event.Verb) {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, toRecord(event))
}

func toRecord(event activity.Event) usertypes.ActivityRecord {
	data := map[string]any{}
	for key, value := range event.Metadata {
		data[key] = value
	}
	if event.DefinitionCode != "" {
		data["definition_code"] = event.DefinitionCode
	}
	if len(event.Recipients) > 0 {
		data["recipients"] = slices.Clone(event.Recipients)
	}
	// visitor ids are often cookie values rather than UUIDs
	if _, err := uuid.Parse(event.ActorID); event.ActorID != "" && err != nil {
		data["actor"] = event.ActorID
	}
	if len(data) == 0 {
		data = nil
	}

	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	return usertypes.ActivityRecord{
		ActorID:    parseUUID(event.ActorID),
		UserID:     parseUUID(event.UserID),
		TenantID:   parseUUID(event.TenantID),
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    event.Channel,
		Data:       data,
		OccurredAt: occurred,
	}
}

func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}
