package activity

import (
	"context"
	"strings"
)

type actorKey struct{}

// WithActor attaches the visitor id that events emitted under ctx are
// attributed to.
func WithActor(ctx context.Context, actorID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	actorID = strings.TrimSpace(actorID)
	if actorID == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey{}, actorID)
}

// ActorFrom returns the visitor id stored by WithActor.
func ActorFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	actorID, _ := ctx.Value(actorKey{}).(string)
	return actorID
}
