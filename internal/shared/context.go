package shared

import "context"

// Actor identifies the clinic and user on whose behalf a request runs.
// The clinic id is an opaque partition key; authorization happens upstream.
type Actor struct {
	ClinicID string
	UserID   string
}

type actorContextKey struct{}

// ContextWithActor stores the acting identity in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the acting identity from context.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorContextKey{}).(Actor)
	return actor
}
