package shared

import "context"

// Actor identifies the authenticated user on whose behalf a request runs.
// Identity is resolved by the external gateway and forwarded in headers; the
// middleware stack places it in the request context.
type Actor struct {
	ID   int64
	Name string
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context. The zero Actor is
// returned for anonymous requests.
func ActorFromContext(ctx context.Context) Actor {
	actor, _ := ctx.Value(actorContextKey{}).(Actor)
	return actor
}
