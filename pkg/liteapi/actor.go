package liteapi

import "context"

// Actor identifies who triggered an upstream call. It is recorded on every audit entry.
type Actor struct {
	Name      string
	IPAddress string
	UserAgent string
	Device    string
}

// SystemActor is used when no actor was attached to the context.
var SystemActor = Actor{Name: "system"}

type actorKey struct{}

// WithActor returns a copy of ctx carrying the actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor attached to ctx, or SystemActor.
func ActorFromContext(ctx context.Context) Actor {
	if ctx == nil {
		return SystemActor
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok {
		return SystemActor
	}
	if actor.Name == "" {
		actor.Name = "public"
	}
	return actor
}
