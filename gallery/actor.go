package gallery

import "context"

// Actor is the verified caller. It is only ever built by the auth layer.
type Actor struct {
	UserID     string
	ExternalID string
}

type actorKey struct{}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFrom(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok && actor.UserID != ""
}

func requireActor(ctx context.Context) (Actor, error) {
	actor, ok := ActorFrom(ctx)
	if !ok {
		return Actor{}, ErrUnauthorized
	}
	return actor, nil
}

// viewerID returns the caller's user id, or "" for anonymous reads
func viewerID(ctx context.Context) string {
	actor, _ := ActorFrom(ctx)
	return actor.UserID
}
