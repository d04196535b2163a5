package shared

import "context"

type orgContextKey struct{}

type actorContextKey struct{}

// ContextWithOrg stores the organisation id in context.
func ContextWithOrg(ctx context.Context, orgID int64) context.Context {
	return context.WithValue(ctx, orgContextKey{}, orgID)
}

// OrgFromContext extracts the organisation id from context.
func OrgFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(orgContextKey{}).(int64)
	return id
}

// ContextWithActor stores the acting user in context.
func ContextWithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the acting user, "system" when absent.
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorContextKey{}).(string)
	if actor == "" {
		return "system"
	}
	return actor
}
