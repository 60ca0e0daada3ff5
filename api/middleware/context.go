package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/repairdesk-backend/internal/tenancy"
)

type contextKey string

const (
	ctxUserID        contextKey = "user_id"
	ctxTokenBranchID contextKey = "token_branch_id"
	ctxScope         contextKey = "branch_scope"
)

// UserIDFromContext returns the authenticated principal, or uuid.Nil.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxUserID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

func tokenBranchFromContext(ctx context.Context) *uuid.UUID {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxTokenBranchID).(uuid.UUID); ok {
		return &v
	}
	return nil
}

// ScopeFromContext returns the branch scope resolved by BranchScope.
func ScopeFromContext(ctx context.Context) (tenancy.Scope, bool) {
	if ctx == nil {
		return tenancy.Scope{}, false
	}
	scope, ok := ctx.Value(ctxScope).(tenancy.Scope)
	return scope, ok
}

// WithUserID injects the principal into the context.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithScope injects a resolved branch scope for downstream handlers.
func WithScope(ctx context.Context, scope tenancy.Scope) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxScope, scope)
}
