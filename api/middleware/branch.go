package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/repairdesk-backend/api/responses"
	"github.com/angelmondragon/repairdesk-backend/internal/tenancy"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
)

const branchHeader = "X-Branch-Id"

type scopeResolver interface {
	Resolve(ctx context.Context, principal uuid.UUID, requestedBranchID *uuid.UUID) (*tenancy.Scope, error)
}

// BranchScope resolves the tenant and branch the request operates on. The
// X-Branch-Id header wins over the branch carried in the token.
func BranchScope(resolver scopeResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if resolver == nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "branch resolver unavailable"))
				return
			}

			requested := tokenBranchFromContext(ctx)
			if raw := strings.TrimSpace(r.Header.Get(branchHeader)); raw != "" {
				branchID, err := uuid.Parse(raw)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid branch id").
						WithDetails(map[string]any{"header": branchHeader}))
					return
				}
				requested = &branchID
			}

			scope, err := resolver.Resolve(ctx, UserIDFromContext(ctx), requested)
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			ctx = WithScope(ctx, *scope)
			if logg != nil {
				ctx = logg.WithScope(ctx, scope.TenantID.String(), scope.BranchID.String(), string(scope.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
