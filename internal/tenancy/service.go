package tenancy

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/repairdesk-backend/pkg/db"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
	"github.com/angelmondragon/repairdesk-backend/pkg/logger"
	"github.com/angelmondragon/repairdesk-backend/pkg/redis"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// scopeCache is the slice of the redis client used to memoise resolved scopes.
type scopeCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	ScopeKey(userID string, branchID string) string
}

// Service resolves the caller's branch scope and manages tenant/branch lifecycle.
type Service interface {
	Resolve(ctx context.Context, principal uuid.UUID, requestedBranchID *uuid.UUID) (*Scope, error)
	Forget(ctx context.Context, userID uuid.UUID, branchID *uuid.UUID) error
	DisableTenant(ctx context.Context, scope Scope, tenantID uuid.UUID) error
	DeleteBranch(ctx context.Context, scope Scope, branchID uuid.UUID) error
}

type service struct {
	repo  Repository
	tx    txRunner
	cache scopeCache
	ttl   time.Duration
	logg  *logger.Logger
	now   func() time.Time
}

// NewService wires the resolver. cache may be nil, which disables scope caching.
func NewService(repo Repository, tx txRunner, cache scopeCache, ttl time.Duration, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("tenancy repository required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		repo:  repo,
		tx:    tx,
		cache: cache,
		ttl:   ttl,
		logg:  logg,
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Resolve(ctx context.Context, principal uuid.UUID, requestedBranchID *uuid.UUID) (*Scope, error) {
	if principal == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	if cached := s.cached(ctx, principal, requestedBranchID); cached != nil {
		return cached, nil
	}

	rows, err := s.repo.ListMemberships(ctx, principal)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load staff memberships")
	}

	scope, err := pick(rows, requestedBranchID)
	if err != nil {
		return nil, err
	}

	s.store(ctx, principal, requestedBranchID, scope)
	return scope, nil
}

func pick(rows []membershipRow, requestedBranchID *uuid.UUID) (*Scope, error) {
	if requestedBranchID != nil && *requestedBranchID != uuid.Nil {
		for _, row := range rows {
			if row.BranchID != *requestedBranchID {
				continue
			}
			if !row.usable() {
				return nil, pkgerrors.New(pkgerrors.CodeForbidden, "branch access disabled")
			}
			scope := row.scope()
			return &scope, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "no membership for requested branch")
	}

	usable := make([]membershipRow, 0, len(rows))
	for _, row := range rows {
		if row.usable() {
			usable = append(usable, row)
		}
	}
	switch len(usable) {
	case 0:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "no active branch membership")
	case 1:
		scope := usable[0].scope()
		return &scope, nil
	default:
		branches := make([]string, 0, len(usable))
		for _, row := range usable {
			branches = append(branches, row.BranchID.String())
		}
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "branch selection required").
			WithDetails(map[string]any{"branch_ids": branches})
	}
}

func (s *service) cacheKey(userID uuid.UUID, branchID *uuid.UUID) string {
	branch := ""
	if branchID != nil && *branchID != uuid.Nil {
		branch = branchID.String()
	}
	return s.cache.ScopeKey(userID.String(), branch)
}

func (s *service) cached(ctx context.Context, userID uuid.UUID, branchID *uuid.UUID) *Scope {
	if s.cache == nil || s.ttl <= 0 {
		return nil
	}
	raw, err := s.cache.Get(ctx, s.cacheKey(userID, branchID))
	if err != nil {
		if !redis.IsMiss(err) {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "scope cache read failed")
		}
		return nil
	}
	var scope Scope
	if err := json.Unmarshal([]byte(raw), &scope); err != nil || scope.BranchID == uuid.Nil {
		return nil
	}
	return &scope
}

func (s *service) store(ctx context.Context, userID uuid.UUID, branchID *uuid.UUID, scope *Scope) {
	if s.cache == nil || s.ttl <= 0 {
		return
	}
	payload, err := json.Marshal(scope)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(userID, branchID), string(payload), s.ttl); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "scope cache write failed")
	}
}

// Forget drops cached scopes for the user, for both the explicit branch and
// the single-membership default.
func (s *service) Forget(ctx context.Context, userID uuid.UUID, branchID *uuid.UUID) error {
	if s.cache == nil {
		return nil
	}
	keys := []string{s.cacheKey(userID, nil)}
	if branchID != nil && *branchID != uuid.Nil {
		keys = append(keys, s.cacheKey(userID, branchID))
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear scope cache")
	}
	return nil
}

func (s *service) DisableTenant(ctx context.Context, scope Scope, tenantID uuid.UUID) error {
	if tenantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if scope.TenantID != tenantID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
	}
	if scope.Role != enums.StaffRoleOwner {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only owners can disable a tenant")
	}

	var members []memberRef
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		tenant, err := repo.FindTenant(ctx, tenantID)
		if err != nil {
			return db.Classify(err, "load tenant")
		}
		if !tenant.IsDisabled() {
			if _, err := repo.DisableTenant(ctx, tenantID, s.now()); err != nil {
				return db.Classify(err, "disable tenant")
			}
			s.logg.Info(s.logg.WithField(ctx, "tenant_id", tenantID.String()), "tenant.disabled")
		}
		members, err = repo.ListTenantMembers(ctx, tenantID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tenant members")
		}
		return nil
	})
	if err != nil {
		return err
	}
	// Repeating the call clears the cache again when a previous attempt failed here.
	return s.forgetMembers(ctx, members)
}

func (s *service) DeleteBranch(ctx context.Context, scope Scope, branchID uuid.UUID) error {
	if branchID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "branch id required")
	}
	if !scope.Role.CanAdminister() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	var members []memberRef
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		branch, err := repo.FindBranch(ctx, branchID)
		if err != nil {
			return db.Classify(err, "load branch")
		}
		if branch.TenantID != scope.TenantID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "branch not found")
		}

		orders, err := repo.CountBranchOrders(ctx, branchID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count branch orders")
		}
		if orders > 0 {
			return pkgerrors.New(pkgerrors.CodeBlocked, "branch still has service orders").
				WithDetails(map[string]any{"orders": orders})
		}

		members, err = repo.ListBranchMembers(ctx, branchID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list branch members")
		}
		if err := repo.DeleteBranch(ctx, branchID); err != nil {
			return db.Classify(err, "delete branch")
		}
		return nil
	})
	if err != nil {
		return err
	}

	ctx = s.logg.WithFields(ctx, map[string]any{"branch_id": branchID.String(), "tenant_id": scope.TenantID.String()})
	s.logg.Info(ctx, "branch.deleted")
	return s.forgetMembers(ctx, members)
}

// forgetMembers drops every cached scope the memberships could have produced.
func (s *service) forgetMembers(ctx context.Context, members []memberRef) error {
	if s.cache == nil || len(members) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(members)*2)
	keys := make([]string, 0, len(members)*2)
	for _, m := range members {
		branchID := m.BranchID
		for _, key := range []string{s.cacheKey(m.UserID, nil), s.cacheKey(m.UserID, &branchID)} {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.logg.Error(ctx, "scope cache invalidation failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear scope cache")
	}
	return nil
}
