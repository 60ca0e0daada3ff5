package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/repairdesk-backend/internal/tenancy"
	"github.com/angelmondragon/repairdesk-backend/pkg/auth"
	"github.com/angelmondragon/repairdesk-backend/pkg/config"
	"github.com/angelmondragon/repairdesk-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/repairdesk-backend/pkg/errors"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "repairdesk-test", ExpirationMinutes: 60}

func mintTestToken(t *testing.T, userID uuid.UUID, branchID *uuid.UUID) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{UserID: userID, ActiveBranchID: branchID})
	require.NoError(t, err)
	return token
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(okHandler()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(okHandler()).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestBearerToken(t *testing.T) {
	token, ok := bearerToken("  bearer abc.def ")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", token)

	for _, header := range []string{"", "abc.def", "Basic abc", "Bearer   "} {
		_, ok := bearerToken(header)
		assert.False(t, ok, header)
	}
}

func TestAuthRejectsRawTokenWithoutScheme(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", mintTestToken(t, uuid.New(), nil))
	resp := httptest.NewRecorder()
	Auth(testJWT, nil)(okHandler()).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAuthSeedsPrincipalAndTokenBranch(t *testing.T) {
	userID := uuid.New()
	branchID := uuid.New()

	var (
		gotUser   uuid.UUID
		gotBranch *uuid.UUID
	)
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotBranch = tokenBranchFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+mintTestToken(t, userID, &branchID))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, userID, gotUser)
	require.NotNil(t, gotBranch)
	assert.Equal(t, branchID, *gotBranch)
}

type stubResolver struct {
	requested *uuid.UUID
	scope     *tenancy.Scope
	err       error
}

func (s *stubResolver) Resolve(_ context.Context, principal uuid.UUID, requested *uuid.UUID) (*tenancy.Scope, error) {
	s.requested = requested
	if s.err != nil {
		return nil, s.err
	}
	scope := *s.scope
	scope.UserID = principal
	return &scope, nil
}

func TestBranchScopePrefersHeaderOverToken(t *testing.T) {
	tokenBranch := uuid.New()
	headerBranch := uuid.New()
	resolver := &stubResolver{scope: &tenancy.Scope{BranchID: headerBranch, Role: enums.StaffRoleFrontDesk}}

	var got tenancy.Scope
	handler := BranchScope(resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ScopeFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := WithUserID(req.Context(), uuid.New())
	ctx = context.WithValue(ctx, ctxTokenBranchID, tokenBranch)
	req = req.WithContext(ctx)
	req.Header.Set(branchHeader, headerBranch.String())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, resolver.requested)
	assert.Equal(t, headerBranch, *resolver.requested)
	assert.Equal(t, headerBranch, got.BranchID)
}

func TestBranchScopeRejectsMalformedHeader(t *testing.T) {
	resolver := &stubResolver{scope: &tenancy.Scope{}}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(branchHeader, "not-a-uuid")
	resp := httptest.NewRecorder()
	BranchScope(resolver, nil)(okHandler()).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestBranchScopeSurfacesResolverErrors(t *testing.T) {
	resolver := &stubResolver{err: pkgerrors.New(pkgerrors.CodeForbidden, "no membership")}
	resp := httptest.NewRecorder()
	BranchScope(resolver, nil)(okHandler()).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestRequireAdministrator(t *testing.T) {
	cases := []struct {
		role enums.StaffRole
		want int
	}{
		{enums.StaffRoleOwner, http.StatusOK},
		{enums.StaffRoleManager, http.StatusOK},
		{enums.StaffRoleTechnician, http.StatusForbidden},
		{enums.StaffRoleFrontDesk, http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodDelete, "/", nil)
		req = req.WithContext(WithScope(req.Context(), tenancy.Scope{Role: tc.role}))
		resp := httptest.NewRecorder()
		RequireAdministrator(nil)(okHandler()).ServeHTTP(resp, req)
		assert.Equal(t, tc.want, resp.Code, string(tc.role))
	}
}
