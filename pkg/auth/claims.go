package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID         uuid.UUID
	ActiveBranchID *uuid.UUID
	JTI            string
}

// AccessTokenClaims is the principal carried by tokens from the auth provider.
// The staff role is not trusted from the token; it is resolved from memberships.
type AccessTokenClaims struct {
	UserID         uuid.UUID  `json:"user_id"`
	ActiveBranchID *uuid.UUID `json:"active_branch_id,omitempty"`
	jwt.RegisteredClaims
}
