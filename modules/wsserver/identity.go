package wsserver

import (
	"context"
	"errors"
	"strings"

	"github.com/effectiveone/facebook-clone-backend/modules/auth"
)

// Identity modes selected by WS_IDENTITY_MODE.
const (
	IdentityModeTrust = "trust"
	IdentityModeToken = "token"
)

var (
	// ErrMissingIdentity is returned when an identity assertion carries no usable identity.
	ErrMissingIdentity = errors.New("identity assertion without user id")
	// ErrIdentityMismatch is returned when the token belongs to another user than asserted.
	ErrIdentityMismatch = errors.New("token does not belong to the asserted user")
)

// Identifier resolves an identity assertion to a user id.
type Identifier interface {
	Identify(ctx context.Context, assertion IdentityPayload) (string, error)
}

// TrustIdentifier accepts the asserted user id as is.
// Authentication happens before the socket is opened.
type TrustIdentifier struct{}

// Identify returns the asserted user id.
func (TrustIdentifier) Identify(_ context.Context, assertion IdentityPayload) (string, error) {
	userID := strings.TrimSpace(assertion.UserID)
	if userID == "" {
		return "", ErrMissingIdentity
	}
	return userID, nil
}

// TokenIdentifier requires a bearer token issued by the auth package.
type TokenIdentifier struct {
	tokens *auth.JWTManager
}

// NewTokenIdentifier creates an identifier validating tokens with the given manager.
func NewTokenIdentifier(tokens *auth.JWTManager) *TokenIdentifier {
	return &TokenIdentifier{tokens: tokens}
}

// Identify validates the token and returns the user id it was issued for.
// An asserted user id, if present, must match the token.
func (i *TokenIdentifier) Identify(_ context.Context, assertion IdentityPayload) (string, error) {
	if assertion.Token == "" {
		return "", ErrMissingIdentity
	}
	claims, err := i.tokens.ValidateToken(assertion.Token)
	if err != nil {
		return "", err
	}
	if assertion.UserID != "" && assertion.UserID != claims.UserID {
		return "", ErrIdentityMismatch
	}
	return claims.UserID, nil
}

// NewIdentifier returns the identifier for mode. Unknown modes fall back to trust.
func NewIdentifier(mode string, tokens *auth.JWTManager) Identifier {
	if strings.EqualFold(mode, IdentityModeToken) && tokens != nil {
		return NewTokenIdentifier(tokens)
	}
	return TrustIdentifier{}
}
