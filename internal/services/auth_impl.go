package services

import (
	"context"
	"errors"

	goa "goa.design/goa/v3/pkg"

	"spacedetect/internal/auth"
	"spacedetect/internal/middleware"
)

// AuthImplementation implements the auth service
type AuthImplementation struct {
	authenticator *auth.Authenticator
}

// NewAuthService creates a new auth service implementation
func NewAuthService(authenticator *auth.Authenticator) *AuthImplementation {
	return &AuthImplementation{
		authenticator: authenticator,
	}
}

// Login authenticates a user and returns a JWT token
func (a *AuthImplementation) Login(ctx context.Context, payload *LoginPayload) (*LoginResult, error) {
	token, expiresAt, err := a.authenticator.Authenticate(payload.Username, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			return nil, goa.PermanentError("unauthorized", "Invalid username or password")
		case errors.Is(err, auth.ErrAuthDisabled):
			return nil, goa.PermanentError("unauthorized", "Authentication is disabled")
		}
		return nil, err
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Status returns the current authentication status
func (a *AuthImplementation) Status(ctx context.Context) (*AuthStatus, error) {
	status := &AuthStatus{Enabled: a.authenticator.IsEnabled()}

	if claims := middleware.GetUserFromContext(ctx); claims != nil {
		status.Authenticated = true
		status.Username = &claims.Username
		if id := claims.TokenID(); id != "" {
			status.TokenID = &id
		}
		if exp := claims.ExpiresAtUnix(); exp > 0 {
			status.ExpiresAt = &exp
		}
	}
	return status, nil
}
