package auth

import (
	"context"

	"github.com/makeasinger/lyrics-api/internal/model"
)

// IdentityResolver resolves the caller of a request.
// A nil user with a nil error means the caller is not authenticated.
type IdentityResolver interface {
	CurrentUser(ctx context.Context, creds Credentials) (*model.User, error)
}

// TokenResolver accepts the first verifier that validates the bearer token
type TokenResolver struct {
	verifiers []TokenVerifier
}

// NewTokenResolver creates a resolver trying verifiers in order. Nil verifiers are skipped.
func NewTokenResolver(verifiers ...TokenVerifier) *TokenResolver {
	r := &TokenResolver{}
	for _, v := range verifiers {
		if v != nil {
			r.verifiers = append(r.verifiers, v)
		}
	}
	return r
}

func (r *TokenResolver) CurrentUser(_ context.Context, creds Credentials) (*model.User, error) {
	if creds.BearerToken == "" {
		return nil, nil
	}

	for _, v := range r.verifiers {
		claims, err := v.Validate(creds.BearerToken)
		if err != nil {
			continue
		}
		if user := claims.User(); user != nil {
			return user, nil
		}
	}

	return nil, nil
}

// IsConfigured returns true if at least one verifier is available
func (r *TokenResolver) IsConfigured() bool {
	return len(r.verifiers) > 0
}

// GatewayResolver trusts the X-User-* headers set by an upstream ForwardAuth proxy
type GatewayResolver struct{}

func NewGatewayResolver() *GatewayResolver {
	return &GatewayResolver{}
}

func (r *GatewayResolver) CurrentUser(_ context.Context, creds Credentials) (*model.User, error) {
	if creds.GatewayUserID == "" {
		return nil, nil
	}
	return &model.User{
		ID:    creds.GatewayUserID,
		Email: creds.GatewayUserEmail,
		Name:  creds.GatewayUserName,
	}, nil
}
