package verifier

import (
	"context"
	"errors"
)

var (
	ErrProfileNotFound = errors.New("verifier: profile not found")
	ErrSecretMissing   = errors.New("verifier: profile has no secret key")
	ErrTokenInvalid    = errors.New("verifier: api token not accepted")
)

// SecretResolver finds the shared secret a receiver verifies a request with
type SecretResolver interface {
	// ResolveSecret returns the secret key for the given API profile and
	// token. profile is empty when the request did not name one.
	ResolveSecret(ctx context.Context, profile, apiToken string) (string, error)
}

// SecretResolverFunc adapts a function to SecretResolver
type SecretResolverFunc func(ctx context.Context, profile, apiToken string) (string, error)

func (f SecretResolverFunc) ResolveSecret(ctx context.Context, profile, apiToken string) (string, error) {
	return f(ctx, profile, apiToken)
}
