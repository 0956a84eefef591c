// Copyright (C) 2025 SAGE-X Project
//
// This file is part of sage-www-go.
//
// sage-www-go is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// sage-www-go is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with sage-www-go.  If not, see <https://www.gnu.org/licenses/>.

package verifier

import (
	"context"
	"fmt"
)

// DefaultProfile is used when a request carries no profile
const DefaultProfile = "public"

// Profile holds the credentials of one API profile
type Profile struct {
	// Secret is the shared secret key
	Secret string
	// Tokens lists accepted API tokens. Empty accepts any token.
	Tokens []string
}

// StaticResolver implements SecretResolver over a fixed set of profiles
type StaticResolver struct {
	profiles       map[string]Profile
	defaultProfile string
}

// NewStaticResolver creates a StaticResolver. The map is copied.
func NewStaticResolver(profiles map[string]Profile) *StaticResolver {
	copied := make(map[string]Profile, len(profiles))
	for name, p := range profiles {
		p.Tokens = append([]string(nil), p.Tokens...)
		copied[name] = p
	}
	return &StaticResolver{
		profiles:       copied,
		defaultProfile: DefaultProfile,
	}
}

// NewSingleSecret creates a resolver that knows only DefaultProfile
func NewSingleSecret(secret string) *StaticResolver {
	return NewStaticResolver(map[string]Profile{DefaultProfile: {Secret: secret}})
}

// WithDefaultProfile changes the profile used for requests that name none
func (r *StaticResolver) WithDefaultProfile(name string) *StaticResolver {
	r.defaultProfile = name
	return r
}

// ResolveSecret looks the profile up and checks the token against it
func (r *StaticResolver) ResolveSecret(ctx context.Context, profile, apiToken string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context error: %w", err)
	}

	if profile == "" {
		profile = r.defaultProfile
	}
	p, ok := r.profiles[profile]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrProfileNotFound, profile)
	}
	if p.Secret == "" {
		return "", fmt.Errorf("%w: %s", ErrSecretMissing, profile)
	}
	if !p.accepts(apiToken) {
		return "", ErrTokenInvalid
	}
	return p.Secret, nil
}

func (p Profile) accepts(token string) bool {
	if len(p.Tokens) == 0 {
		return token != ""
	}
	for _, t := range p.Tokens {
		if t == token {
			return true
		}
	}
	return false
}

var (
	_ SecretResolver = (*StaticResolver)(nil)
	_ SecretResolver = SecretResolverFunc(nil)
	_ Verifier       = (*DefaultVerifier)(nil)
)
