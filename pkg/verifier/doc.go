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

// Package verifier checks www-v1 request signatures.
//
// The receiving side of a signed request, or a client self-checking an
// envelope before sending it, recomputes the signature with the shared
// secret and compares it in constant time.
//
// # Verification
//
//	v := verifier.NewDefaultVerifier(nil)
//	payload := signer.Canonicalize(fields)
//
//	err := v.Verify(sig, apiToken, timestamp, secretKey, payload, time.Now(), 10*time.Second)
//	if errors.Is(err, apierror.ErrStaleTimestamp) {
//	    // clock skew or replay
//	}
//
// # Timestamp Window
//
// A request is accepted only when
//
//	-window <= now - timestamp <= window
//
// in whole seconds. The window is checked before the hash, so a stale
// request is reported as stale even if its hash is also wrong.
//
// # Secret Resolution
//
// A SecretResolver maps the request's profile and API token to the secret
// key it was signed with:
//
//	resolver := verifier.NewStaticResolver(map[string]verifier.Profile{
//	    verifier.DefaultProfile: {Secret: "public-secret"},
//	    "admin":                 {Secret: "admin-secret", Tokens: []string{"t1"}},
//	})
//
// SecretResolverFunc adapts any lookup, for example a database query.
//
// # Error Handling
//
// Verify returns *apierror.Error values:
//
//   - KindStaleTimestamp: timestamp outside the window
//   - KindSignature: signature missing or mismatched
//
// Both match apierror.ErrAuthentication.
//
// # Security Considerations
//
//   - Signatures are compared with hmac.Equal
//   - Pair the window with a replay guard to reject reuse inside it
//   - Use HTTPS; the API token travels in clear
package verifier
