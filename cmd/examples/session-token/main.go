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

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/google/uuid"

	"github.com/sage-x-project/sage-www-go/pkg/client"
	"github.com/sage-x-project/sage-www-go/pkg/protocol"
	"github.com/sage-x-project/sage-www-go/pkg/server"
	"github.com/sage-x-project/sage-www-go/pkg/session"
	"github.com/sage-x-project/sage-www-go/pkg/verifier"
)

const (
	secret         = "s3cr3t"
	bootstrapToken = "public-token"
)

// tokenStore is the server's view of issued session tokens
type tokenStore struct {
	mu     sync.Mutex
	tokens map[string]bool
}

func (s *tokenStore) issue() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok := uuid.NewString()
	s.tokens[tok] = true
	return tok
}

func (s *tokenStore) revoke(tok string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, tok)
}

func (s *tokenStore) ResolveSecret(ctx context.Context, profile, apiToken string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if apiToken != bootstrapToken && !s.tokens[apiToken] {
		return "", verifier.ErrTokenInvalid
	}
	return secret, nil
}

// This example demonstrates the session token flow: the client starts with
// a public token, trades it for a session token, and the session rotates
// to the new token automatically.
func main() {
	fmt.Println("=== Session Token Example ===")
	fmt.Println()

	store := &tokenStore{tokens: make(map[string]bool)}
	srv := httptest.NewServer(newServer(store))
	defer srv.Close()

	sess, err := session.Configure(srv.URL+"/www.api", secret, bootstrapToken, 10, 10)
	if err != nil {
		log.Fatalf("Failed to configure session: %v", err)
	}
	c := client.New(sess)
	ctx := context.Background()

	// Step 1: Create a session
	fmt.Println("Step 1: Creating session...")
	if _, err := c.CreateSession(ctx, client.CallOptions{ReturnHash: true}); err != nil {
		log.Fatalf("Create session failed: %v", err)
	}
	sessionToken := sess.APIToken()
	fmt.Printf("  ✓ Token rotated: %s -> %s\n\n", bootstrapToken, sessionToken)

	// Step 2: Validate it
	fmt.Println("Step 2: Validating session...")
	result, err := c.ValidateSession(ctx, client.CallOptions{ReturnHash: true})
	if err != nil {
		log.Fatalf("Validate session failed: %v", err)
	}
	v, _ := result.String(protocol.FieldResult)
	fmt.Printf("  ✓ Server says: %s\n\n", v)

	// Step 3: Destroy it
	fmt.Println("Step 3: Destroying session...")
	if _, err := c.DestroySession(ctx, client.CallOptions{}); err != nil {
		log.Fatalf("Destroy session failed: %v", err)
	}
	fmt.Println("  ✓ Session destroyed")
	fmt.Println()

	// Step 4: The revoked token no longer works
	fmt.Println("Step 4: Validating again...")
	if _, err := c.ValidateSession(ctx, client.CallOptions{}); err != nil {
		code, msg := sess.LastError()
		fmt.Printf("  ✓ Rejected as expected: %d %s\n", code, msg)
	} else {
		log.Fatal("Revoked token was accepted")
	}

	fmt.Println("\n=== Example completed successfully! ===")
}

func newServer(store *tokenStore) http.Handler {
	auth := server.NewAuthMiddleware(store)
	return auth.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vr, _ := server.VerifiedRequestFromContext(r.Context())

		switch vr.Command {
		case protocol.CommandSession:
			_ = server.Respond(w, r, map[string]any{
				protocol.FieldToken:    store.issue(),
				protocol.FieldTokenTTL: 3600,
			})
		case protocol.CommandValidate:
			if vr.APIToken == bootstrapToken {
				server.WriteError(w, http.StatusForbidden, protocol.ServerCodeTokenInvalid, "not a session token")
				return
			}
			_ = server.Respond(w, r, map[string]any{protocol.FieldResult: "valid"})
		case protocol.CommandDestroy:
			store.revoke(vr.APIToken)
			_ = server.Respond(w, r, map[string]any{protocol.FieldResult: "destroyed"})
		default:
			server.WriteError(w, http.StatusNotFound, protocol.ServerCodeCommandMissing, "unknown command")
		}
	}))
}
