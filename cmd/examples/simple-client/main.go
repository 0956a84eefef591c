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
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/sage-x-project/sage-www-go/pkg/apierror"
	"github.com/sage-x-project/sage-www-go/pkg/client"
	"github.com/sage-x-project/sage-www-go/pkg/protocol"
	"github.com/sage-x-project/sage-www-go/pkg/request"
	"github.com/sage-x-project/sage-www-go/pkg/server"
	"github.com/sage-x-project/sage-www-go/pkg/session"
	"github.com/sage-x-project/sage-www-go/pkg/verifier"
)

// This example demonstrates a signed call with plain, encrypted and file
// parameters. Without SAGEWWW_ENDPOINT it starts a local server first.
func main() {
	fmt.Println("=== Simple Client Example ===")
	fmt.Println()

	endpoint := os.Getenv("SAGEWWW_ENDPOINT")
	secret := "s3cr3t"
	if endpoint == "" {
		srv := httptest.NewServer(localServer(secret))
		defer srv.Close()
		endpoint = srv.URL + "/www.api"
		fmt.Printf("Started local server at %s\n\n", endpoint)
	} else if s := os.Getenv("SAGEWWW_SECRET_KEY"); s != "" {
		secret = s
	}

	// Step 1: Configure a session
	fmt.Println("Step 1: Configuring session...")
	sess, err := session.Configure(endpoint, secret, "tok123", 10, 10)
	if err != nil {
		log.Fatalf("Failed to configure session: %v", err)
	}
	fmt.Printf("  Endpoint: %s\n", sess.Endpoint())
	fmt.Printf("  Window:   %s\n\n", sess.Window())

	c := client.New(sess)

	// Step 2: Assemble a request
	fmt.Println("Step 2: Assembling request...")
	asm := c.NewAssembler()
	must(asm.SetCommand("echo"))
	must(asm.AddParameter("title", "Alien"))
	must(asm.AddEncryptedParameter("card", "4111 1111 1111 1111"))
	must(asm.AddFile("poster", request.FileRef{Filename: "poster.txt", Content: []byte("a poster")}))
	fmt.Println("  ✓ 1 plain, 1 encrypted, 1 file parameter")
	fmt.Println()

	// Step 3: Send it and check the signed response
	fmt.Println("Step 3: Calling API...")
	result, err := c.Call(context.Background(), asm, client.CallOptions{ReturnHash: true, ReturnTimestamp: true})
	if err != nil {
		log.Fatalf("Call failed: %v", err)
	}
	fmt.Printf("  ✓ Request %s succeeded in %s\n", result.RequestID, result.Duration)
	fmt.Printf("  States: %v\n", result.Trace)
	for k, v := range result.Fields {
		fmt.Printf("  %s = %v\n", k, v)
	}
	fmt.Println()

	// Step 4: A request the server rejects
	fmt.Println("Step 4: Calling with a reserved parameter name...")
	bad := c.NewAssembler()
	if err := bad.AddParameter(protocol.FieldHash, "forged"); err != nil {
		code, msg := sess.LastError()
		fmt.Printf("  ✓ Refused locally (%s): %d %s\n", apierror.KindOf(err), code, msg)
	}
	fmt.Println()

	// Step 5: The session log
	fmt.Println("Step 5: Session log")
	for _, line := range sess.Log() {
		fmt.Printf("  %s\n", line)
	}

	fmt.Println("\n=== Example completed successfully! ===")
}

func localServer(secret string) http.Handler {
	auth := server.NewAuthMiddleware(verifier.NewSingleSecret(secret))
	return auth.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vr, _ := server.VerifiedRequestFromContext(r.Context())
		card, _ := vr.Value("card")
		if len(card) > 4 {
			card = card[len(card)-4:]
		}
		poster, _ := vr.File("poster")
		_ = server.Respond(w, r, map[string]any{
			"title":       vr.Params["title"],
			"card-last4":  card,
			"poster-size": len(poster.Content),
		})
	}))
}

func must(err error) {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		log.Fatalf("Error %d: %s", apiErr.Code, apiErr.Message)
	}
	if err != nil {
		log.Fatal(err)
	}
}
