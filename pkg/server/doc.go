// Package server provides HTTP middleware that verifies www-v1 signed
// requests.
//
// The middleware is the receiving half of the protocol the client package
// speaks. It is used by the example server, by wwwctl verify, and by the
// end-to-end tests.
//
// # Basic Usage
//
//	resolver := verifier.NewStaticResolver(map[string]verifier.Profile{
//	    "public": {Secret: "s3cret", Tokens: []string{"tok"}},
//	})
//	guard, _ := replay.NewMemoryGuard(time.Minute)
//	mw := server.NewAuthMiddleware(resolver,
//	    server.WithWindow(10*time.Second),
//	    server.WithReplayGuard(guard),
//	)
//
//	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	    vr, _ := server.VerifiedRequestFromContext(r.Context())
//	    name, _ := vr.Value("name")
//	    server.Respond(w, r, map[string]any{"hello": name})
//	})
//	http.Handle("/www", mw.Wrap(handler))
//
// With gin, use mw.Gin() as a route middleware and GinVerifiedRequest in
// the handler.
//
// # How It Works
//
// For each request the middleware:
//
//  1. Skips OPTIONS requests (CORS preflight)
//  2. Parses the form body, or the query string for GET
//  3. Resolves the secret key for the profile and X-WWW-Token header
//  4. Rebuilds the canonical payload, hashing every uploaded file
//  5. Checks the timestamp window, then the signature
//  6. Rejects signatures already seen, when a replay guard is set
//  7. Decrypts www-crypt fields
//  8. Stores a *VerifiedRequest in the request context
//
// # Errors
//
// Rejections are answered with 403 and a JSON body carrying www-error and
// www-error-code, using the server codes from the protocol package:
//
//	105  timestamp missing or malformed
//	106  timestamp outside the window
//	108  hash missing
//	109  api token missing or not accepted
//	110  hash invalid
//	112  encrypted parameter cannot be decrypted
//	113  request replayed
//
// Replace the response with SetErrorHandler. Errors passed to the handler
// are *RejectError.
//
// # Signed Responses
//
// Respond adds www-timestamp and www-hash when the client asked for them,
// signing with the same token and secret that authenticated the request.
package server
