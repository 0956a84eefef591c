// Package client runs signed calls against a WWW Framework API.
//
// # Basic Usage
//
//	sess, err := session.Configure("https://api.example.com/www.api", "s3cr3t", "tok123", 10, 10)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	c := client.New(sess)
//
//	asm := c.NewAssembler()
//	_ = asm.SetCommand("get-movie")
//	_ = asm.AddParameter("id", "42")
//
//	res, err := c.Call(ctx, asm, client.CallOptions{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res.Fields["title"])
//
// # Call States
//
// Every call moves through
//
//	Unsent -> Assembling -> Signed -> Dispatched -> Succeeded
//
// and leaves for Failed from whichever state it had reached. A failed call
// returns a *CallError carrying the state trace; StateOf and ReachedOf
// report the final and last reached state. There is no automatic retry.
//
// # Error Handling
//
// Errors unwrap to *apierror.Error, so callers branch on kinds:
//
//	res, err := c.Call(ctx, asm, client.CallOptions{})
//	switch {
//	case errors.Is(err, apierror.ErrTimeout):
//	    // retry according to your policy
//	case errors.Is(err, apierror.ErrAuthentication):
//	    // resynchronize the clock or check credentials
//	case errors.Is(err, apierror.ErrRemote):
//	    log.Printf("server refused: %v", err)
//	}
//
// The session's LastError snapshot and trace log are updated as well.
//
// # Authenticated Responses
//
// CallOptions.ReturnHash and ReturnTimestamp ask the server to sign and
// timestamp its answer. The client rejects responses that lack them or do
// not verify.
//
// # Session Tokens
//
// CreateSession runs the session-creation command; a www-token in its
// response replaces the session's API token for later calls. A www-token
// in the response to any other command is ignored.
//
// # Thread Safety
//
// Client is safe for concurrent use. Use one Assembler per call.
package client
