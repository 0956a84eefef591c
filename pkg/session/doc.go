// Package session holds the configuration and per-session bookkeeping of
// the connector: endpoint and credentials, the trace log, and a snapshot
// of the most recent error.
//
//	sess, err := session.Configure("https://api.example.com/www.api", "s3cr3t", "tok123", 10, 10)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// after a call
//	for _, entry := range sess.Log() {
//	    fmt.Println(entry)
//	}
//	code, msg := sess.LastError()
//
// The last-error snapshot is a convenience for single-caller programs.
// Concurrent callers should use the error each call returns.
package session
