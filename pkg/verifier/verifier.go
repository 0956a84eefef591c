package verifier

import "time"

// Verifier checks request signatures
type Verifier interface {
	// Verify recomputes the signature of canonicalPayload and compares it
	// to signature in constant time. It fails with a stale-timestamp error
	// when now-timestamp falls outside [-window, +window], and with a
	// signature error when the hash does not match.
	Verify(signature, apiToken string, timestamp int64, secretKey, canonicalPayload string, now time.Time, window time.Duration) error
}
