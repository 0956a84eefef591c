// Package protocol defines the wire vocabulary of the www-v1 request
// protocol shared by clients and receivers.
//
// # Request Fields
//
// A request is an HTTP form (urlencoded, or multipart when files are
// attached). Caller parameters travel under their own names; protocol
// fields all start with "www-":
//
//   - www-timestamp - unix seconds at assembly time
//   - www-hash - hex HMAC-SHA256 signature of the canonical payload
//   - www-crypt.<name> - ciphertext of the encrypted parameter <name>
//   - www-profile - optional API profile used to look up the secret key
//   - www-command - optional command name
//   - www-return-hash, www-return-timestamp - ask for a signed response
//
// The API token travels in the X-WWW-Token header and a per-call UUID in
// X-Request-Id.
//
// # Canonical Payload
//
// Every body field except www-hash, plus one synthetic entry per attached
// file:
//
//	www-file.<field> = <filename>;<content-type>;<sha256 hex of content>
//
// sorted by key and joined as key=value pairs with "&", both sides query
// escaped. See the signer package for the algorithm.
//
// # Errors
//
// Receivers answer failures with a JSON body:
//
//	{"www-error": "Request timestamp is too old", "www-error-code": 106}
//
// Codes 105/106 are timestamp failures, 108/110 hash failures, 112 a
// decryption failure and 113 a replayed request.
//
// # Signed Responses
//
// When a request carries www-return-hash or www-return-timestamp, the
// receiver adds www-timestamp and www-hash to its JSON response. The hash
// covers the response fields flattened by FlattenResponse and is computed
// with the same signer as requests.
package protocol
