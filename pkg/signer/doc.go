// Package signer provides request signing for the www-v1 protocol.
//
// A request is authenticated with a shared secret: the client and the
// server both hold the secret key, the client sends only a signature.
//
// # Signing a Request
//
//	fields := map[string]string{
//	    "cmd":           "echo",
//	    "www-timestamp": "1700000000",
//	}
//	payload := signer.Canonicalize(fields)
//
//	s := signer.NewDefaultSigner()
//	sig, err := s.Sign(apiToken, 1700000000, secretKey, payload)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Canonical Payload
//
// Canonicalize sorts keys bytewise and renders key=value pairs joined with
// "&", query escaping both sides:
//
//	cmd=echo&www-timestamp=1700000000
//
// The same logical request always yields the same payload regardless of
// the order parameters were added in.
//
// # Signature Format
//
// The signature is the lowercase hex HMAC-SHA256, keyed by the secret key,
// of:
//
//	www-v1 \n <api token> \n <timestamp> \n <canonical payload>
//
// The result is always SignatureLength (64) characters. The protocol
// version is part of the signed message, so a future scheme cannot be
// confused with this one.
//
// # Security Considerations
//
//   - The secret key never leaves the client
//   - The timestamp is signed, so it cannot be moved into the window
//   - Encrypted parameters are signed as ciphertext, after encryption
//   - Use the verifier package to compare signatures in constant time
package signer
