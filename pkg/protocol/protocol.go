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

package protocol

import "strings"

// ReservedPrefix marks protocol fields. Caller parameters may not use it.
const ReservedPrefix = "www-"

// Request body fields
const (
	FieldCommand         = "www-command"
	FieldProfile         = "www-profile"
	FieldTimestamp       = "www-timestamp"
	FieldHash            = "www-hash"
	FieldReturnHash      = "www-return-hash"
	FieldReturnTimestamp = "www-return-timestamp"
	FieldReturnType      = "www-return-type"
	FieldCacheTimeout    = "www-cache-timeout"
	FieldMinify          = "www-minify"

	// DefaultReturnType is implied when FieldReturnType is absent
	DefaultReturnType = "json"

	// CryptPrefix precedes the name of every encrypted parameter
	CryptPrefix = "www-crypt."

	// FilePrefix precedes the synthetic canonical entry of an attachment.
	// It never appears in the body; receivers rebuild it from the file part.
	FilePrefix = "www-file."
)

// Response body fields
const (
	FieldError      = "www-error"
	FieldErrorCode  = "www-error-code"
	FieldToken      = "www-token"
	FieldTokenTTL   = "www-token-timeout"
	FieldResult     = "www-result"
	CommandSession  = "www-create-session"
	CommandDestroy  = "www-destroy-session"
	CommandValidate = "www-validate-session"
)

// Headers
const (
	HeaderToken     = "X-WWW-Token"
	HeaderRequestID = "X-Request-Id"
)

// Server error codes returned in FieldErrorCode
const (
	ServerCodeInternal         = 100
	ServerCodeCommandMissing   = 101
	ServerCodeProfileNotFound  = 102
	ServerCodeTimestampMissing = 105
	ServerCodeTimestampTooOld  = 106
	ServerCodeSecretMissing    = 107
	ServerCodeHashMissing      = 108
	ServerCodeTokenInvalid     = 109
	ServerCodeHashInvalid      = 110
	ServerCodeDecryptFailed    = 112
	ServerCodeReplay           = 113
)

// IsReserved reports whether name is a protocol field name
func IsReserved(name string) bool {
	return strings.HasPrefix(strings.ToLower(name), ReservedPrefix)
}

// CryptField returns the body field carrying the ciphertext of name
func CryptField(name string) string {
	return CryptPrefix + name
}

// FileField returns the canonical entry name of an attachment field
func FileField(field string) string {
	return FilePrefix + field
}

// IsTimestampFailure reports whether a server code means the request
// timestamp was missing or outside the window
func IsTimestampFailure(code int) bool {
	return code == ServerCodeTimestampMissing || code == ServerCodeTimestampTooOld
}

// IsHashFailure reports whether a server code means the request signature
// was missing or did not match
func IsHashFailure(code int) bool {
	return code == ServerCodeHashMissing || code == ServerCodeHashInvalid
}
