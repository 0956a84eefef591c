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

// Package apierror defines the connector's error taxonomy.
//
// Every failure surfaced by the session, the request assembler and the
// client is an *Error carrying a Kind and a numeric code. Callers branch on
// the kind with errors.Is against the package sentinels:
//
//	if errors.Is(err, apierror.ErrTimeout) {
//	    // retry according to caller policy
//	}
//
// ErrAuthentication matches both signature and stale-timestamp failures.
package apierror

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindNone Kind = iota
	KindConfig
	KindDuplicateKey
	KindFileAccess
	KindTransport
	KindTimeout
	KindCancelled
	KindParse
	KindValidationMissing
	KindStaleTimestamp
	KindSignature
	KindEncryption
	KindRemote
)

// Client-side error codes. Remote failures keep the code the server sent.
const (
	CodeNone              = 0
	CodeConfig            = 201
	CodeDuplicateKey      = 202
	CodeFileAccess        = 203
	CodeTransport         = 204
	CodeTimeout           = 205
	CodeCancelled         = 206
	CodeParse             = 207
	CodeValidationMissing = 209
	CodeStaleTimestamp    = 210
	CodeSignature         = 211
	CodeEncryption        = 212
)

var (
	ErrConfig            = errors.New("apierror: configuration error")
	ErrDuplicateKey      = errors.New("apierror: duplicate key")
	ErrFileAccess        = errors.New("apierror: file access error")
	ErrTransport         = errors.New("apierror: transport error")
	ErrTimeout           = errors.New("apierror: timeout")
	ErrCancelled         = errors.New("apierror: cancelled")
	ErrParse             = errors.New("apierror: parse error")
	ErrValidationMissing = errors.New("apierror: validation data missing")
	ErrStaleTimestamp    = errors.New("apierror: timestamp outside window")
	ErrSignature         = errors.New("apierror: signature invalid")
	ErrEncryption        = errors.New("apierror: encryption error")
	ErrRemote            = errors.New("apierror: remote error")

	// ErrAuthentication matches ErrSignature and ErrStaleTimestamp.
	ErrAuthentication = errors.New("apierror: authentication failed")
)

var kindNames = map[Kind]string{
	KindNone:              "none",
	KindConfig:            "config",
	KindDuplicateKey:      "duplicate_key",
	KindFileAccess:        "file_access",
	KindTransport:         "transport",
	KindTimeout:           "timeout",
	KindCancelled:         "cancelled",
	KindParse:             "parse",
	KindValidationMissing: "validation_missing",
	KindStaleTimestamp:    "stale_timestamp",
	KindSignature:         "signature",
	KindEncryption:        "encryption",
	KindRemote:            "remote",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// DefaultCode returns the code used for k when no explicit code is given.
func (k Kind) DefaultCode() int {
	switch k {
	case KindConfig:
		return CodeConfig
	case KindDuplicateKey:
		return CodeDuplicateKey
	case KindFileAccess:
		return CodeFileAccess
	case KindTransport:
		return CodeTransport
	case KindTimeout:
		return CodeTimeout
	case KindCancelled:
		return CodeCancelled
	case KindParse:
		return CodeParse
	case KindValidationMissing:
		return CodeValidationMissing
	case KindStaleTimestamp:
		return CodeStaleTimestamp
	case KindSignature:
		return CodeSignature
	case KindEncryption:
		return CodeEncryption
	default:
		return CodeNone
	}
}

// Retryable reports whether a caller retry policy may reasonably retry k.
func (k Kind) Retryable() bool {
	return k == KindTimeout || k == KindTransport
}

func (k Kind) sentinel() error {
	switch k {
	case KindConfig:
		return ErrConfig
	case KindDuplicateKey:
		return ErrDuplicateKey
	case KindFileAccess:
		return ErrFileAccess
	case KindTransport:
		return ErrTransport
	case KindTimeout:
		return ErrTimeout
	case KindCancelled:
		return ErrCancelled
	case KindParse:
		return ErrParse
	case KindValidationMissing:
		return ErrValidationMissing
	case KindStaleTimestamp:
		return ErrStaleTimestamp
	case KindSignature:
		return ErrSignature
	case KindEncryption:
		return ErrEncryption
	case KindRemote:
		return ErrRemote
	default:
		return nil
	}
}

// Error is the connector's structured error.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

// New creates an Error of kind k with its default code.
func New(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Code: k.DefaultCode(), Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of kind k wrapping err. The message is prefixed
// to err's text.
func Wrap(k Kind, err error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	return &Error{Kind: k, Code: k.DefaultCode(), Message: msg, Err: err}
}

// Remote creates a KindRemote error with the server's own code.
func Remote(code int, message string) *Error {
	return &Error{Kind: KindRemote, Code: code, Message: message}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels, and ErrAuthentication for signature and
// stale-timestamp failures.
func (e *Error) Is(target error) bool {
	if target == ErrAuthentication {
		return e.Kind == KindSignature || e.Kind == KindStaleTimestamp
	}
	s := e.Kind.sentinel()
	return s != nil && s == target
}

// WithCode returns a copy of e carrying code.
func (e *Error) WithCode(code int) *Error {
	cp := *e
	cp.Code = code
	return &cp
}

// As extracts an *Error from err. Errors outside the taxonomy are reported
// as KindTransport so that every failure has a code.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return Wrap(KindTransport, err, "unclassified failure")
}

// KindOf returns the kind of err, or KindNone for nil.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	return As(err).Kind
}
