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

package server

import (
	"time"

	"github.com/sage-x-project/sage-www-go/pkg/clock"
	"github.com/sage-x-project/sage-www-go/pkg/request"
)

// VerifiedRequest is an authenticated request as seen by a handler
type VerifiedRequest struct {
	Profile   string
	APIToken  string
	Command   string
	RequestID string
	Timestamp int64
	Signature string

	// Params holds the plain non-reserved fields
	Params map[string]string

	// Encrypted holds the decrypted values of www-crypt fields, keyed by
	// their plain names
	Encrypted map[string]string

	Files []request.Attachment

	ReturnHash      bool
	ReturnTimestamp bool

	// ReturnType is the requested response format, "json" when absent
	ReturnType string
	// CacheTimeout is the requested cache lifetime in seconds, 0 for none
	CacheTimeout int
	Minify       bool

	secret string
	clock  clock.Clock
}

// Value returns a parameter from either channel. Plain parameters win; the
// client refuses to send the same name on both.
func (v *VerifiedRequest) Value(name string) (string, bool) {
	if s, ok := v.Params[name]; ok {
		return s, true
	}
	s, ok := v.Encrypted[name]
	return s, ok
}

// File returns the attachment sent under field
func (v *VerifiedRequest) File(field string) (request.Attachment, bool) {
	for _, f := range v.Files {
		if f.Field == field {
			return f, true
		}
	}
	return request.Attachment{}, false
}

func (v *VerifiedRequest) now() time.Time {
	if v.clock == nil {
		return time.Now()
	}
	return v.clock.Now()
}
