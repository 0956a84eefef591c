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

package request

import (
	"bytes"
	"net/url"
	"time"

	"github.com/sage-x-project/sage-www-go/pkg/verifier"
)

// Attachment is a file part of a request
type Attachment struct {
	Field       string
	Filename    string
	ContentType string
	Content     []byte
	// Digest is the hex SHA-256 of Content
	Digest string
}

// Descriptor is the value signed for the attachment: filename, content
// type and digest, each query-escaped and separated by semicolons.
func (a Attachment) Descriptor() string {
	return url.QueryEscape(a.Filename) + ";" + url.QueryEscape(a.ContentType) + ";" + a.Digest
}

// Envelope is a finalized, signed request. It is read-only: accessors
// return copies.
type Envelope struct {
	endpoint    string
	apiToken    string
	userAgent   string
	requestID   string
	timestamp   int64
	signature   string
	canonical   string
	fields      map[string]string
	attachments []Attachment
}

func (e *Envelope) Endpoint() string  { return e.endpoint }
func (e *Envelope) APIToken() string  { return e.apiToken }
func (e *Envelope) UserAgent() string { return e.userAgent }
func (e *Envelope) RequestID() string { return e.requestID }
func (e *Envelope) Timestamp() int64  { return e.timestamp }
func (e *Envelope) Signature() string { return e.signature }

// CanonicalPayload returns the exact string that was signed
func (e *Envelope) CanonicalPayload() string { return e.canonical }

// Fields returns a copy of the body fields, www-hash included
func (e *Envelope) Fields() map[string]string {
	out := make(map[string]string, len(e.fields))
	for k, v := range e.fields {
		out[k] = v
	}
	return out
}

// Field returns one body field
func (e *Envelope) Field(name string) (string, bool) {
	v, ok := e.fields[name]
	return v, ok
}

// Attachments returns the attachments ordered by field name
func (e *Envelope) Attachments() []Attachment {
	out := make([]Attachment, len(e.attachments))
	for i, att := range e.attachments {
		att.Content = bytes.Clone(att.Content)
		out[i] = att
	}
	return out
}

// HasAttachments reports whether the envelope must be sent as multipart
func (e *Envelope) HasAttachments() bool {
	return len(e.attachments) > 0
}

// SelfCheck verifies the envelope the way a receiver would
func (e *Envelope) SelfCheck(v verifier.Verifier, secretKey string, now time.Time, window time.Duration) error {
	return v.Verify(e.signature, e.apiToken, e.timestamp, secretKey, CanonicalPayload(e.fields, e.attachments), now, window)
}
