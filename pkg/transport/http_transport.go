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

package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/sage-x-project/sage-www-go/pkg/apierror"
	"github.com/sage-x-project/sage-www-go/pkg/protocol"
	"github.com/sage-x-project/sage-www-go/pkg/request"
)

const (
	// MaxURLLength is the longest request URL sent with GET
	MaxURLLength = 8192

	// DefaultMaxResponseBytes bounds the response body read into memory
	DefaultMaxResponseBytes int64 = 10 << 20
)

// Response is the raw result of a dispatch
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Transport dispatches finalized envelopes
type Transport interface {
	// RoundTrip sends env and returns the response for any HTTP status.
	// The dispatch is bounded by timeout as well as by ctx. Failures are
	// KindTimeout, KindCancelled or KindTransport errors.
	RoundTrip(ctx context.Context, env *request.Envelope, timeout time.Duration) (*Response, error)
}

// HTTPTransport sends envelopes as HTML form posts: urlencoded, or
// multipart when the envelope has attachments.
type HTTPTransport struct {
	httpClient       *http.Client
	method           string
	maxResponseBytes int64
}

// Option configures an HTTPTransport
type Option func(*HTTPTransport)

// WithMethod selects http.MethodPost (default) or http.MethodGet. GET puts
// the fields in the query string; it cannot carry attachments and rejects
// endpoints that already have a query.
func WithMethod(method string) Option {
	return func(t *HTTPTransport) { t.method = strings.ToUpper(method) }
}

// WithMaxResponseBytes bounds the response body size
func WithMaxResponseBytes(n int64) Option {
	return func(t *HTTPTransport) {
		if n > 0 {
			t.maxResponseBytes = n
		}
	}
}

// NewHTTPTransport creates a new HTTPTransport.
//
// Parameters:
//   - httpClient: Optional HTTP client (nil to use http.DefaultClient)
//   - opts: method and response size options
func NewHTTPTransport(httpClient *http.Client, opts ...Option) *HTTPTransport {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	t := &HTTPTransport{
		httpClient:       httpClient,
		method:           http.MethodPost,
		maxResponseBytes: DefaultMaxResponseBytes,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Method returns the HTTP method used
func (t *HTTPTransport) Method() string {
	return t.method
}

// RoundTrip implements Transport
func (t *HTTPTransport) RoundTrip(ctx context.Context, env *request.Envelope, timeout time.Duration) (*Response, error) {
	if env == nil {
		return nil, apierror.New(apierror.KindConfig, "nil envelope")
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := t.newRequest(ctx, env)
	if err != nil {
		return nil, err
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, classify(ctx, err, "HTTP request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxResponseBytes+1))
	if err != nil {
		return nil, classify(ctx, err, "failed to read response body")
	}
	if int64(len(body)) > t.maxResponseBytes {
		return nil, apierror.New(apierror.KindTransport, "response body exceeds %d bytes", t.maxResponseBytes)
	}

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   body,
	}, nil
}

func (t *HTTPTransport) newRequest(ctx context.Context, env *request.Envelope) (*http.Request, error) {
	var (
		req *http.Request
		err error
	)

	switch t.method {
	case http.MethodGet:
		if env.HasAttachments() {
			return nil, apierror.New(apierror.KindConfig, "attachments cannot be sent with GET")
		}
		u, perr := url.Parse(env.Endpoint())
		if perr != nil {
			return nil, apierror.Wrap(apierror.KindConfig, perr, "malformed endpoint")
		}
		// a query already in the endpoint would reach the receiver unsigned
		if u.RawQuery != "" {
			return nil, apierror.New(apierror.KindConfig, "endpoint query %q cannot be combined with GET", u.RawQuery)
		}
		q := make(url.Values, len(env.Fields()))
		for k, v := range env.Fields() {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
		if len(u.String()) > MaxURLLength {
			return nil, apierror.New(apierror.KindConfig, "request URL is %d bytes, GET allows %d", len(u.String()), MaxURLLength)
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)

	case http.MethodPost:
		body, contentType, berr := EncodeBody(env)
		if berr != nil {
			return nil, berr
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, env.Endpoint(), body)
		if err == nil {
			req.Header.Set("Content-Type", contentType)
		}

	default:
		return nil, apierror.New(apierror.KindConfig, "unsupported HTTP method %q", t.method)
	}
	if err != nil {
		return nil, apierror.Wrap(apierror.KindConfig, err, "failed to create HTTP request")
	}

	req.Header.Set(protocol.HeaderToken, env.APIToken())
	req.Header.Set(protocol.HeaderRequestID, env.RequestID())
	req.Header.Set("User-Agent", env.UserAgent())
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// EncodeBody renders the envelope as a form body and returns it with its
// content type
func EncodeBody(env *request.Envelope) (io.Reader, string, error) {
	fields := env.Fields()
	if !env.HasAttachments() {
		form := url.Values{}
		for k, v := range fields {
			form.Set(k, v)
		}
		return strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, fields[k]); err != nil {
			return nil, "", apierror.Wrap(apierror.KindTransport, err, "failed to encode field %q", k)
		}
	}

	for _, att := range env.Attachments() {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, escapeQuotes(att.Field), escapeQuotes(att.Filename)))
		h.Set("Content-Type", att.ContentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", apierror.Wrap(apierror.KindTransport, err, "failed to encode attachment %q", att.Field)
		}
		if _, err := part.Write(att.Content); err != nil {
			return nil, "", apierror.Wrap(apierror.KindTransport, err, "failed to encode attachment %q", att.Field)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", apierror.Wrap(apierror.KindTransport, err, "failed to finish multipart body")
	}
	return &buf, mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// classify maps a dispatch failure to the error taxonomy
func classify(ctx context.Context, err error, msg string) error {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return apierror.Wrap(apierror.KindCancelled, err, "request cancelled")
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apierror.Wrap(apierror.KindTimeout, err, "request timed out")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apierror.Wrap(apierror.KindTimeout, err, "request timed out")
	}
	return apierror.Wrap(apierror.KindTransport, err, "%s", msg)
}

var _ Transport = (*HTTPTransport)(nil)
