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

package client

import (
	"context"
	"crypto/hmac"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/sage-x-project/sage-www-go/pkg/apierror"
	"github.com/sage-x-project/sage-www-go/pkg/metrics"
	"github.com/sage-x-project/sage-www-go/pkg/parser"
	"github.com/sage-x-project/sage-www-go/pkg/protocol"
	"github.com/sage-x-project/sage-www-go/pkg/request"
	"github.com/sage-x-project/sage-www-go/pkg/session"
	"github.com/sage-x-project/sage-www-go/pkg/signer"
	"github.com/sage-x-project/sage-www-go/pkg/transport"
	"github.com/sage-x-project/sage-www-go/pkg/verifier"
)

// CallOptions asks the server to authenticate its response
type CallOptions struct {
	// ReturnHash requires a www-hash over the response fields
	ReturnHash bool
	// ReturnTimestamp requires a www-timestamp inside the session window
	ReturnTimestamp bool
}

// Result is the outcome of a successful call. Fields is nil when the call
// asked for a non-JSON return type; Body then holds the response as sent.
type Result struct {
	Fields    map[string]any
	Body      []byte
	Status    int
	RequestID string
	State     State
	Trace     []State
	Envelope  *request.Envelope
	Duration  time.Duration
}

// String returns a string field of the result
func (r *Result) String(name string) (string, bool) {
	v, ok := r.Fields[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Client dispatches assembled requests for a session
type Client struct {
	sess      *session.Session
	transport transport.Transport
	parser    parser.Parser
	verifier  verifier.Verifier
	signer    signer.Signer
	metrics   *metrics.Metrics
	logger    *zap.Logger
	selfCheck bool
}

// Option configures a Client
type Option func(*Client)

// WithTransport replaces the HTTP transport
func WithTransport(t transport.Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithParser replaces the JSON body parser
func WithParser(p parser.Parser) Option {
	return func(c *Client) { c.parser = p }
}

// WithVerifier replaces the verifier used for self-checks
func WithVerifier(v verifier.Verifier) Option {
	return func(c *Client) { c.verifier = v }
}

// WithMetrics records calls into m
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger overrides the session's logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithSelfCheck verifies every envelope before dispatch
func WithSelfCheck(on bool) Option {
	return func(c *Client) { c.selfCheck = on }
}

// New creates a Client for sess
func New(sess *session.Session, opts ...Option) *Client {
	c := &Client{
		sess:      sess,
		transport: transport.NewHTTPTransport(nil),
		parser:    parser.NewJSONParser(),
		signer:    signer.NewDefaultSigner(),
		logger:    zap.NewNop(),
	}
	if sess != nil {
		c.logger = sess.Logger()
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.verifier == nil {
		c.verifier = verifier.NewDefaultVerifier(c.signer)
	}
	return c
}

// Session returns the client's session
func (c *Client) Session() *session.Session {
	return c.sess
}

// NewAssembler returns an Assembler bound to the client's session
func (c *Client) NewAssembler() *request.Assembler {
	return request.NewAssembler(c.sess).WithSigner(c.signer)
}

// Call runs one request through Unsent, Assembling, Signed and Dispatched
// to Succeeded or Failed. The session's last error is reset at the start
// and set on failure; the error is also returned directly.
func (c *Client) Call(ctx context.Context, asm *request.Assembler, opts CallOptions) (*Result, error) {
	start := time.Now()
	cl := newCall()

	if c.sess == nil {
		return nil, c.failed(cl, "", "", start, apierror.New(apierror.KindConfig, "client has no configured session"))
	}
	c.sess.ResetLastError()

	if asm == nil {
		return nil, c.failed(cl, "", "", start, apierror.New(apierror.KindConfig, "nil request assembler"))
	}
	if asm.Session() != c.sess {
		return nil, c.failed(cl, asm.Command(), "", start, apierror.New(apierror.KindConfig, "assembler is bound to a different session"))
	}
	command := asm.Command()
	if err := ctx.Err(); err != nil {
		return nil, c.failed(cl, command, "", start, contextError(err))
	}

	// Assembling
	cl.advance()
	raw := asm.ReturnType() != protocol.DefaultReturnType
	if raw && (opts.ReturnHash || opts.ReturnTimestamp) {
		return nil, c.failed(cl, command, "", start, apierror.New(apierror.KindConfig,
			"response validation needs the %s return type, got %q", protocol.DefaultReturnType, asm.ReturnType()))
	}
	asm.SetReturnHash(opts.ReturnHash)
	asm.SetReturnTimestamp(opts.ReturnTimestamp)
	env, err := asm.Build()
	if err != nil {
		// the assembler has already recorded err on the session
		return nil, c.finish(cl, command, "", start, err, false)
	}

	// Signed
	cl.advance()
	c.sess.RecordLogf("Request %s signed at timestamp %d", env.RequestID(), env.Timestamp())
	if c.selfCheck {
		if err := env.SelfCheck(c.verifier, c.sess.SecretKey(), c.sess.Now(), c.sess.Window()); err != nil {
			return nil, c.failed(cl, command, env.RequestID(), start, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, c.failed(cl, command, env.RequestID(), start, contextError(err))
	}

	// Dispatched
	cl.advance()
	c.sess.RecordLogf("Sending request %s to %s", env.RequestID(), env.Endpoint())
	resp, err := c.transport.RoundTrip(ctx, env, c.sess.Timeout())
	if err != nil {
		return nil, c.failed(cl, command, env.RequestID(), start, err)
	}
	c.sess.RecordLogf("Received HTTP %d with %d bytes", resp.Status, len(resp.Body))

	var fields map[string]any
	if raw {
		if err := c.interpretRaw(resp); err != nil {
			return nil, c.failed(cl, command, env.RequestID(), start, err)
		}
	} else {
		fields, err = c.interpret(resp)
		if err != nil {
			return nil, c.failed(cl, command, env.RequestID(), start, err)
		}

		if err := ValidateResponse(c.signer, fields, opts, env.APIToken(), c.sess.SecretKey(), c.sess.Now(), c.sess.Window()); err != nil {
			return nil, c.failed(cl, command, env.RequestID(), start, err)
		}

		// only a session-creation answer may replace the credential
		if tok, ok := fields[protocol.FieldToken].(string); ok && tok != "" && command == protocol.CommandSession {
			if err := c.sess.RotateToken(tok); err != nil {
				return nil, c.failed(cl, command, env.RequestID(), start, err)
			}
			c.sess.RecordLogf("Session token replaced by %s response", command)
		}
	}

	// Succeeded
	cl.advance()
	d := time.Since(start)
	c.sess.RecordLogf("Request %s succeeded in %s", env.RequestID(), d)
	c.metrics.ObserveCall(command, nil, d)

	return &Result{
		Fields:    fields,
		Body:      resp.Body,
		Status:    resp.Status,
		RequestID: env.RequestID(),
		State:     cl.state,
		Trace:     cl.trace,
		Envelope:  env,
		Duration:  d,
	}, nil
}

// CreateSession runs the session-creation command. A www-token in its
// response replaces the session's API token; other commands never rotate
// the token.
func (c *Client) CreateSession(ctx context.Context, opts CallOptions) (*Result, error) {
	return c.command(ctx, protocol.CommandSession, opts)
}

// ValidateSession asks the server whether the current token is valid
func (c *Client) ValidateSession(ctx context.Context, opts CallOptions) (*Result, error) {
	return c.command(ctx, protocol.CommandValidate, opts)
}

// DestroySession asks the server to invalidate the current token
func (c *Client) DestroySession(ctx context.Context, opts CallOptions) (*Result, error) {
	return c.command(ctx, protocol.CommandDestroy, opts)
}

func (c *Client) command(ctx context.Context, name string, opts CallOptions) (*Result, error) {
	asm := c.NewAssembler()
	if err := asm.SetCommand(name); err != nil {
		return nil, err
	}
	return c.Call(ctx, asm, opts)
}

// interpret parses the body and turns server error bodies into errors
func (c *Client) interpret(resp *transport.Response) (map[string]any, error) {
	fields, err := c.parser.Parse(resp.Body)
	if err != nil {
		if !isSuccess(resp.Status) {
			return nil, apierror.Wrap(apierror.KindTransport, err, "HTTP %d %s", resp.Status, http.StatusText(resp.Status))
		}
		return nil, err
	}

	if msg, failed := remoteError(fields); failed {
		code := remoteCode(fields, resp.Status)
		return nil, classifyRemote(code, msg)
	}

	if !isSuccess(resp.Status) {
		return nil, apierror.New(apierror.KindTransport, "HTTP %d %s", resp.Status, http.StatusText(resp.Status))
	}
	return fields, nil
}

// interpretRaw handles a response in a non-JSON return type. Error
// bodies are still JSON.
func (c *Client) interpretRaw(resp *transport.Response) error {
	if isSuccess(resp.Status) {
		return nil
	}
	_, err := c.interpret(resp)
	if err == nil {
		err = apierror.New(apierror.KindTransport, "HTTP %d %s", resp.Status, http.StatusText(resp.Status))
	}
	return err
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func remoteError(fields map[string]any) (string, bool) {
	raw, ok := fields[protocol.FieldError]
	if !ok || raw == nil {
		return "", false
	}
	switch v := raw.(type) {
	case string:
		return v, v != ""
	case bool:
		return "remote error", v
	default:
		return fmt.Sprint(v), true
	}
}

func remoteCode(fields map[string]any, status int) int {
	switch v := fields[protocol.FieldErrorCode].(type) {
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	case interface{ Int64() (int64, error) }:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	case float64:
		return int(v)
	}
	return status
}

// classifyRemote keeps the server's code but surfaces authentication
// failures under their own kinds
func classifyRemote(code int, msg string) *apierror.Error {
	switch {
	case protocol.IsTimestampFailure(code):
		return apierror.New(apierror.KindStaleTimestamp, "%s", msg).WithCode(code)
	case protocol.IsHashFailure(code):
		return apierror.New(apierror.KindSignature, "%s", msg).WithCode(code)
	default:
		return apierror.Remote(code, msg)
	}
}

// failed moves the call to StateFailed, records err on the session and
// returns it as a *CallError
func (c *Client) failed(cl *call, command, requestID string, start time.Time, err error) error {
	return c.finish(cl, command, requestID, start, err, true)
}

func (c *Client) finish(cl *call, command, requestID string, start time.Time, err error, record bool) error {
	reached := cl.state
	cl.fail()

	apiErr := apierror.As(err)
	if c.sess != nil {
		if record {
			c.sess.RecordError(apiErr)
		}
		c.sess.RecordLogf("Call failed in state %s", reached)
	}
	c.logger.Debug("call failed",
		zap.String("request_id", requestID),
		zap.String("state", reached.String()),
		zap.Error(apiErr),
	)
	c.metrics.ObserveCall(command, apiErr, time.Since(start))

	return &CallError{
		Err:       apiErr,
		Reached:   reached,
		Trace:     cl.trace,
		RequestID: requestID,
	}
}

func contextError(err error) *apierror.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apierror.Wrap(apierror.KindTimeout, err, "request timed out")
	}
	return apierror.Wrap(apierror.KindCancelled, err, "request cancelled")
}

// ValidateResponse checks the authentication the call asked the server to
// attach. With ReturnTimestamp the response timestamp must be inside the
// window; with ReturnHash www-hash must sign the other fields under the
// response timestamp, or 0 when there is none.
func ValidateResponse(s signer.Signer, fields map[string]any, opts CallOptions, apiToken, secretKey string, now time.Time, window time.Duration) error {
	ts, hasTS := protocol.ResponseTimestamp(fields)

	if opts.ReturnTimestamp {
		if !hasTS {
			return apierror.New(apierror.KindValidationMissing, "response timestamp missing")
		}
		if err := verifier.CheckWindow(ts, now, window); err != nil {
			return err
		}
	}

	if opts.ReturnHash {
		got, _ := fields[protocol.FieldHash].(string)
		if got == "" {
			return apierror.New(apierror.KindValidationMissing, "response hash missing")
		}
		if !hasTS {
			ts = 0
		}
		want, err := signer.SignResponse(s, apiToken, ts, secretKey, fields)
		if err != nil {
			return apierror.Wrap(apierror.KindParse, err, "cannot canonicalize response")
		}
		if !hmac.Equal([]byte(want), []byte(got)) {
			return apierror.New(apierror.KindSignature, "response hash mismatch")
		}
	}
	return nil
}
