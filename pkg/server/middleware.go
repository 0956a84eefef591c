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
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sage-x-project/sage-www-go/pkg/apierror"
	"github.com/sage-x-project/sage-www-go/pkg/clock"
	"github.com/sage-x-project/sage-www-go/pkg/crypt"
	"github.com/sage-x-project/sage-www-go/pkg/metrics"
	"github.com/sage-x-project/sage-www-go/pkg/protocol"
	"github.com/sage-x-project/sage-www-go/pkg/replay"
	"github.com/sage-x-project/sage-www-go/pkg/request"
	"github.com/sage-x-project/sage-www-go/pkg/verifier"
)

const (
	// DefaultWindow is the accepted request age when none is configured
	DefaultWindow = 10 * time.Second

	// DefaultMaxMemory bounds multipart parts held in memory
	DefaultMaxMemory int64 = 32 << 20
)

// ErrorHandler handles verification errors
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// RejectError describes why a request was refused. Code is one of the
// protocol.ServerCode values.
type RejectError struct {
	Status  int
	Code    int
	Message string
	Err     error
}

func (e *RejectError) Error() string {
	return fmt.Sprintf("%s (%d)", e.Message, e.Code)
}

func (e *RejectError) Unwrap() error {
	return e.Err
}

func reject(code int, err error, format string, args ...any) *RejectError {
	status := http.StatusForbidden
	if code == protocol.ServerCodeInternal {
		status = http.StatusInternalServerError
	}
	return &RejectError{Status: status, Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// AuthMiddleware verifies signed requests before they reach a handler
type AuthMiddleware struct {
	resolver     verifier.SecretResolver
	verifier     verifier.Verifier
	clock        clock.Clock
	window       time.Duration
	guard        replay.Guard
	maxMemory    int64
	errorHandler ErrorHandler
	optional     bool
	logger       *zap.Logger
	metrics      *metrics.Metrics
}

// Option configures an AuthMiddleware
type Option func(*AuthMiddleware)

// WithWindow sets the accepted timestamp window
func WithWindow(d time.Duration) Option {
	return func(m *AuthMiddleware) {
		if d > 0 {
			m.window = d
		}
	}
}

// WithClock sets the clock requests are checked against
func WithClock(c clock.Clock) Option {
	return func(m *AuthMiddleware) { m.clock = c }
}

// WithReplayGuard rejects a signature seen before within twice the window
func WithReplayGuard(g replay.Guard) Option {
	return func(m *AuthMiddleware) { m.guard = g }
}

// WithVerifier replaces the signature verifier
func WithVerifier(v verifier.Verifier) Option {
	return func(m *AuthMiddleware) { m.verifier = v }
}

// WithMaxMemory bounds multipart parsing memory
func WithMaxMemory(n int64) Option {
	return func(m *AuthMiddleware) { m.maxMemory = n }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(m *AuthMiddleware) { m.logger = l }
}

// WithMetrics records every decision in m
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *AuthMiddleware) { m.metrics = mt }
}

// NewAuthMiddleware creates a new authentication middleware that looks up
// secrets with resolver
func NewAuthMiddleware(resolver verifier.SecretResolver, opts ...Option) *AuthMiddleware {
	m := &AuthMiddleware{
		resolver:     resolver,
		verifier:     verifier.NewDefaultVerifier(nil),
		clock:        clock.NewSystem(),
		window:       DefaultWindow,
		maxMemory:    DefaultMaxMemory,
		errorHandler: defaultErrorHandler,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetErrorHandler sets a custom error handler
func (m *AuthMiddleware) SetErrorHandler(handler ErrorHandler) {
	m.errorHandler = handler
}

// SetOptional sets whether verification is optional.
// If true, requests carrying neither a token nor a hash pass through
// without a VerifiedRequest in their context.
func (m *AuthMiddleware) SetOptional(optional bool) {
	m.optional = optional
}

// Window returns the accepted timestamp window
func (m *AuthMiddleware) Window() time.Duration {
	return m.window
}

// Wrap wraps an HTTP handler with request authentication
func (m *AuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip verification for OPTIONS requests (CORS preflight)
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		vr, err := m.Authenticate(r)
		if err != nil {
			m.errorHandler(w, r, err)
			return
		}
		if vr != nil {
			r = r.WithContext(WithVerifiedRequest(r.Context(), vr))
		}
		next.ServeHTTP(w, r)
	})
}

// Authenticate verifies r. It returns nil, nil for an unsigned request
// when verification is optional; otherwise failures are *RejectError.
func (m *AuthMiddleware) Authenticate(r *http.Request) (*VerifiedRequest, error) {
	vr, rej := m.authenticate(r)
	if rej != nil {
		m.metrics.ObserveVerification(rej.Code)
		m.logger.Info("request rejected",
			zap.String("request_id", r.Header.Get(protocol.HeaderRequestID)),
			zap.Int("code", rej.Code),
			zap.String("reason", rej.Message),
		)
		return nil, rej
	}
	if vr != nil {
		m.metrics.ObserveVerification(0)
		m.logger.Debug("request verified",
			zap.String("request_id", vr.RequestID),
			zap.String("profile", vr.Profile),
			zap.String("command", vr.Command),
		)
	}
	return vr, nil
}

func (m *AuthMiddleware) authenticate(r *http.Request) (*VerifiedRequest, *RejectError) {
	ctx := r.Context()

	fields, files, err := m.readForm(r)
	if err != nil {
		return nil, &RejectError{Status: http.StatusBadRequest, Code: protocol.ServerCodeInternal, Message: "malformed request body", Err: err}
	}

	apiToken := r.Header.Get(protocol.HeaderToken)
	hash := fields[protocol.FieldHash]
	if m.optional && apiToken == "" && hash == "" {
		return nil, nil
	}

	rawTS, ok := fields[protocol.FieldTimestamp]
	if !ok || rawTS == "" {
		return nil, reject(protocol.ServerCodeTimestampMissing, nil, "timestamp missing")
	}
	ts, err := strconv.ParseInt(rawTS, 10, 64)
	if err != nil {
		return nil, reject(protocol.ServerCodeTimestampMissing, err, "timestamp malformed")
	}
	if hash == "" {
		return nil, reject(protocol.ServerCodeHashMissing, nil, "hash missing")
	}
	if apiToken == "" {
		return nil, reject(protocol.ServerCodeTokenInvalid, nil, "api token missing")
	}

	profile := fields[protocol.FieldProfile]
	secret, err := m.resolver.ResolveSecret(ctx, profile, apiToken)
	if err != nil {
		switch {
		case errors.Is(err, verifier.ErrProfileNotFound):
			return nil, reject(protocol.ServerCodeProfileNotFound, err, "profile not found")
		case errors.Is(err, verifier.ErrSecretMissing):
			return nil, reject(protocol.ServerCodeSecretMissing, err, "profile has no secret key")
		case errors.Is(err, verifier.ErrTokenInvalid):
			return nil, reject(protocol.ServerCodeTokenInvalid, err, "api token not accepted")
		default:
			return nil, reject(protocol.ServerCodeInternal, err, "secret lookup failed")
		}
	}

	canonical := request.CanonicalPayload(fields, files)
	if err := m.verifier.Verify(hash, apiToken, ts, secret, canonical, m.clock.Now(), m.window); err != nil {
		if apierror.KindOf(err) == apierror.KindStaleTimestamp {
			return nil, reject(protocol.ServerCodeTimestampTooOld, err, "timestamp outside window")
		}
		return nil, reject(protocol.ServerCodeHashInvalid, err, "hash invalid")
	}

	if m.guard != nil {
		seen, err := m.guard.Seen(ctx, hash, replay.TTLFor(m.window))
		if err != nil {
			return nil, reject(protocol.ServerCodeInternal, err, "replay check failed")
		}
		if seen {
			return nil, reject(protocol.ServerCodeReplay, nil, "request already processed")
		}
	}

	vr := &VerifiedRequest{
		Profile:         profile,
		APIToken:        apiToken,
		Command:         fields[protocol.FieldCommand],
		RequestID:       r.Header.Get(protocol.HeaderRequestID),
		Timestamp:       ts,
		Signature:       hash,
		Params:          make(map[string]string),
		Encrypted:       make(map[string]string),
		Files:           files,
		ReturnHash:      fields[protocol.FieldReturnHash] == "1",
		ReturnTimestamp: fields[protocol.FieldReturnTimestamp] == "1",
		ReturnType:      protocol.DefaultReturnType,
		Minify:          fields[protocol.FieldMinify] == "1",
		secret:          secret,
		clock:           m.clock,
	}

	if rt := fields[protocol.FieldReturnType]; rt != "" {
		vr.ReturnType = rt
	}
	if ct, err := strconv.Atoi(fields[protocol.FieldCacheTimeout]); err == nil && ct > 0 {
		vr.CacheTimeout = ct
	}

	var cipher *crypt.ParameterCipher
	for name, value := range fields {
		switch {
		case strings.HasPrefix(name, protocol.CryptPrefix):
			if cipher == nil {
				cipher, err = crypt.NewParameterCipher(secret, ts)
				if err != nil {
					return nil, reject(protocol.ServerCodeDecryptFailed, err, "cannot derive parameter key")
				}
			}
			plain := strings.TrimPrefix(name, protocol.CryptPrefix)
			decrypted, err := cipher.Open(plain, value)
			if err != nil {
				return nil, reject(protocol.ServerCodeDecryptFailed, err, "cannot decrypt parameter %q", plain)
			}
			vr.Encrypted[plain] = decrypted
		case protocol.IsReserved(name):
		default:
			vr.Params[name] = value
		}
	}
	return vr, nil
}

// readForm returns the first value of every body field, and the
// attachments of a multipart body ordered by field
func (m *AuthMiddleware) readForm(r *http.Request) (map[string]string, []request.Attachment, error) {
	var attachments []request.Attachment

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(m.maxMemory); err != nil {
			return nil, nil, err
		}
		fields := r.Form
		if r.Method != http.MethodGet {
			fields = r.PostForm
		}
		for name, headers := range r.MultipartForm.File {
			if len(headers) == 0 {
				continue
			}
			att, err := readAttachment(name, headers[0])
			if err != nil {
				return nil, nil, err
			}
			attachments = append(attachments, att)
		}
		sort.Slice(attachments, func(i, j int) bool { return attachments[i].Field < attachments[j].Field })
		return first(fields), attachments, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, nil, err
	}
	if r.Method == http.MethodGet {
		return first(r.Form), nil, nil
	}
	return first(r.PostForm), nil, nil
}

func readAttachment(field string, fh *multipart.FileHeader) (request.Attachment, error) {
	f, err := fh.Open()
	if err != nil {
		return request.Attachment{}, fmt.Errorf("open attachment %q: %w", field, err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return request.Attachment{}, fmt.Errorf("read attachment %q: %w", field, err)
	}
	sum := sha256.Sum256(content)
	return request.Attachment{
		Field:       field,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Content:     content,
		Digest:      hex.EncodeToString(sum[:]),
	}, nil
}

func first(values map[string][]string) map[string]string {
	out := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

// defaultErrorHandler answers with a protocol error body
func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	var rej *RejectError
	if !errors.As(err, &rej) {
		rej = reject(protocol.ServerCodeInternal, err, "%s", err.Error())
	}
	WriteError(w, rej.Status, rej.Code, rej.Message)
}

type contextKey string

const verifiedRequestKey contextKey = "sagewww-verified-request"

// WithVerifiedRequest stores vr in ctx
func WithVerifiedRequest(ctx context.Context, vr *VerifiedRequest) context.Context {
	return context.WithValue(ctx, verifiedRequestKey, vr)
}

// VerifiedRequestFromContext extracts the verified request from ctx
func VerifiedRequestFromContext(ctx context.Context) (*VerifiedRequest, bool) {
	vr, ok := ctx.Value(verifiedRequestKey).(*VerifiedRequest)
	return vr, ok && vr != nil
}
