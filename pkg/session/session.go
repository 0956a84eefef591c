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

package session

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	sagewww "github.com/sage-x-project/sage-www-go"
	"github.com/sage-x-project/sage-www-go/pkg/apierror"
	"github.com/sage-x-project/sage-www-go/pkg/clock"
)

// Config holds the immutable connection settings of a Session
type Config struct {
	// Endpoint is the absolute http or https URL of the API
	Endpoint string
	// SecretKey signs requests; it is never transmitted
	SecretKey string
	// APIToken identifies the caller and is sent with every request
	APIToken string
	// Timeout bounds a single dispatch
	Timeout time.Duration
	// Window is the accepted distance between request and server time
	Window time.Duration
	// Profile optionally names the API profile on the server
	Profile string
}

// Session is the configuration and bookkeeping unit of the connector.
//
// Endpoint, secret, timeout, window and profile never change after
// construction and may be read from any goroutine. The API token can be
// replaced with RotateToken. The trace log and the last-error snapshot are
// updated by every call; with concurrent calls the snapshot reflects
// whichever call finished last, so callers should use the error returned
// by the call instead.
type Session struct {
	endpoint  *url.URL
	secretKey string
	timeout   time.Duration
	window    time.Duration
	profile   string
	userAgent string
	clock     clock.Clock
	logger    *zap.Logger

	tokenMu  sync.RWMutex
	apiToken string

	logMu sync.Mutex
	log   []string

	errMu       sync.Mutex
	lastErrCode int
	lastErrMsg  string
}

// Option configures a Session
type Option func(*Session)

// WithProfile sets the API profile name
func WithProfile(profile string) Option {
	return func(s *Session) { s.profile = profile }
}

// WithClock sets the time source for request timestamps
func WithClock(c clock.Clock) Option {
	return func(s *Session) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger mirrors the trace log into logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithUserAgent overrides the User-Agent header
func WithUserAgent(ua string) Option {
	return func(s *Session) { s.userAgent = ua }
}

// Configure creates a Session from positional settings, with timeout and
// window given in seconds.
func Configure(endpoint, secretKey, apiToken string, timeoutSeconds, windowSeconds int, opts ...Option) (*Session, error) {
	return New(Config{
		Endpoint:  endpoint,
		SecretKey: secretKey,
		APIToken:  apiToken,
		Timeout:   time.Duration(timeoutSeconds) * time.Second,
		Window:    time.Duration(windowSeconds) * time.Second,
	}, opts...)
}

// New validates cfg and creates a Session. Failures are ConfigError.
func New(cfg Config, opts ...Option) (*Session, error) {
	u, err := parseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	if cfg.SecretKey == "" {
		return nil, apierror.New(apierror.KindConfig, "secret key is required")
	}
	if cfg.APIToken == "" {
		return nil, apierror.New(apierror.KindConfig, "api token is required")
	}
	if cfg.Timeout <= 0 {
		return nil, apierror.New(apierror.KindConfig, "timeout must be positive, got %s", cfg.Timeout)
	}
	if cfg.Window <= 0 {
		return nil, apierror.New(apierror.KindConfig, "timestamp window must be positive, got %s", cfg.Window)
	}
	// timestamps are whole seconds, so is the window
	if cfg.Window%time.Second != 0 {
		return nil, apierror.New(apierror.KindConfig, "timestamp window must be whole seconds, got %s", cfg.Window)
	}

	s := &Session{
		endpoint:  u,
		secretKey: cfg.SecretKey,
		apiToken:  cfg.APIToken,
		timeout:   cfg.Timeout,
		window:    cfg.Window,
		profile:   cfg.Profile,
		userAgent: sagewww.UserAgent(),
		clock:     clock.NewSystem(),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("endpoint", u.String()))
	return s, nil
}

func parseEndpoint(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, apierror.New(apierror.KindConfig, "endpoint is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, apierror.Wrap(apierror.KindConfig, err, "malformed endpoint")
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, apierror.New(apierror.KindConfig, "endpoint %q is not an absolute URL", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, apierror.New(apierror.KindConfig, "endpoint scheme %q is not http or https", u.Scheme)
	}
	return u, nil
}

// Endpoint returns the API address
func (s *Session) Endpoint() string { return s.endpoint.String() }

// SecretKey returns the signing secret
func (s *Session) SecretKey() string { return s.secretKey }

// Timeout returns the dispatch timeout
func (s *Session) Timeout() time.Duration { return s.timeout }

// Window returns the timestamp window
func (s *Session) Window() time.Duration { return s.window }

// Profile returns the API profile name, possibly empty
func (s *Session) Profile() string { return s.profile }

// UserAgent returns the User-Agent header value
func (s *Session) UserAgent() string { return s.userAgent }

// Logger returns the structured logger
func (s *Session) Logger() *zap.Logger { return s.logger }

// Clock returns the session's time source
func (s *Session) Clock() clock.Clock { return s.clock }

// Now returns the current time from the session clock
func (s *Session) Now() time.Time { return s.clock.Now() }

// APIToken returns the current API token
func (s *Session) APIToken() string {
	s.tokenMu.RLock()
	defer s.tokenMu.RUnlock()
	return s.apiToken
}

// RotateToken replaces the API token, for example with one issued by a
// session-creation command. Calls already signed keep the old token.
func (s *Session) RotateToken(token string) error {
	if token == "" {
		err := apierror.New(apierror.KindConfig, "api token cannot be empty")
		s.RecordError(err)
		return err
	}
	s.tokenMu.Lock()
	s.apiToken = token
	s.tokenMu.Unlock()
	s.RecordLog("API token rotated")
	return nil
}

// RecordLog appends entry to the trace log
func (s *Session) RecordLog(entry string) {
	s.logMu.Lock()
	s.log = append(s.log, entry)
	s.logMu.Unlock()
	s.logger.Debug(entry)
}

// RecordLogf appends a formatted entry to the trace log
func (s *Session) RecordLogf(format string, args ...any) {
	s.RecordLog(fmt.Sprintf(format, args...))
}

// Log returns a copy of the trace log in chronological order
func (s *Session) Log() []string {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	out := make([]string, len(s.log))
	copy(out, s.log)
	return out
}

// ClearLog empties the trace log
func (s *Session) ClearLog() {
	s.logMu.Lock()
	s.log = nil
	s.logMu.Unlock()
}

// LastError returns the most recent error. Code 0 and an empty message
// mean no error.
func (s *Session) LastError() (code int, message string) {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.lastErrCode, s.lastErrMsg
}

// SetLastError overwrites the last-error snapshot
func (s *Session) SetLastError(code int, message string) {
	s.errMu.Lock()
	s.lastErrCode = code
	s.lastErrMsg = message
	s.errMu.Unlock()
}

// ResetLastError clears the last-error snapshot
func (s *Session) ResetLastError() {
	s.SetLastError(apierror.CodeNone, "")
}

// RecordError sets the last-error snapshot from err and logs it. It
// returns err as an *apierror.Error.
func (s *Session) RecordError(err error) *apierror.Error {
	if err == nil {
		return nil
	}
	apiErr := apierror.As(err)
	s.SetLastError(apiErr.Code, apiErr.Message)
	s.RecordLogf("Error %d: %s", apiErr.Code, apiErr.Message)
	s.logger.Warn("call failed",
		zap.String("kind", apiErr.Kind.String()),
		zap.Int("code", apiErr.Code),
		zap.String("message", apiErr.Message),
	)
	return apiErr
}
