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

// Package config loads the wwwctl configuration file.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/sage-x-project/sage-www-go/internal/logging"
	"github.com/sage-x-project/sage-www-go/pkg/session"
	"github.com/sage-x-project/sage-www-go/pkg/transport"
)

// Environment overrides, applied after the file
const (
	EnvEndpoint  = "SAGEWWW_ENDPOINT"
	EnvSecretKey = "SAGEWWW_SECRET_KEY"
	EnvAPIToken  = "SAGEWWW_API_TOKEN"
	EnvProfile   = "SAGEWWW_PROFILE"
	EnvLogLevel  = "SAGEWWW_LOG_LEVEL"
)

var (
	ErrEndpointRequired  = errors.New("config: endpoint is required")
	ErrSecretRequired    = errors.New("config: secret_key is required")
	ErrTokenRequired     = errors.New("config: api_token is required")
	ErrInvalidMethod     = errors.New("config: method must be POST or GET")
	ErrWholeSecondWindow = errors.New("config: timeout and window must be whole seconds of at least 1s")
)

// Config is the resolved client configuration
type Config struct {
	Endpoint  string
	SecretKey string
	APIToken  string
	Profile   string

	Timeout time.Duration
	Window  time.Duration

	Method             string
	ProxyURL           string
	InsecureSkipVerify bool
	MaxResponseBytes   int64

	ReturnHash      bool
	ReturnTimestamp bool

	// NTPServer is queried when the clock is corrected against NTP
	NTPServer string
	// MetricsFile receives call metrics in the Prometheus text format
	MetricsFile string

	Log logging.Config
}

type fileConfig struct {
	Endpoint           string `toml:"endpoint"`
	SecretKey          string `toml:"secret_key"`
	APIToken           string `toml:"api_token"`
	Profile            string `toml:"profile"`
	Timeout            string `toml:"timeout"`
	Window             string `toml:"window"`
	Method             string `toml:"method"`
	Proxy              string `toml:"proxy"`
	InsecureSkipVerify bool   `toml:"insecure_skip_verify"`
	MaxResponseBytes   int64  `toml:"max_response_bytes"`
	ReturnHash         bool   `toml:"return_hash"`
	ReturnTimestamp    bool   `toml:"return_timestamp"`
	NTPServer          string `toml:"ntp_server"`
	MetricsFile        string `toml:"metrics_file"`

	Log struct {
		Level       string `toml:"level"`
		Development bool   `toml:"development"`
		Console     bool   `toml:"console"`
		File        string `toml:"file"`
		MaxSizeMB   int    `toml:"max_size_mb"`
		MaxBackups  int    `toml:"max_backups"`
		MaxAgeDays  int    `toml:"max_age_days"`
		Compress    bool   `toml:"compress"`
	} `toml:"log"`
}

// Default returns the configuration used for anything the file leaves out
func Default() Config {
	return Config{
		Timeout:   10 * time.Second,
		Window:    10 * time.Second,
		Method:    http.MethodPost,
		NTPServer: "pool.ntp.org",
		Log:       logging.DefaultConfig(),
	}
}

// Load reads path, applies environment overrides and validates the result.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("endpoint") {
		cfg.Endpoint = strings.TrimSpace(raw.Endpoint)
	}
	if meta.IsDefined("secret_key") {
		cfg.SecretKey = raw.SecretKey
	}
	if meta.IsDefined("api_token") {
		cfg.APIToken = strings.TrimSpace(raw.APIToken)
	}
	if meta.IsDefined("profile") {
		cfg.Profile = strings.TrimSpace(raw.Profile)
	}

	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if meta.IsDefined("window") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Window))
		if err != nil {
			return fmt.Errorf("parse window: %w", err)
		}
		cfg.Window = d
	}

	if meta.IsDefined("method") {
		cfg.Method = strings.ToUpper(strings.TrimSpace(raw.Method))
	}
	if meta.IsDefined("proxy") {
		cfg.ProxyURL = strings.TrimSpace(raw.Proxy)
	}
	if meta.IsDefined("insecure_skip_verify") {
		cfg.InsecureSkipVerify = raw.InsecureSkipVerify
	}
	if meta.IsDefined("max_response_bytes") {
		cfg.MaxResponseBytes = raw.MaxResponseBytes
	}
	if meta.IsDefined("return_hash") {
		cfg.ReturnHash = raw.ReturnHash
	}
	if meta.IsDefined("return_timestamp") {
		cfg.ReturnTimestamp = raw.ReturnTimestamp
	}
	if meta.IsDefined("ntp_server") {
		cfg.NTPServer = strings.TrimSpace(raw.NTPServer)
	}
	if meta.IsDefined("metrics_file") {
		cfg.MetricsFile = strings.TrimSpace(raw.MetricsFile)
	}

	if meta.IsDefined("log", "level") {
		cfg.Log.Level = raw.Log.Level
	}
	if meta.IsDefined("log", "development") {
		cfg.Log.Development = raw.Log.Development
	}
	if meta.IsDefined("log", "console") {
		cfg.Log.Console = raw.Log.Console
	}
	if meta.IsDefined("log", "file") {
		cfg.Log.File = strings.TrimSpace(raw.Log.File)
	}
	if meta.IsDefined("log", "max_size_mb") {
		cfg.Log.MaxSizeMB = raw.Log.MaxSizeMB
	}
	if meta.IsDefined("log", "max_backups") {
		cfg.Log.MaxBackups = raw.Log.MaxBackups
	}
	if meta.IsDefined("log", "max_age_days") {
		cfg.Log.MaxAgeDays = raw.Log.MaxAgeDays
	}
	if meta.IsDefined("log", "compress") {
		cfg.Log.Compress = raw.Log.Compress
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvEndpoint); ok {
		cfg.Endpoint = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvSecretKey); ok {
		cfg.SecretKey = v
	}
	if v, ok := lookup(EnvAPIToken); ok {
		cfg.APIToken = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvProfile); ok {
		cfg.Profile = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvLogLevel); ok {
		if _, err := logging.ParseLevel(v); err != nil {
			return fmt.Errorf("%s: %w", EnvLogLevel, err)
		}
		cfg.Log.Level = v
	}
	return nil
}

// Validate checks that cfg can configure a session
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return ErrEndpointRequired
	}
	if c.SecretKey == "" {
		return ErrSecretRequired
	}
	if c.APIToken == "" {
		return ErrTokenRequired
	}
	if c.Method != http.MethodPost && c.Method != http.MethodGet {
		return fmt.Errorf("%w, got %q", ErrInvalidMethod, c.Method)
	}
	if !wholeSeconds(c.Timeout) || !wholeSeconds(c.Window) {
		return fmt.Errorf("%w: timeout=%s window=%s", ErrWholeSecondWindow, c.Timeout, c.Window)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func wholeSeconds(d time.Duration) bool {
	return d >= time.Second && d%time.Second == 0
}

// Session builds the session described by c
func (c Config) Session(opts ...session.Option) (*session.Session, error) {
	return session.New(session.Config{
		Endpoint:  c.Endpoint,
		SecretKey: c.SecretKey,
		APIToken:  c.APIToken,
		Timeout:   c.Timeout,
		Window:    c.Window,
		Profile:   c.Profile,
	}, opts...)
}

// Transport builds the HTTP transport described by c
func (c Config) Transport() (*transport.HTTPTransport, error) {
	return transport.New(transport.Options{
		Method:             c.Method,
		MaxResponseBytes:   c.MaxResponseBytes,
		ProxyURL:           c.ProxyURL,
		DialTimeout:        c.Timeout,
		InsecureSkipVerify: c.InsecureSkipVerify,
	})
}

// Redacted returns a copy safe to print
func (c Config) Redacted() Config {
	if c.SecretKey != "" {
		c.SecretKey = "***"
	}
	if n := len(c.APIToken); n > 4 {
		c.APIToken = c.APIToken[:4] + strings.Repeat("*", n-4)
	}
	return c
}

// String implements fmt.Stringer without revealing credentials
func (c Config) String() string {
	r := c.Redacted()
	return "endpoint=" + r.Endpoint +
		" token=" + r.APIToken +
		" profile=" + r.Profile +
		" method=" + r.Method +
		" timeout=" + r.Timeout.String() +
		" window=" + r.Window.String() +
		" return_hash=" + strconv.FormatBool(r.ReturnHash) +
		" return_timestamp=" + strconv.FormatBool(r.ReturnTimestamp)
}
