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
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// Options describes an HTTPTransport built from configuration
type Options struct {
	// Method is POST or GET; empty means POST
	Method string
	// MaxResponseBytes bounds response bodies; zero means the default
	MaxResponseBytes int64
	// ProxyURL routes requests through an HTTP proxy when set
	ProxyURL string
	// DialTimeout bounds connection setup
	DialTimeout time.Duration
	// InsecureSkipVerify disables TLS certificate checks. Test use only.
	InsecureSkipVerify bool
}

// New builds an HTTPTransport with its own http.Client.
//
// Example:
//
//	t, err := transport.New(transport.Options{
//	    Method:      http.MethodPost,
//	    DialTimeout: 5 * time.Second,
//	})
//	if err != nil {
//	    return err
//	}
//	c := client.New(sess, client.WithTransport(t))
func New(o Options) (*HTTPTransport, error) {
	base := http.DefaultTransport.(*http.Transport).Clone()

	if o.DialTimeout > 0 {
		base.DialContext = (&net.Dialer{Timeout: o.DialTimeout, KeepAlive: 30 * time.Second}).DialContext
	}
	if o.ProxyURL != "" {
		proxy, err := url.Parse(o.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		base.Proxy = http.ProxyURL(proxy)
	}
	if o.InsecureSkipVerify {
		base.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	var opts []Option
	if o.Method != "" {
		opts = append(opts, WithMethod(o.Method))
	}
	if o.MaxResponseBytes > 0 {
		opts = append(opts, WithMaxResponseBytes(o.MaxResponseBytes))
	}

	t := NewHTTPTransport(&http.Client{Transport: base}, opts...)
	if t.method != http.MethodPost && t.method != http.MethodGet {
		return nil, fmt.Errorf("unsupported HTTP method %q", o.Method)
	}
	return t, nil
}
