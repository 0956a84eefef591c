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

// Package metrics exposes Prometheus collectors for calls made through the
// client and requests checked by the server middleware.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sage-x-project/sage-www-go/pkg/apierror"
)

const namespace = "sagewww"

// Metrics groups the connector's collectors
type Metrics struct {
	calls         *prometheus.CounterVec
	callDuration  *prometheus.HistogramVec
	verifications *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "calls_total",
				Help:      "Total API calls by command and outcome.",
			},
			[]string{"command", "outcome", "code"},
		),
		callDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "client",
				Name:      "call_duration_seconds",
				Help:      "API call duration in seconds, from assembly to parsed result.",
				Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"command"},
		),
		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "verifications_total",
				Help:      "Signed requests checked by the middleware, by result code (0 = accepted).",
			},
			[]string{"code"},
		),
	}

	for _, c := range []prometheus.Collector{m.calls, m.callDuration, m.verifications} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveCall records one finished call. err is nil for success.
func (m *Metrics) ObserveCall(command string, err error, d time.Duration) {
	if m == nil {
		return
	}
	if command == "" {
		command = "none"
	}
	outcome, code := "success", "0"
	if err != nil {
		apiErr := apierror.As(err)
		outcome = apiErr.Kind.String()
		code = strconv.Itoa(apiErr.Code)
	}
	m.calls.WithLabelValues(command, outcome, code).Inc()
	m.callDuration.WithLabelValues(command).Observe(d.Seconds())
}

// ObserveVerification records a middleware decision; code 0 is accepted
func (m *Metrics) ObserveVerification(code int) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(strconv.Itoa(code)).Inc()
}
