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

package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sage-x-project/sage-www-go/pkg/apierror"
	"github.com/sage-x-project/sage-www-go/pkg/clock"
)

func TestObserveCall(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveCall("echo", nil, 10*time.Millisecond)
	m.ObserveCall("echo", nil, 20*time.Millisecond)
	m.ObserveCall("echo", apierror.New(apierror.KindTimeout, "slow"), time.Second)
	m.ObserveCall("", apierror.Remote(404, "not found"), time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.calls.WithLabelValues("echo", "success", "0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("echo", "timeout", "205")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("none", "remote", "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.callDuration))
}

func TestObserveVerification(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveVerification(0)
	m.ObserveVerification(110)
	m.ObserveVerification(110)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.verifications.WithLabelValues("0")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.verifications.WithLabelValues("110")))
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCall("echo", nil, time.Second)
		m.ObserveVerification(0)
	})
}

func TestRegisterClock(t *testing.T) {
	reg := prometheus.NewRegistry()
	ntpClock := clock.NewNTP("time.test", time.Hour,
		clock.WithQueryFunc(func(string) (time.Duration, error) { return 1500 * time.Millisecond, nil }),
		clock.WithBase(func() time.Time { return time.Unix(1700000000, 0) }),
	)
	require.NoError(t, RegisterClock(reg, ntpClock.Health))

	expected := `
# HELP sagewww_clock_healthy 1 if the last NTP sync succeeded, otherwise 0.
# TYPE sagewww_clock_healthy gauge
sagewww_clock_healthy 1
# HELP sagewww_clock_offset_seconds Positive means local time is behind NTP time.
# TYPE sagewww_clock_offset_seconds gauge
sagewww_clock_offset_seconds 1.5
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"sagewww_clock_healthy", "sagewww_clock_offset_seconds")
	assert.NoError(t, err)
}

func TestRegisterClock_Unhealthy(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterClock(reg, func() (bool, time.Duration, time.Time, error) {
		return false, 0, time.Unix(0, 0), errors.New("unreachable")
	}))

	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "sagewww_clock_healthy" {
			assert.Equal(t, 0.0, f.GetMetric()[0].GetGauge().GetValue())
			return
		}
	}
	t.Fatal("sagewww_clock_healthy not gathered")
}
