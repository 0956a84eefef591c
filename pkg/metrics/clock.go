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
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HealthFunc reports clock sync state, as clock.NTP.Health does
type HealthFunc func() (healthy bool, offset time.Duration, lastSync time.Time, lastError error)

type clockCollector struct {
	health HealthFunc

	offsetSeconds *prometheus.Desc
	lastSyncUnix  *prometheus.Desc
	healthy       *prometheus.Desc
}

func (c *clockCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.offsetSeconds
	ch <- c.lastSyncUnix
	ch <- c.healthy
}

func (c *clockCollector) Collect(ch chan<- prometheus.Metric) {
	ok, offset, lastSync, _ := c.health()
	ch <- prometheus.MustNewConstMetric(c.offsetSeconds, prometheus.GaugeValue, offset.Seconds())
	ch <- prometheus.MustNewConstMetric(c.lastSyncUnix, prometheus.GaugeValue, float64(lastSync.Unix()))
	var healthy float64
	if ok {
		healthy = 1
	}
	ch <- prometheus.MustNewConstMetric(c.healthy, prometheus.GaugeValue, healthy)
}

// RegisterClock registers collectors for the request clock's NTP offset.
// A large offset means signed timestamps drift toward the window edge.
func RegisterClock(reg prometheus.Registerer, health HealthFunc) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return reg.Register(&clockCollector{
		health: health,
		offsetSeconds: prometheus.NewDesc(
			namespace+"_clock_offset_seconds",
			"Positive means local time is behind NTP time.",
			nil, nil,
		),
		lastSyncUnix: prometheus.NewDesc(
			namespace+"_clock_last_sync_unix",
			"Last NTP sync attempt as a Unix timestamp.",
			nil, nil,
		),
		healthy: prometheus.NewDesc(
			namespace+"_clock_healthy",
			"1 if the last NTP sync succeeded, otherwise 0.",
			nil, nil,
		),
	})
}
