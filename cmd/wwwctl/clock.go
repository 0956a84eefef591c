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

package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/sage-x-project/sage-www-go/pkg/clock"
	"github.com/sage-x-project/sage-www-go/pkg/metrics"
)

// ntpQuery replaces the network query in tests
var ntpQuery clock.QueryFunc

func newClockCmd() *cobra.Command {
	var (
		server   string
		textfile string
	)

	cmd := &cobra.Command{
		Use:   "clock",
		Short: "Compare the local clock with an NTP server",
		Long: `Measure the local clock offset against an NTP server. Requests signed with
a clock that is off by more than the server's window are rejected.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []clock.NTPOption
			if ntpQuery != nil {
				opts = append(opts, clock.WithQueryFunc(ntpQuery))
			}
			ntpClock := clock.NewNTP(server, clock.DefaultSyncInterval, opts...)

			if textfile != "" {
				reg := prometheus.NewRegistry()
				if err := metrics.RegisterClock(reg, ntpClock.Health); err != nil {
					return err
				}
				if err := prometheus.WriteToTextfile(textfile, reg); err != nil {
					return err
				}
			}

			healthy, offset, lastSync, lastErr := ntpClock.Health()
			if !healthy {
				return lastErr
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "server:    %s\n", server)
			fmt.Fprintf(out, "offset:    %s\n", offset)
			fmt.Fprintf(out, "synced at: %s\n", lastSync.UTC().Format("2006-01-02T15:04:05Z"))
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "ntp-server", clock.DefaultNTPServer, "NTP server to query")
	cmd.Flags().StringVar(&textfile, "metrics-file", "", "write clock metrics in the Prometheus text format")
	return cmd
}
