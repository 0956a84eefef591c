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
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sage-x-project/sage-www-go/internal/config"
	"github.com/sage-x-project/sage-www-go/internal/logging"
	"github.com/sage-x-project/sage-www-go/pkg/client"
	"github.com/sage-x-project/sage-www-go/pkg/clock"
	"github.com/sage-x-project/sage-www-go/pkg/metrics"
	"github.com/sage-x-project/sage-www-go/pkg/request"
	"github.com/sage-x-project/sage-www-go/pkg/session"
)

type callFlags struct {
	configPath      string
	command         string
	params          []string
	encrypted       []string
	files           []string
	returnHash      bool
	returnTimestamp bool
	returnType      string
	cacheTimeout    int
	minify          bool
	useNTP          bool
	showLog         bool
}

func newCallCmd() *cobra.Command {
	var f callFlags

	cmd := &cobra.Command{
		Use:   "call",
		Short: "Send a signed request",
		Long: `Send a signed request to the configured endpoint and print the JSON result.

Credentials come from the config file or from SAGEWWW_ENDPOINT,
SAGEWWW_SECRET_KEY and SAGEWWW_API_TOKEN.`,
		Example: `  wwwctl call --config wwwctl.toml --command movies.search -p title=Alien
  wwwctl call --config wwwctl.toml --command profile.update -e card=4111111111111111
  wwwctl call --config wwwctl.toml --command poster.upload -f poster=./alien.jpg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCall(cmd, f)
		},
	}

	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "path to a TOML config file")
	cmd.Flags().StringVar(&f.command, "command", "", "API command")
	cmd.Flags().StringArrayVarP(&f.params, "param", "p", nil, "plain parameter key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&f.encrypted, "encrypt", "e", nil, "encrypted parameter key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&f.files, "file", "f", nil, "file attachment field=path (repeatable)")
	cmd.Flags().BoolVar(&f.returnHash, "return-hash", false, "require a signed response")
	cmd.Flags().BoolVar(&f.returnTimestamp, "return-timestamp", false, "require a fresh response timestamp")
	cmd.Flags().StringVar(&f.returnType, "return-type", "", "response format other than json; the raw body is printed")
	cmd.Flags().IntVar(&f.cacheTimeout, "cache-timeout", 0, "let the server cache the response for this many seconds")
	cmd.Flags().BoolVar(&f.minify, "minify", false, "ask the server to minify the response")
	cmd.Flags().BoolVar(&f.useNTP, "ntp", false, "timestamp requests with an NTP-corrected clock")
	cmd.Flags().BoolVar(&f.showLog, "show-log", false, "print the session log after the call")
	return cmd
}

func runCall(cmd *cobra.Command, f callFlags) error {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("return-hash") {
		cfg.ReturnHash = f.returnHash
	}
	if cmd.Flags().Changed("return-timestamp") {
		cfg.ReturnTimestamp = f.returnTimestamp
	}

	params, err := parsePairs("param", f.params)
	if err != nil {
		return err
	}
	encrypted, err := parsePairs("encrypt", f.encrypted)
	if err != nil {
		return err
	}
	files, err := parsePairs("file", f.files)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	sessOpts := []session.Option{session.WithLogger(logger)}
	if f.useNTP {
		sessOpts = append(sessOpts, session.WithClock(clock.NewNTP(cfg.NTPServer, clock.DefaultSyncInterval)))
	}
	sess, err := cfg.Session(sessOpts...)
	if err != nil {
		return err
	}
	tr, err := cfg.Transport()
	if err != nil {
		return err
	}

	clientOpts := []client.Option{client.WithTransport(tr), client.WithLogger(logger)}
	var reg *prometheus.Registry
	if cfg.MetricsFile != "" {
		reg = prometheus.NewRegistry()
		m, err := metrics.New(reg)
		if err != nil {
			return err
		}
		clientOpts = append(clientOpts, client.WithMetrics(m))
	}
	c := client.New(sess, clientOpts...)

	shape := func(asm *request.Assembler) error {
		if err := asm.SetReturnType(f.returnType); err != nil {
			return err
		}
		asm.SetMinify(f.minify)
		return asm.SetCacheTimeout(f.cacheTimeout)
	}
	result, callErr := call(cmd, c, f.command, params, encrypted, files, shape, client.CallOptions{
		ReturnHash:      cfg.ReturnHash,
		ReturnTimestamp: cfg.ReturnTimestamp,
	})

	if reg != nil {
		if err := prometheus.WriteToTextfile(cfg.MetricsFile, reg); err != nil {
			logger.Warn("cannot write metrics", zap.String("path", cfg.MetricsFile), zap.Error(err))
		}
	}
	if f.showLog {
		for _, line := range sess.Log() {
			fmt.Fprintln(cmd.ErrOrStderr(), line)
		}
	}
	if callErr != nil {
		code, msg := sess.LastError()
		return fmt.Errorf("%d: %s", code, msg)
	}

	if result.Fields == nil {
		_, err := cmd.OutOrStdout().Write(result.Body)
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result.Fields)
}

func call(cmd *cobra.Command, c *client.Client, command string, params, encrypted, files map[string]string, shape func(*request.Assembler) error, opts client.CallOptions) (*client.Result, error) {
	asm := c.NewAssembler()
	if err := shape(asm); err != nil {
		return nil, err
	}
	if command != "" {
		if err := asm.SetCommand(command); err != nil {
			return nil, err
		}
	}
	for k, v := range params {
		if err := asm.AddParameter(k, v); err != nil {
			return nil, err
		}
	}
	for k, v := range encrypted {
		if err := asm.AddEncryptedParameter(k, v); err != nil {
			return nil, err
		}
	}
	for field, path := range files {
		if err := asm.AddFilePath(field, path); err != nil {
			return nil, err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	return c.Call(ctx, asm, opts)
}
