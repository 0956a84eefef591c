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
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sage-x-project/sage-www-go/internal/logging"
	"github.com/sage-x-project/sage-www-go/pkg/metrics"
	"github.com/sage-x-project/sage-www-go/pkg/protocol"
	"github.com/sage-x-project/sage-www-go/pkg/replay"
	"github.com/sage-x-project/sage-www-go/pkg/server"
	"github.com/sage-x-project/sage-www-go/pkg/verifier"
)

// This example serves a signed API with gin.
//
//	SAGEWWW_SECRET_KEY=s3cr3t go run ./cmd/examples/simple-server
//
// Set REDIS_ADDR to share the replay guard between instances.
func main() {
	logger, err := logging.New(logging.Config{Level: "debug", Development: true, Console: true})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	secret := os.Getenv("SAGEWWW_SECRET_KEY")
	if secret == "" {
		secret = "s3cr3t"
		logger.Warn("SAGEWWW_SECRET_KEY not set, using the demo secret")
	}
	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	window := 10 * time.Second

	guard, closeGuard, err := replayGuard(window, logger)
	if err != nil {
		logger.Fatal("Failed to create replay guard", zap.Error(err))
	}
	defer closeGuard()

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		logger.Fatal("Failed to register metrics", zap.Error(err))
	}

	resolver := verifier.NewStaticResolver(map[string]verifier.Profile{
		verifier.DefaultProfile: {Secret: secret},
	})
	auth := server.NewAuthMiddleware(resolver,
		server.WithWindow(window),
		server.WithReplayGuard(guard),
		server.WithMetrics(m),
		server.WithLogger(logger),
	)

	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	router.POST("/www", auth.Gin(), handle)

	srv := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func handle(c *gin.Context) {
	vr, ok := server.GinVerifiedRequest(c)
	if !ok {
		server.WriteError(c.Writer, http.StatusForbidden, protocol.ServerCodeTokenInvalid, "unauthenticated")
		return
	}

	switch vr.Command {
	case "echo":
		fields := map[string]any{protocol.FieldResult: "ok"}
		for k, v := range vr.Params {
			fields[k] = v
		}
		_ = server.Respond(c.Writer, c.Request, fields)
	case "files":
		files := make([]map[string]any, 0, len(vr.Files))
		for _, f := range vr.Files {
			files = append(files, map[string]any{
				"field":  f.Field,
				"name":   f.Filename,
				"type":   f.ContentType,
				"size":   len(f.Content),
				"sha256": f.Digest,
			})
		}
		_ = server.Respond(c.Writer, c.Request, map[string]any{protocol.FieldResult: "ok", "files": files})
	default:
		server.WriteError(c.Writer, http.StatusNotFound, protocol.ServerCodeCommandMissing, "unknown command "+vr.Command)
	}
}

func replayGuard(window time.Duration, logger *zap.Logger) (replay.Guard, func(), error) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		guard, client, err := replay.NewRedisGuardFromAddr(context.Background(), addr, os.Getenv("REDIS_PASSWORD"), 0)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using redis replay guard", zap.String("addr", addr))
		return guard, func() { _ = client.Close() }, nil
	}

	guard, err := replay.NewMemoryGuard(replay.TTLFor(window))
	if err != nil {
		return nil, nil, err
	}
	return guard, func() { _ = guard.Close() }, nil
}
