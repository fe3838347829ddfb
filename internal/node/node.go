// Copyright 2024 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/elections"
	"github.com/blinklabs-io/elections/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func Run(cfg *config.Config, logger *slog.Logger) error {
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()
	// Enable metrics with default prometheus registry
	return run(
		signalCtx,
		cfg,
		logger,
		prometheus.DefaultRegisterer,
		prometheus.DefaultGatherer,
	)
}

func run(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
	promGatherer prometheus.Gatherer,
) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")

	// Parse shutdown timeout
	shutdownTimeout := 30 * time.Second // Default timeout
	if cfg.ShutdownTimeout != "" {
		var err error
		shutdownTimeout, err = time.ParseDuration(cfg.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("invalid shutdown timeout: %w", err)
		}
	}
	var apiListenAddress string
	if cfg.ApiPort > 0 {
		apiListenAddress = fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.ApiPort)
	}

	n, err := elections.New(
		elections.NewConfig(
			elections.WithLogger(logger),
			elections.WithDataDir(cfg.DatabasePath),
			elections.WithBlobPlugin(cfg.BlobPlugin),
			elections.WithMetadataPlugin(cfg.MetadataPlugin),
			elections.WithApiListenAddress(apiListenAddress),
			elections.WithHumanIssuer(cfg.HumanIssuer),
			elections.WithAuthorities(cfg.Authorities...),
			elections.WithPolicy(cfg.Policy),
			elections.WithRunMode(string(cfg.RunMode)),
			elections.WithShutdownTimeout(shutdownTimeout),
			elections.WithPrometheusRegistry(promRegistry),
			elections.WithTracing(cfg.Tracing),
			elections.WithTracingStdout(cfg.TracingStdout),
		),
	)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	// Metrics listener
	var metricsServer *http.Server
	if cfg.MetricsPort > 0 {
		metricsAddr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort)
		mux := http.NewServeMux()
		mux.Handle(
			"/metrics",
			promhttp.HandlerFor(promGatherer, promhttp.HandlerOpts{}),
		)
		metricsServer = &http.Server{
			Addr:              metricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 60 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		logger.Info(
			"serving prometheus metrics on "+metricsAddr,
			"component", "node",
		)
		g.Go(func() error {
			if err := metricsServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("failed to start metrics listener: %w", err)
			}
			return nil
		})
	}

	// Run node
	g.Go(func() error {
		return n.Run(gctx)
	})

	// Shut everything down once a signal is received or a component fails
	g.Go(func() error {
		<-gctx.Done()
		logger.Info(
			"initiating graceful shutdown",
			"component", "node",
		)
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		var err error
		if metricsServer != nil {
			if shutdownErr := metricsServer.Shutdown(shutdownCtx); shutdownErr != nil {
				err = errors.Join(err, fmt.Errorf("metrics server shutdown: %w", shutdownErr))
			}
		}
		if stopErr := n.Stop(); stopErr != nil {
			err = errors.Join(err, stopErr)
		}
		if err != nil {
			logger.Error(
				"shutdown errors occurred",
				"component", "node",
				"error", err,
			)
			return err
		}
		logger.Info("shutdown complete", "component", "node")
		return nil
	})

	return g.Wait()
}
