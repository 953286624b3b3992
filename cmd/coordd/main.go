// Copyright 2026 The AgentHub Authors
// SPDX-License-Identifier: Apache-2.0

// Command coordd runs the coordination core as a standalone daemon: it wires
// the task queue engine, the event publisher, and the session manager
// together and exposes an operational HTTP surface with health and metrics
// endpoints. The user-facing message API lives in a separate service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/agenthub/coord"
	"github.com/agenthub/coord/collab"
	"github.com/agenthub/coord/event"
	"github.com/agenthub/coord/internal/config"
	"github.com/agenthub/coord/taskqueue"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "coordd",
		Short:         "AgentHub coordination daemon",
		Version:       coord.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the coordination core",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(serve)
	return root
}

func runServe(ctx context.Context) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	// A failed probe leaves the publisher degraded; the daemon still runs
	// so task processing is not coupled to fan-out availability.
	if err := publisher.Initialize(ctx); err != nil {
		logger.Warn("starting with degraded publisher", "error", err)
	}

	sessions, err := collab.NewManager(collab.WithLogger(logger))
	if err != nil {
		return err
	}

	engine, err := taskqueue.New(
		taskqueue.WithWorkers(cfg.Workers),
		taskqueue.WithQueueSize(cfg.QueueSize),
		taskqueue.WithEnqueueTimeout(cfg.EnqueueTimeout),
		taskqueue.WithDrainTimeout(cfg.DrainTimeout),
		taskqueue.WithRetention(cfg.TaskRetention),
		taskqueue.WithLogger(logger),
		taskqueue.WithOnResult(func(task *coord.Task, result any) {
			publisher.PublishTask(context.Background(), event.TaskUpdated, task)
		}),
		taskqueue.WithOnError(func(task *coord.Task, err error) {
			publisher.PublishTask(context.Background(), event.TaskUpdated, task)
		}),
	)
	if err != nil {
		return err
	}

	// Agent dispatch plugs in here; the default processor just reflects the
	// payload so the daemon is runnable stand-alone.
	if err := engine.Start(loopbackProcessor); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: newOpsRouter(engine, publisher, sessions),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ops server listening", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
	return engine.Shutdown(shutdownCtx)
}

func newPublisher(cfg *config.Config, logger *slog.Logger) (*event.Publisher, error) {
	var (
		transport event.Transport
		err       error
	)
	if cfg.FanoutSocket {
		transport, err = event.NewSocketTransport(cfg.FanoutURL)
	} else {
		transport, err = event.NewHTTPTransport(cfg.FanoutURL, nil)
	}
	if err != nil {
		return nil, err
	}
	return event.NewPublisher(transport, event.WithLogger(logger))
}

func loopbackProcessor(ctx context.Context, task *coord.Task) (any, error) {
	return task.Payload, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
