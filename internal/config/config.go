// Copyright 2026 The AgentHub Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the coordination daemon configuration from the
// environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

// Config is the coordd process configuration, parsed from COORD_* variables.
type Config struct {
	// ListenAddr is the ops HTTP listen address.
	ListenAddr string `env:"COORD_LISTEN_ADDR" envDefault:":8090"`

	// FanoutURL is the base URL of the real-time fan-out service.
	FanoutURL string `env:"COORD_FANOUT_URL" envDefault:"http://localhost:5001"`

	// FanoutSocket switches event delivery to the websocket transport.
	FanoutSocket bool `env:"COORD_FANOUT_SOCKET" envDefault:"false"`

	Workers        int           `env:"COORD_WORKERS" envDefault:"5"`
	QueueSize      int           `env:"COORD_QUEUE_SIZE" envDefault:"100"`
	EnqueueTimeout time.Duration `env:"COORD_ENQUEUE_TIMEOUT" envDefault:"5s"`
	DrainTimeout   time.Duration `env:"COORD_DRAIN_TIMEOUT" envDefault:"10s"`

	// TaskRetention prunes terminal tasks from the live table after this
	// long; zero keeps them resident.
	TaskRetention time.Duration `env:"COORD_TASK_RETENTION" envDefault:"0"`

	LogLevel string `env:"COORD_LOG_LEVEL" envDefault:"info"`
}

// Load parses the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return &cfg, nil
}
