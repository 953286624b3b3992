// Copyright 2026 The AgentHub Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"fmt"
	"log/slog"
	"time"
)

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher) error

// WithLogger sets the publisher logger.
func WithLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		p.logger = logger
		return nil
	}
}

// WithPublishTimeout bounds each delivery attempt.
func WithPublishTimeout(d time.Duration) PublisherOption {
	return func(p *Publisher) error {
		if d <= 0 {
			return fmt.Errorf("publish timeout must be positive, got %v", d)
		}
		p.timeout = d
		return nil
	}
}

// WithClock overrides the envelope timestamp source.
func WithClock(clock func() time.Time) PublisherOption {
	return func(p *Publisher) error {
		if clock == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		p.clock = clock
		return nil
	}
}
