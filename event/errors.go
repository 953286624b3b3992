// Copyright 2026 The AgentHub Authors
// SPDX-License-Identifier: Apache-2.0

package event

import "errors"

var (
	// ErrNilTransport is returned when constructing a publisher without a
	// transport.
	ErrNilTransport = errors.New("transport cannot be nil")
)
