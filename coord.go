// Copyright 2026 The AgentHub Authors
// SPDX-License-Identifier: Apache-2.0

// Package coord provides the shared types for the AgentHub coordination
// core: the asynchronous task queue, the real-time event publisher, and the
// collaborative session manager. The package itself holds only data types and
// errors; behavior lives in the taskqueue, event, and collab subpackages.
package coord

import (
	"fmt"

	"github.com/google/uuid"
)

// Version is the coordination core version.
const Version = "0.3.0"

// generateID returns a new random identifier string.
func generateID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return id.String(), nil
}
