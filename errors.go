// Copyright 2026 The AgentHub Authors
// SPDX-License-Identifier: Apache-2.0

package coord

import "fmt"

// TaskNotFoundError is returned when a task ID has no entry in the live
// task table.
type TaskNotFoundError struct {
	TaskID string
}

// Error implements the error interface.
func (e TaskNotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.TaskID)
}
