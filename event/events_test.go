// Copyright 2026 The AgentHub Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/agenthub/coord"
)

func TestEventTypeTags(t *testing.T) {
	t.Parallel()

	tests := map[string]Event{
		TypeMessage:      MessageEvent{},
		TypeConversation: ConversationEvent{},
		TypeTask:         TaskEvent{},
		TypeGeneric:      GenericEvent{},
		TypeFile:         FileEvent{},
		TypeForm:         FormEvent{},
		TypeAgentsSync:   AgentsSyncEvent{},
	}
	for want, ev := range tests {
		if got := ev.EventType(); got != want {
			t.Errorf("%T.EventType() = %q, want %q", ev, got, want)
		}
	}
}

func TestEncodeTaskEvent(t *testing.T) {
	t.Parallel()

	task, err := coord.NewTask(map[string]any{"prompt": "summarize"}, "user-9", "sess-9")
	if err != nil {
		t.Fatalf("NewTask() error = %v", err)
	}
	task.Status = coord.TaskStatusCompleted
	task.RetryCount = 1

	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	body, err := encodeEvent(TaskEvent{Action: TaskUpdated, Task: task}, task.SessionID, at)
	if err != nil {
		t.Fatalf("encodeEvent() error = %v", err)
	}

	var got struct {
		EventType  string `json:"eventType"`
		Timestamp  string `json:"timestamp"`
		RoutingKey string `json:"routingKey"`
		Action     string `json:"action"`
		Task       struct {
			TaskID     string `json:"taskId"`
			Status     string `json:"status"`
			RetryCount int    `json:"retryCount"`
		} `json:"task"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("envelope is not JSON: %v", err)
	}

	if got.EventType != TypeTask {
		t.Errorf("eventType = %q, want %q", got.EventType, TypeTask)
	}
	if got.Timestamp != "2026-03-14T09:26:53Z" {
		t.Errorf("timestamp = %q, want RFC 3339 UTC", got.Timestamp)
	}
	if got.RoutingKey != "sess-9" {
		t.Errorf("routingKey = %q, want sess-9", got.RoutingKey)
	}
	if got.Action != string(TaskUpdated) {
		t.Errorf("action = %q, want %q", got.Action, TaskUpdated)
	}
	if got.Task.TaskID != task.ID || got.Task.Status != string(coord.TaskStatusCompleted) || got.Task.RetryCount != 1 {
		t.Errorf("task fields = %+v, want id/status/retryCount of the source task", got.Task)
	}
}

func TestEncodeOmitsEmptyRoutingKey(t *testing.T) {
	t.Parallel()

	body, err := encodeEvent(GenericEvent{Name: "heartbeat"}, "", time.Now())
	if err != nil {
		t.Fatalf("encodeEvent() error = %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("envelope is not JSON: %v", err)
	}
	if _, present := got["routingKey"]; present {
		t.Error("empty routing key should be omitted from the envelope")
	}
}
