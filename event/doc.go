// Copyright 2026 The AgentHub Authors
// SPDX-License-Identifier: Apache-2.0

// Package event republishes internal platform events to the external
// real-time fan-out service. Events are small tagged structs with one
// canonical field naming; the wire envelope (eventType, timestamp, routing
// key) is attached at the serialization boundary only.
//
// The Publisher never propagates transport errors to its callers: every
// publish reports plain success or failure as a bool, and a publisher whose
// health probe has not succeeded short-circuits to false without touching
// the network.
package event
