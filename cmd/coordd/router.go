// Copyright 2026 The AgentHub Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/agenthub/coord/collab"
	"github.com/agenthub/coord/event"
	"github.com/agenthub/coord/taskqueue"
)

// opsStatus is the /healthz response body.
type opsStatus struct {
	Status    string `json:"status"`
	Publisher string `json:"publisher"`
}

// newOpsRouter builds the operational HTTP surface.
func newOpsRouter(engine *taskqueue.Engine, publisher *event.Publisher, sessions *collab.Manager) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		status := opsStatus{Status: "ok", Publisher: "ready"}
		if !publisher.Initialized() {
			status.Publisher = "degraded"
		}
		writeJSON(w, http.StatusOK, status)
	})

	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, engine.Metrics())
	})

	r.Get("/deadletters", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, engine.DeadLetters())
	})

	r.Get("/sessions/{sessionID}", func(w http.ResponseWriter, req *http.Request) {
		session, ok := sessions.GetSession(chi.URLParam(req, "sessionID"))
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, session)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.ConfigDefault.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
