package handler

import (
	"context"
	"net/http"

	"github.com/chatbridge-io/linerelay/pkg/version"
)

// Pinger checks reachability of the persistence layer.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnChecker reports the state of an optional messaging connection.
type ConnChecker interface {
	IsConnected() bool
}

// HealthHandler handles root, health, and readiness endpoints.
type HealthHandler struct {
	appURL string
	db     Pinger
	events ConnChecker
}

// NewHealthHandler creates a new health handler. events may be nil when
// exchange fan-out is disabled.
func NewHealthHandler(appURL string, db Pinger, events ConnChecker) *HealthHandler {
	return &HealthHandler{
		appURL: appURL,
		db:     db,
		events: events,
	}
}

// Root handles GET /. When a canonical URL is configured the request is
// redirected there; otherwise the current and latest known versions are
// reported.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	if h.appURL != "" {
		http.Redirect(w, r, h.appURL, http.StatusFound)
		return
	}

	latest, err := version.FetchLatest(r.Context())
	if err != nil {
		latest = "unknown"
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":         "OK",
		"currentVersion": version.Current(),
		"latestVersion":  latest,
	})
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.db == nil || h.db.Ping(r.Context()) != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database unreachable",
		})
		return
	}

	if h.events != nil && !h.events.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}
