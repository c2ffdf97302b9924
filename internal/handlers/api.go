package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/common"
)

// APIHandler serves the system endpoints: health, version, 404.
type APIHandler struct {
	config  *common.Config
	logger  arbor.ILogger
	started time.Time
}

// NewAPIHandler creates the system endpoints handler.
func NewAPIHandler(config *common.Config, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		config:  config,
		logger:  logger,
		started: time.Now(),
	}
}

// HealthHandler reports liveness. GET /api/health
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"uptime":  time.Since(h.started).Round(time.Second).String(),
		"version": common.Version,
	})
}

// VersionHandler reports build metadata. GET /api/version
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.Version,
		"build":   common.Build,
		"commit":  common.GitCommit,
	})
}

// NotFoundHandler is the catch-all for unmatched API routes.
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusNotFound, "not found: "+r.URL.Path)
}
