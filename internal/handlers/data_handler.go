package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/interfaces"
)

// DataHandler serves read-only views over ideas, runs and generated
// content. Mutations happen through the pipelines, never through here.
type DataHandler struct {
	ideas   interfaces.IdeaStorage
	runs    interfaces.RunStorage
	content interfaces.ContentStorage
	logger  arbor.ILogger
}

// NewDataHandler creates the read-only data handler.
func NewDataHandler(ideas interfaces.IdeaStorage, runs interfaces.RunStorage, content interfaces.ContentStorage, logger arbor.ILogger) *DataHandler {
	return &DataHandler{
		ideas:   ideas,
		runs:    runs,
		content: content,
		logger:  logger,
	}
}

// ListIdeasHandler lists a brand's ideas. GET /api/ideas?brand_id=&limit=
func (h *DataHandler) ListIdeasHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	brandID := r.URL.Query().Get("brand_id")
	if brandID == "" {
		WriteError(w, http.StatusBadRequest, "brand_id is required")
		return
	}

	ideas, err := h.ideas.ListForBrand(r.Context(), brandID, QueryInt(r, "limit", 50))
	if err != nil {
		h.logger.Error().Err(err).Str("brand_id", brandID).Msg("Failed to list ideas")
		WriteError(w, http.StatusInternalServerError, "failed to list ideas")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ideas": ideas,
		"count": len(ideas),
	})
}

// GetIdeaHandler serves one idea. GET /api/ideas/{id}
func (h *DataHandler) GetIdeaHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/ideas/")
	idea, err := h.ideas.Get(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "idea not found")
		return
	}
	WriteJSON(w, http.StatusOK, idea)
}

// ListRunsHandler lists a brand's discovery runs. GET /api/runs?brand_id=
func (h *DataHandler) ListRunsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	brandID := r.URL.Query().Get("brand_id")
	if brandID == "" {
		WriteError(w, http.StatusBadRequest, "brand_id is required")
		return
	}

	runs, err := h.runs.ListForBrand(r.Context(), brandID, QueryInt(r, "limit", 50))
	if err != nil {
		h.logger.Error().Err(err).Str("brand_id", brandID).Msg("Failed to list runs")
		WriteError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

// ListContentHandler lists a brand's generated content.
// GET /api/content?brand_id=&limit=
func (h *DataHandler) ListContentHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	brandID := r.URL.Query().Get("brand_id")
	if brandID == "" {
		WriteError(w, http.StatusBadRequest, "brand_id is required")
		return
	}

	pieces, err := h.content.ListForBrand(r.Context(), brandID, QueryInt(r, "limit", 50))
	if err != nil {
		h.logger.Error().Err(err).Str("brand_id", brandID).Msg("Failed to list content")
		WriteError(w, http.StatusInternalServerError, "failed to list content")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"content": pieces,
		"count":   len(pieces),
	})
}

// GetContentHandler serves one piece of content. GET /api/content/{id}
func (h *DataHandler) GetContentHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/content/")
	piece, err := h.content.Get(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "content not found")
		return
	}
	WriteJSON(w, http.StatusOK, piece)
}
