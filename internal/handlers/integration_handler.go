package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/broker"
	"github.com/praecohq/praeco/internal/interfaces"
	"github.com/praecohq/praeco/internal/registry"
)

// IntegrationHandler manages provider bindings over HTTP.
type IntegrationHandler struct {
	broker   *broker.Service
	storage  interfaces.IntegrationStorage
	registry *registry.Registry
	logger   arbor.ILogger
}

// NewIntegrationHandler creates the integration CRUD handler.
func NewIntegrationHandler(b *broker.Service, storage interfaces.IntegrationStorage, reg *registry.Registry, logger arbor.ILogger) *IntegrationHandler {
	return &IntegrationHandler{
		broker:   b,
		storage:  storage,
		registry: reg,
		logger:   logger,
	}
}

// ListHandler lists the owner's bindings. GET /api/integrations?owner_id=
func (h *IntegrationHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		WriteError(w, http.StatusBadRequest, "owner_id is required")
		return
	}

	var brandID *string
	if b := r.URL.Query().Get("brand_id"); b != "" {
		brandID = &b
	}

	bindings, err := h.storage.ListCandidates(r.Context(), ownerID, brandID)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list integrations")
		WriteError(w, http.StatusInternalServerError, "failed to list integrations")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"integrations": bindings,
		"count":        len(bindings),
	})
}

// CreateHandler creates a binding. POST /api/integrations
func (h *IntegrationHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var input broker.CreateBindingInput
	if !DecodeJSON(w, r, &input) {
		return
	}

	binding, err := h.broker.CreateBinding(r.Context(), input)
	if err != nil {
		// Schema violations come back field-by-field; surface them as-is.
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	WriteJSON(w, http.StatusCreated, binding)
}

// ItemHandler routes /api/integrations/{id} and /api/integrations/{id}/test.
func (h *IntegrationHandler) ItemHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/integrations/")
	if rest == "" {
		WriteError(w, http.StatusBadRequest, "integration id is required")
		return
	}

	if id, ok := strings.CutSuffix(rest, "/test"); ok {
		h.testBinding(w, r, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getBinding(w, r, rest)
	case http.MethodDelete:
		h.deleteBinding(w, r, rest)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *IntegrationHandler) getBinding(w http.ResponseWriter, r *http.Request, id string) {
	binding, err := h.storage.Get(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "integration not found")
		return
	}
	WriteJSON(w, http.StatusOK, binding)
}

func (h *IntegrationHandler) deleteBinding(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.broker.RemoveBinding(r.Context(), id); err != nil {
		h.logger.Error().Err(err).Str("integration_id", id).Msg("Failed to remove integration")
		WriteError(w, http.StatusInternalServerError, "failed to remove integration")
		return
	}
	WriteSuccess(w, "integration removed")
}

// testBinding probes the binding's credentials. POST /api/integrations/{id}/test
func (h *IntegrationHandler) testBinding(w http.ResponseWriter, r *http.Request, id string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	result := h.broker.Test(r.Context(), id)
	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadGateway
	}
	WriteJSON(w, status, result)
}

// ProvidersHandler lists the provider catalog. GET /api/providers
func (h *IntegrationHandler) ProvidersHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	descriptors := h.registry.All()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"providers": descriptors,
		"count":     len(descriptors),
	})
}
