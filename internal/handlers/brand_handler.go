package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/interfaces"
	"github.com/praecohq/praeco/internal/models"
)

// BrandHandler manages brand profiles over HTTP.
type BrandHandler struct {
	brands interfaces.BrandStorage
	logger arbor.ILogger
}

// NewBrandHandler creates the brand CRUD handler.
func NewBrandHandler(brands interfaces.BrandStorage, logger arbor.ILogger) *BrandHandler {
	return &BrandHandler{brands: brands, logger: logger}
}

// CollectionHandler routes /api/brands. GET lists, POST creates.
func (h *BrandHandler) CollectionHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ItemHandler routes /api/brands/{id}. GET fetches, PUT updates.
func (h *BrandHandler) ItemHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/brands/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "brand id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *BrandHandler) list(w http.ResponseWriter, r *http.Request) {
	brands, err := h.brands.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list brands")
		WriteError(w, http.StatusInternalServerError, "failed to list brands")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"brands": brands,
		"count":  len(brands),
	})
}

func (h *BrandHandler) create(w http.ResponseWriter, r *http.Request) {
	var brand models.Brand
	if !DecodeJSON(w, r, &brand) {
		return
	}
	if brand.Name == "" || brand.OwnerID == "" {
		WriteError(w, http.StatusBadRequest, "name and owner_id are required")
		return
	}

	if brand.ID == "" {
		brand.ID = "brand_" + uuid.New().String()
	}
	if brand.Weights.Sum() <= 0 {
		brand.Weights = models.DefaultScoreWeights()
	}
	brand.CreatedAt = time.Now().UTC()
	brand.UpdatedAt = brand.CreatedAt

	if err := h.brands.Save(r.Context(), &brand); err != nil {
		h.logger.Error().Err(err).Msg("Failed to save brand")
		WriteError(w, http.StatusInternalServerError, "failed to save brand")
		return
	}
	WriteJSON(w, http.StatusCreated, brand)
}

func (h *BrandHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	brand, err := h.brands.Get(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "brand not found")
		return
	}
	WriteJSON(w, http.StatusOK, brand)
}

func (h *BrandHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	existing, err := h.brands.Get(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "brand not found")
		return
	}

	var brand models.Brand
	if !DecodeJSON(w, r, &brand) {
		return
	}
	brand.ID = existing.ID
	brand.OwnerID = existing.OwnerID
	brand.CreatedAt = existing.CreatedAt
	brand.UpdatedAt = time.Now().UTC()
	if brand.Weights.Sum() <= 0 {
		brand.Weights = models.DefaultScoreWeights()
	}

	if err := h.brands.Update(r.Context(), &brand); err != nil {
		h.logger.Error().Err(err).Str("brand_id", id).Msg("Failed to update brand")
		WriteError(w, http.StatusInternalServerError, "failed to update brand")
		return
	}
	WriteJSON(w, http.StatusOK, brand)
}
