package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/broker"
	"github.com/praecohq/praeco/internal/common"
	"github.com/praecohq/praeco/internal/interfaces"
	"github.com/praecohq/praeco/internal/models"
	"github.com/praecohq/praeco/internal/registry"
)

func newIntegrationHandler(t *testing.T) (*IntegrationHandler, interfaces.StorageManager) {
	t.Helper()
	logger := arbor.NewLogger()
	sm := newTestStorage(t)

	reg, err := registry.NewDefault()
	if err != nil {
		t.Fatalf("failed to build registry: %v", err)
	}
	svc := broker.NewService(reg, sm.IntegrationStorage(), sm.UsageStorage(), sm.KeyValueStorage(), &common.Config{}, logger)
	return NewIntegrationHandler(svc, sm.IntegrationStorage(), reg, logger), sm
}

func TestIntegrationCreateAndList(t *testing.T) {
	handler, _ := newIntegrationHandler(t)

	body, _ := json.Marshal(map[string]interface{}{
		"owner_id":    "owner-1",
		"provider_id": "anthropic",
		"config":      map[string]interface{}{"api_key": "sk-test"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/integrations", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.CreateHandler(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created models.IntegrationBinding
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if created.ID == "" || created.ProviderID != "anthropic" {
		t.Errorf("created = %+v", created)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/integrations?owner_id=owner-1", nil)
	rec = httptest.NewRecorder()
	handler.ListHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var listed struct {
		Integrations []models.IntegrationBinding `json:"integrations"`
		Count        int                         `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &listed); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if listed.Count != 1 || len(listed.Integrations) != 1 {
		t.Errorf("count = %d, integrations = %d, want 1/1", listed.Count, len(listed.Integrations))
	}
}

func TestIntegrationCreateInvalidConfig(t *testing.T) {
	handler, _ := newIntegrationHandler(t)

	// webhook_publisher requires base_url.
	body, _ := json.Marshal(map[string]interface{}{
		"owner_id":    "owner-1",
		"provider_id": "webhook_publisher",
		"config":      map[string]interface{}{},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/integrations", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.CreateHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp["status"] != "error" {
		t.Errorf("response = %v", resp)
	}
}

func TestIntegrationListRequiresOwner(t *testing.T) {
	handler, _ := newIntegrationHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/integrations", nil)
	rec := httptest.NewRecorder()
	handler.ListHandler(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestIntegrationDelete(t *testing.T) {
	handler, sm := newIntegrationHandler(t)

	body, _ := json.Marshal(map[string]interface{}{
		"owner_id":    "owner-1",
		"provider_id": "anthropic",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/integrations", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.CreateHandler(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created models.IntegrationBinding
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("bad response body: %v", err)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/integrations/"+created.ID, nil)
	rec = httptest.NewRecorder()
	handler.ItemHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", rec.Code, rec.Body.String())
	}

	candidates, err := sm.IntegrationStorage().ListCandidates(req.Context(), "owner-1", nil)
	if err != nil {
		t.Fatalf("ListCandidates failed: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("candidates after delete = %d, want 0", len(candidates))
	}
}

func TestProvidersCatalog(t *testing.T) {
	handler, _ := newIntegrationHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/providers", nil)
	rec := httptest.NewRecorder()
	handler.ProvidersHandler(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp.Count != 3 {
		t.Errorf("providers = %d, want 3", resp.Count)
	}

	// Catalog is read-only.
	req = httptest.NewRequest(http.MethodPost, "/api/providers", nil)
	rec = httptest.NewRecorder()
	handler.ProvidersHandler(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", rec.Code)
	}
}
