package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// API routes - Providers and integrations
	mux.HandleFunc("/api/providers", s.app.IntegrationHandler.ProvidersHandler)
	mux.HandleFunc("/api/integrations", s.handleIntegrationsRoute)
	mux.HandleFunc("/api/integrations/", s.app.IntegrationHandler.ItemHandler) // GET/DELETE /{id}, POST /{id}/test

	// API routes - Brands
	mux.HandleFunc("/api/brands", s.app.BrandHandler.CollectionHandler)
	mux.HandleFunc("/api/brands/", s.app.BrandHandler.ItemHandler)

	// API routes - Pipelines
	mux.HandleFunc("/api/discovery/run", s.app.JobHandler.EnqueueDiscoveryHandler)
	mux.HandleFunc("/api/content/generate", s.app.JobHandler.EnqueueGenerationHandler)
	mux.HandleFunc("/api/content/media", s.app.JobHandler.EnqueueMediaHandler)
	mux.HandleFunc("/api/ideas/research", s.app.JobHandler.EnqueueResearchHandler)

	// API routes - Jobs (status/progress polling)
	mux.HandleFunc("/api/jobs", s.app.JobHandler.ListJobsHandler)
	mux.HandleFunc("/api/jobs/", s.app.JobHandler.GetJobHandler)

	// API routes - Data views
	mux.HandleFunc("/api/ideas", s.app.DataHandler.ListIdeasHandler)
	mux.HandleFunc("/api/ideas/", s.app.DataHandler.GetIdeaHandler)
	mux.HandleFunc("/api/runs", s.app.DataHandler.ListRunsHandler)
	mux.HandleFunc("/api/content", s.app.DataHandler.ListContentHandler)
	mux.HandleFunc("/api/content/", s.app.DataHandler.GetContentHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleIntegrationsRoute routes /api/integrations by method.
func (s *Server) handleIntegrationsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.app.IntegrationHandler.ListHandler(w, r)
	case http.MethodPost:
		s.app.IntegrationHandler.CreateHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
