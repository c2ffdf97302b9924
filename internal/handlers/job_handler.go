package handlers

import (
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/common"
	"github.com/praecohq/praeco/internal/interfaces"
	"github.com/praecohq/praeco/internal/models"
	"github.com/praecohq/praeco/internal/queue"
)

// JobHandler enqueues pipeline jobs and serves job status for polling.
type JobHandler struct {
	queues map[string]*queue.Manager
	opts   map[string]queue.EnqueueOptions
	jobs   interfaces.JobStorage
	logger arbor.ILogger
}

// NewJobHandler creates the job handler. The opts map carries each queue's
// retry policy so HTTP-enqueued jobs match scheduler-enqueued ones.
func NewJobHandler(queues map[string]*queue.Manager, opts map[string]queue.EnqueueOptions, jobs interfaces.JobStorage, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		queues: queues,
		opts:   opts,
		jobs:   jobs,
		logger: logger,
	}
}

type enqueueRequest struct {
	BrandID   string `json:"brand_id"`
	IdeaID    string `json:"idea_id,omitempty"`
	ContentID string `json:"content_id,omitempty"`
	Source    string `json:"source,omitempty"`
}

// EnqueueDiscoveryHandler starts a discovery run. POST /api/discovery/run
func (h *JobHandler) EnqueueDiscoveryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req enqueueRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.BrandID == "" {
		WriteError(w, http.StatusBadRequest, "brand_id is required")
		return
	}

	payload := map[string]interface{}{"brand_id": req.BrandID}
	if req.Source != "" {
		payload["source"] = req.Source
	}
	h.enqueue(w, r, models.QueueDiscovery, common.NewJobID(), payload)
}

// EnqueueGenerationHandler starts content generation for an idea.
// POST /api/content/generate
func (h *JobHandler) EnqueueGenerationHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req enqueueRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.BrandID == "" || req.IdeaID == "" {
		WriteError(w, http.StatusBadRequest, "brand_id and idea_id are required")
		return
	}

	// One generation job per idea: repeat requests are idempotent while a
	// job is in flight and re-run it once it is terminal.
	h.enqueue(w, r, models.QueueGeneration, "generate-"+req.IdeaID, map[string]interface{}{
		"brand_id": req.BrandID,
		"idea_id":  req.IdeaID,
	})
}

// EnqueueResearchHandler starts research for an idea. POST /api/ideas/research
func (h *JobHandler) EnqueueResearchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req enqueueRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.BrandID == "" || req.IdeaID == "" {
		WriteError(w, http.StatusBadRequest, "brand_id and idea_id are required")
		return
	}

	h.enqueue(w, r, models.QueueResearch, "research-"+req.IdeaID, map[string]interface{}{
		"brand_id": req.BrandID,
		"idea_id":  req.IdeaID,
	})
}

// EnqueueMediaHandler starts hero-image generation for a piece of content.
// POST /api/content/media
func (h *JobHandler) EnqueueMediaHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req enqueueRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.BrandID == "" || req.ContentID == "" {
		WriteError(w, http.StatusBadRequest, "brand_id and content_id are required")
		return
	}

	h.enqueue(w, r, models.QueueMedia, "media-"+req.ContentID, map[string]interface{}{
		"brand_id":   req.BrandID,
		"content_id": req.ContentID,
	})
}

func (h *JobHandler) enqueue(w http.ResponseWriter, r *http.Request, queueName, jobID string, payload map[string]interface{}) {
	mgr, ok := h.queues[queueName]
	if !ok {
		WriteError(w, http.StatusInternalServerError, "queue not configured: "+queueName)
		return
	}

	job := models.NewQueueJob(queueName, jobID, payload)
	if err := mgr.Enqueue(r.Context(), job, h.opts[queueName]); err != nil {
		h.logger.Error().Err(err).
			Str("queue", queueName).
			Str("job_id", jobID).
			Msg("Failed to enqueue job")
		WriteError(w, http.StatusInternalServerError, "failed to enqueue job")
		return
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"status": "enqueued",
		"job_id": job.ID,
		"queue":  queueName,
	})
}

// ListJobsHandler lists jobs for a queue. GET /api/jobs?queue=&status=&limit=
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	queueName := r.URL.Query().Get("queue")
	if queueName == "" {
		WriteError(w, http.StatusBadRequest, "queue is required")
		return
	}
	status := models.JobStatus(r.URL.Query().Get("status"))
	limit := QueryInt(r, "limit", 50)

	jobs, err := h.jobs.ListByQueue(r.Context(), queueName, status, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("queue", queueName).Msg("Failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// GetJobHandler serves one job for progress polling. GET /api/jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if id == "" {
		WriteError(w, http.StatusBadRequest, "job id is required")
		return
	}

	job, err := h.jobs.Get(r.Context(), id)
	if err != nil {
		WriteError(w, http.StatusNotFound, "job not found")
		return
	}
	WriteJSON(w, http.StatusOK, job)
}
