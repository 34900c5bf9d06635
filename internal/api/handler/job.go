package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/api/middleware"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/api/request"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/api/response"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/core"
)

type Job struct {
	svc *core.JobService
}

func NewJob(svc *core.JobService) *Job {
	return &Job{svc: svc}
}

// Create enqueues a job against one of the caller's domains. The job row is
// the durable record; execution happens on the worker.
func (h *Job) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateJob
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.svc.Enqueue(r.Context(), middleware.OrgID(r.Context()), req.Type, req.DomainID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusAccepted, job)
}

func (h *Job) List(w http.ResponseWriter, r *http.Request) {
	p := request.ParsePagination(r)

	jobs, hasMore, err := h.svc.List(r.Context(), middleware.OrgID(r.Context()), p.Limit, p.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(jobs) > 0 {
		nextCursor = jobs[len(jobs)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, jobs, nextCursor, hasMore)
}

func (h *Job) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	job, err := h.svc.GetByID(r.Context(), middleware.OrgID(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, job)
}
