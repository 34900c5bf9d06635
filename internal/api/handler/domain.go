package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/api/middleware"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/api/request"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/api/response"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/core"
)

type Domain struct {
	svc *core.DomainService
}

func NewDomain(svc *core.DomainService) *Domain {
	return &Domain{svc: svc}
}

// Create registers a hostname for delegated validation. The domain starts
// in pending_cname; issuance progresses asynchronously once the customer
// points their CNAME at the returned target.
func (h *Domain) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateDomain
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.svc.Create(r.Context(), middleware.OrgID(r.Context()), req.Hostname)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, d)
}

func (h *Domain) List(w http.ResponseWriter, r *http.Request) {
	p := request.ParsePagination(r)

	domains, hasMore, err := h.svc.List(r.Context(), middleware.OrgID(r.Context()), p.Limit, p.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(domains) > 0 {
		nextCursor = domains[len(domains)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, domains, nextCursor, hasMore)
}

func (h *Domain) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.svc.GetByID(r.Context(), middleware.OrgID(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, d)
}

// Sync forces an immediate reconcile against the upstream authority instead
// of waiting for the next sweep.
func (h *Domain) Sync(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	d, err := h.svc.Sync(r.Context(), middleware.OrgID(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, d)
}

func (h *Domain) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), middleware.OrgID(r.Context()), id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
