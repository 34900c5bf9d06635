package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/api/middleware"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/api/request"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/api/response"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/core"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/model"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/platform"
)

type Webhook struct {
	svc *core.WebhookService
}

func NewWebhook(svc *core.WebhookService) *Webhook {
	return &Webhook{svc: svc}
}

// Create registers a webhook subscription. The signing secret is generated
// server-side and only returned in this response.
func (h *Webhook) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateWebhook
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	ep := &model.WebhookEndpoint{
		ID:        platform.NewID(),
		OrgID:     middleware.OrgID(r.Context()),
		URL:       req.URL,
		Secret:    "whsec_" + platform.NewSecret(24),
		Events:    req.Events,
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.svc.Create(r.Context(), ep); err != nil {
		writeServiceError(w, err)
		return
	}

	response.WriteJSON(w, http.StatusCreated, ep)
}

func (h *Webhook) List(w http.ResponseWriter, r *http.Request) {
	endpoints, err := h.svc.List(r.Context(), middleware.OrgID(r.Context()))
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// The secret is write-once; listings never echo it.
	for i := range endpoints {
		endpoints[i].Secret = ""
	}
	response.WriteJSON(w, http.StatusOK, endpoints)
}

func (h *Webhook) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ep, err := h.svc.GetByID(r.Context(), middleware.OrgID(r.Context()), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	ep.Secret = ""
	response.WriteJSON(w, http.StatusOK, ep)
}

func (h *Webhook) Update(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.UpdateWebhook
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ep, err := h.svc.Update(r.Context(), middleware.OrgID(r.Context()), id, core.UpdateEndpointParams{
		URL:     req.URL,
		Events:  req.Events,
		Enabled: req.Enabled,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	ep.Secret = ""
	response.WriteJSON(w, http.StatusOK, ep)
}

func (h *Webhook) Delete(w http.ResponseWriter, r *http.Request) {
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
