package handler

import (
	"errors"
	"net/http"

	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/api/response"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/core"
	"github.com/Pcnaid-Dev/dcvaas-delegated-dcv-main-sub001/internal/platform"
)

// writeServiceError maps core errors onto HTTP status codes. Anything
// unrecognized is a 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		response.WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrHostnameTaken):
		response.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrNotProvisioned):
		response.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, core.ErrUnknownJobType):
		response.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrInvalidEndpoint):
		response.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, platform.ErrInvalidHostname):
		response.WriteError(w, http.StatusBadRequest, err.Error())
	default:
		response.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
