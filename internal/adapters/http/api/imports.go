package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	service "github.com/okian/matchlog/internal/app"
	"github.com/okian/matchlog/internal/domain/model"
)

// ImportsHandler handles import submission and job lookups.
type ImportsHandler struct {
	deps Dependencies
}

// NewImportsHandler creates a new imports handler.
func NewImportsHandler(deps Dependencies) *ImportsHandler {
	return &ImportsHandler{deps: deps}
}

// submitResponse mirrors the OpenAPI schema for POST /imports.
type submitResponse struct {
	JobID     string          `json:"job_id"`
	Status    model.JobStatus `json:"status"`
	Duplicate bool            `json:"duplicate"`
}

// HandleSubmit handles POST /imports.
func (h *ImportsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req service.ImportRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing path", ErrBadRequest))
		return
	}

	view, err := h.deps.Submit(r.Context(), req)
	switch {
	case errors.Is(err, service.ErrDuplicateImport) && view.ID != "":
		writeJSON(w, http.StatusOK, submitResponse{JobID: view.ID, Status: view.Status, Duplicate: true})
	case err != nil:
		writeServiceError(w, err)
	default:
		writeJSON(w, http.StatusAccepted, submitResponse{JobID: view.ID, Status: view.Status})
	}
}

// HandleGetJob handles GET /imports/{id}.
func (h *ImportsHandler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	view, err := h.deps.Job(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
