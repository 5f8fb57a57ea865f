package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/okian/matchlog/internal/domain/model"
	"github.com/okian/matchlog/internal/domain/profile"
)

// maxProfileBytes bounds a profile upload.
const maxProfileBytes = 1 << 20

// ProfilesHandler reads and stores import profiles.
type ProfilesHandler struct {
	deps Dependencies
}

// NewProfilesHandler creates a new profiles handler.
func NewProfilesHandler(deps Dependencies) *ProfilesHandler {
	return &ProfilesHandler{deps: deps}
}

// HandleGet handles GET /profiles/{name}.
func (h *ProfilesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.deps.Profile(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandlePut handles PUT /profiles/{name}. The path name wins over any name
// in the body.
func (h *ProfilesHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxProfileBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	p, err := profile.Decode(body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	p.Name = strings.TrimSpace(mux.Vars(r)["name"])
	if err := h.deps.SaveProfile(r.Context(), p); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// MappingsHandler stores category vocabulary rows.
type MappingsHandler struct {
	deps Dependencies
}

// NewMappingsHandler creates a new mappings handler.
func NewMappingsHandler(deps Dependencies) *MappingsHandler {
	return &MappingsHandler{deps: deps}
}

type upsertResponse struct {
	Upserted int `json:"upserted"`
}

// HandlePut handles PUT /category-mappings with a JSON array of rows.
func (h *MappingsHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	var rows []model.CategoryMapping
	if err := decodeJSON(r, &rows); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	n, err := h.deps.UpsertCategoryMappings(r.Context(), rows)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, upsertResponse{Upserted: n})
}
