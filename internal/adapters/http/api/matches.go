package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/okian/matchlog/internal/domain/timeline"
)

// MatchesHandler handles operations on stored matches.
type MatchesHandler struct {
	deps Dependencies
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(deps Dependencies) *MatchesHandler {
	return &MatchesHandler{deps: deps}
}

// HandleRecalculate handles POST /matches/{id}/recalculate. An empty body
// reuses the anchors and delays stored with the match.
func (h *MatchesHandler) HandleRecalculate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || id == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: invalid match id", ErrBadRequest))
		return
	}

	var spec timeline.Spec
	if err := decodeJSON(r, &spec); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	res, err := h.deps.Recalculate(r.Context(), uint(id), spec)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
