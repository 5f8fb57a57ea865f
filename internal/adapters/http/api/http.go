// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/okian/matchlog/internal/adapters/http/swagger"
	"github.com/okian/matchlog/internal/adapters/repository"
	service "github.com/okian/matchlog/internal/app"
	"github.com/okian/matchlog/internal/domain/model"
	"github.com/okian/matchlog/internal/domain/profile"
	"github.com/okian/matchlog/internal/domain/timeline"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	// Submit queues an import and returns its job.
	Submit(ctx context.Context, req service.ImportRequest) (service.JobView, error)
	Job(ctx context.Context, id string) (service.JobView, error)

	Recalculate(ctx context.Context, matchID uint, spec timeline.Spec) (service.RecalcResult, error)

	Profile(ctx context.Context, name string) (*profile.Profile, error)
	SaveProfile(ctx context.Context, p *profile.Profile) error
	UpsertCategoryMappings(ctx context.Context, rows []model.CategoryMapping) (int, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	importsHandler  *ImportsHandler
	matchesHandler  *MatchesHandler
	profilesHandler *ProfilesHandler
	mappingsHandler *MappingsHandler
	allowedOrigins  []string
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithAllowedOrigins sets the CORS origins. Empty means any origin.
func WithAllowedOrigins(origins ...string) ServerOption {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...ServerOption) *Server {
	s := &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		importsHandler:  NewImportsHandler(deps),
		matchesHandler:  NewMatchesHandler(deps),
		profilesHandler: NewProfilesHandler(deps),
		mappingsHandler: NewMappingsHandler(deps),
		allowedOrigins:  []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(ctx context.Context, r *mux.Router) {
	r.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	r.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)

	r.HandleFunc("/imports", MetricsMiddleware(s.importsHandler.HandleSubmit, "imports")).Methods(http.MethodPost)
	r.HandleFunc("/imports/{id}", MetricsMiddleware(s.importsHandler.HandleGetJob, "imports_job")).Methods(http.MethodGet)

	r.HandleFunc("/matches/{id:[0-9]+}/recalculate",
		MetricsMiddleware(s.matchesHandler.HandleRecalculate, "recalculate")).Methods(http.MethodPost)

	r.HandleFunc("/profiles/{name}", MetricsMiddleware(s.profilesHandler.HandleGet, "profiles")).Methods(http.MethodGet)
	r.HandleFunc("/profiles/{name}", MetricsMiddleware(s.profilesHandler.HandlePut, "profiles")).Methods(http.MethodPut)

	r.HandleFunc("/category-mappings", MetricsMiddleware(s.mappingsHandler.HandlePut, "category_mappings")).Methods(http.MethodPut)

	swagger.Register(ctx, r)
}

// Handler returns the routed API behind the CORS policy.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := mux.NewRouter()
	s.Register(ctx, r)
	c := cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(r)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError translates a service error into a status and code.
func writeServiceError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err)
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrServiceNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, service.ErrQueueFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrDuplicateImport):
		return http.StatusConflict, "duplicate"
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrInvalidImport):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrJobNotFound),
		errors.Is(err, service.ErrUnknownProfile),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, timeline.ErrConfiguration),
		errors.Is(err, profile.ErrInvalidProfile),
		errors.Is(err, repository.ErrEmptyName):
		return http.StatusUnprocessableEntity, "invalid"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// decodeJSON reads one JSON document from the request body.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}
