// Package httpapi exposes the alert, proximity and similarity services
// over a chi-routed JSON API.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pawtrace/pawtrace/internal/domain"
	"github.com/pawtrace/pawtrace/internal/domain/geo"
	dommatch "github.com/pawtrace/pawtrace/internal/domain/match"
	healthuc "github.com/pawtrace/pawtrace/internal/usecase/health"
	matchuc "github.com/pawtrace/pawtrace/internal/usecase/match"
	nearbyuc "github.com/pawtrace/pawtrace/internal/usecase/nearby"
	reportuc "github.com/pawtrace/pawtrace/internal/usecase/report"
)

// ErrorCode identifies an API error class in responses.
type ErrorCode string

const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeValidationFailed ErrorCode = "validation_failed"
	CodeAlertNotFound    ErrorCode = "alert_not_found"
	CodeEmbeddingError   ErrorCode = "embedding_provider_error"
	CodeQueryFailed      ErrorCode = "query_failed"
	CodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server wires HTTP handlers to the use case services.
type Server struct {
	reports       *reportuc.Service
	nearby        *nearbyuc.Service
	matcher       *matchuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	reports *reportuc.Service,
	nearby *nearbyuc.Service,
	matcher *matchuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		reports: reports,
		nearby:  nearby,
		matcher: matcher,
		health:  health,
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrAlertNotFound, http.StatusNotFound, CodeAlertNotFound),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrEmbeddingProvider, http.StatusBadGateway, CodeEmbeddingError),
		sentinelHandler(domain.ErrQuery, http.StatusInternalServerError, CodeQueryFailed),
	}
	return s
}

// Routes registers all API routes on a fresh router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	s.Register(r)
	return r
}

// Register attaches all API routes to an existing router, after the
// caller has installed its middleware.
func (s *Server) Register(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/reports/missing", func(r chi.Router) {
			r.Post("/", s.CreateReport)
			r.Get("/", s.ListReports)
			r.Get("/{id}", s.GetReport)
		})
		r.Route("/alerts", func(r chi.Router) {
			r.Post("/{id}/resolve", s.ResolveAlert)
			r.Get("/near", s.FindNearby)
		})
		r.Get("/similarity/find", s.FindSimilar)
	})

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type locationPayload struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type createReportRequest struct {
	PetID       string           `json:"pet_id,omitempty"`
	PetName     string           `json:"pet_name,omitempty"`
	Species     string           `json:"species,omitempty"`
	Description string           `json:"description,omitempty"`
	ContactInfo string           `json:"contact_info"`
	PhotoURLs   []string         `json:"photo_urls,omitempty"`
	Location    *locationPayload `json:"location,omitempty"`
	CreatedBy   string           `json:"created_by,omitempty"`
}

// CreateReport handles POST /api/v1/reports/missing.
func (s *Server) CreateReport(w http.ResponseWriter, r *http.Request) {
	var req createReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	var loc *geo.Point
	if req.Location != nil {
		loc = &geo.Point{Lat: req.Location.Lat, Lon: req.Location.Lon}
	}

	a, err := s.reports.Create(r.Context(), reportuc.CreateParams{
		PetID:       req.PetID,
		PetName:     req.PetName,
		Species:     req.Species,
		Description: req.Description,
		ContactInfo: req.ContactInfo,
		PhotoURLs:   req.PhotoURLs,
		Location:    loc,
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, alertToResponse(&a))
}

// GetReport handles GET /api/v1/reports/missing/{id}.
func (s *Server) GetReport(w http.ResponseWriter, r *http.Request) {
	a, err := s.reports.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alertToResponse(&a))
}

// ListReports handles GET /api/v1/reports/missing.
func (s *Server) ListReports(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	alerts, err := s.reports.List(r.Context(), r.URL.Query().Get("species"), skip, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, alertListResponse{
		Items: alertsToResponses(alerts),
		Count: len(alerts),
	})
}

// ResolveAlert handles POST /api/v1/alerts/{id}/resolve.
func (s *Server) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	a, err := s.reports.Resolve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alertToResponse(&a))
}

// FindNearby handles GET /api/v1/alerts/near.
func (s *Server) FindNearby(w http.ResponseWriter, r *http.Request) {
	lat, err := requiredFloat(r, "lat")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	lon, err := requiredFloat(r, "lon")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	radius, err := queryFloat(r, "radius", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	alerts, err := s.nearby.Find(r.Context(), geo.Point{Lat: lat, Lon: lon}, radius, skip, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	origin := geo.Point{Lat: lat, Lon: lon}
	items := make([]nearItem, len(alerts))
	for i := range alerts {
		items[i] = nearItem{alertResponse: alertToResponse(&alerts[i])}
		if loc := alerts[i].Location(); loc != nil {
			items[i].DistanceM = geo.Haversine(origin, *loc)
		}
	}

	writeJSON(w, http.StatusOK, nearListResponse{Items: items, Count: len(items)})
}

// FindSimilar handles GET /api/v1/similarity/find.
func (s *Server) FindSimilar(w http.ResponseWriter, r *http.Request) {
	imageWeight, err := queryFloat(r, "image_weight", dommatch.DefaultImageWeight)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	textWeight, err := queryFloat(r, "text_weight", dommatch.DefaultTextWeight)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	threshold, err := queryFloat(r, "threshold", dommatch.DefaultThreshold)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	req, err := dommatch.NewRequest(
		r.URL.Query().Get("photo_url"),
		r.URL.Query().Get("description"),
		imageWeight, textWeight, threshold, limit,
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	matches, err := s.matcher.Find(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]matchItem, len(matches))
	for i := range matches {
		items[i] = matchItem{
			alertResponse: alertToResponse(matches[i].Alert()),
			Score:         matches[i].Score(),
		}
	}

	writeJSON(w, http.StatusOK, matchListResponse{Items: items, Count: len(items)})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrAlertNotFound,
		domain.ErrInvalidQuery,
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingProvider,
		domain.ErrQuery,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func queryFloat(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, errors.New(name + " must be a number")
	}
	return v, nil
}

func requiredFloat(r *http.Request, name string) (float64, error) {
	if r.URL.Query().Get(name) == "" {
		return 0, errors.New(name + " is required")
	}
	return queryFloat(r, name, 0)
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return v, nil
}
