// Package chi exposes the content store over a small JSON HTTP API.
package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/recallhq/recall/internal/domain"
	contentuc "github.com/recallhq/recall/internal/usecase/content"
	healthuc "github.com/recallhq/recall/internal/usecase/health"
	roomuc "github.com/recallhq/recall/internal/usecase/room"
)

const maxBatchItems = 100

// Server holds the HTTP handlers for the content API.
type Server struct {
	content *contentuc.Service
	rooms   *roomuc.Service
	health  *healthuc.Service
	logger  *zap.Logger
}

// NewServer creates an HTTP API server. rooms can be nil when the watch-room
// feature is not configured.
func NewServer(
	content *contentuc.Service,
	rooms *roomuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	return &Server{content: content, rooms: rooms, health: health, logger: logger}
}

// Mount registers all API routes on the router.
func (s *Server) Mount(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/content", s.SaveContent)
		r.Post("/content/batch", s.BatchSaveContent)
		r.Get("/content/search", s.SearchContent)
		r.Get("/content", s.ListContent)
		r.Get("/content/stats", s.ContentStats)
		r.Put("/content/{id}", s.EditContent)
		r.Delete("/content/{id}", s.DeleteContent)
		r.Post("/diagnostics/store", s.TestStore)

		if s.rooms != nil {
			r.Post("/rooms", s.GetOrCreateRoom)
			r.Delete("/rooms/{scopeID}", s.DeleteRoom)
		}
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

type saveContentRequest struct {
	Text    string `json:"text"`
	OwnerID string `json:"owner_id"`
	ScopeID string `json:"scope_id"`
}

// SaveContent handles POST /api/v1/content.
func (s *Server) SaveContent(w http.ResponseWriter, r *http.Request) {
	var req saveContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.OwnerID == "" || req.ScopeID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "owner_id and scope_id are required")
		return
	}

	res := s.content.Save(r.Context(), req.Text, req.OwnerID, req.ScopeID)
	writeJSON(w, resultStatus(res, http.StatusCreated), res)
}

type batchSaveRequest struct {
	Items []contentuc.BatchItem `json:"items"`
}

// BatchSaveContent handles POST /api/v1/content/batch.
func (s *Server) BatchSaveContent(w http.ResponseWriter, r *http.Request) {
	var req batchSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Items) > maxBatchItems {
		writeError(w, http.StatusBadRequest, codeBadRequest, "too many batch items")
		return
	}

	res := s.content.BatchSave(r.Context(), req.Items)
	writeJSON(w, resultStatus(res, http.StatusCreated), res)
}

type searchResponseItem struct {
	ID         string  `json:"id"`
	OwnerID    string  `json:"owner_id"`
	ScopeID    string  `json:"scope_id"`
	Text       string  `json:"text"`
	Similarity float64 `json:"similarity"`
	CreatedAt  int64   `json:"created_at"`
	UpdatedAt  int64   `json:"updated_at"`
}

type searchResponse struct {
	Items []searchResponseItem `json:"items"`
	Total int                  `json:"total"`
}

// SearchContent handles GET /api/v1/content/search.
func (s *Server) SearchContent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var scopeID, query string
	if err := runtime.BindQueryParameter("form", true, true, "scope_id", q, &scopeID); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "scope_id is required")
		return
	}
	if err := runtime.BindQueryParameter("form", true, true, "q", q, &query); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "q is required")
		return
	}

	var limit int
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid limit")
		return
	}
	var minSimilarity float64
	if err := runtime.BindQueryParameter("form", true, false, "min_similarity", q, &minSimilarity); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid min_similarity")
		return
	}

	matches := s.content.Search(r.Context(), query, scopeID, limit, minSimilarity)

	items := make([]searchResponseItem, len(matches))
	for i, m := range matches {
		items[i] = searchResponseItem{
			ID:         m.Record.ID,
			OwnerID:    m.Record.OwnerID,
			ScopeID:    m.Record.ScopeID,
			Text:       m.Record.Text,
			Similarity: m.Similarity,
			CreatedAt:  m.Record.CreatedAt.UnixMilli(),
			UpdatedAt:  m.Record.UpdatedAt.UnixMilli(),
		}
	}
	writeJSON(w, http.StatusOK, searchResponse{Items: items, Total: len(items)})
}

type listResponseItem struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	ScopeID   string `json:"scope_id"`
	Text      string `json:"text"`
	Preview   string `json:"preview"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

type listResponse struct {
	Items []listResponseItem `json:"items"`
	Total int                `json:"total"`
}

// ListContent handles GET /api/v1/content.
func (s *Server) ListContent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var scopeID, ownerID string
	if err := runtime.BindQueryParameter("form", true, true, "scope_id", q, &scopeID); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "scope_id is required")
		return
	}
	if err := runtime.BindQueryParameter("form", true, true, "owner_id", q, &ownerID); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "owner_id is required")
		return
	}
	var limit int
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "invalid limit")
		return
	}

	recs := s.content.ListByOwner(r.Context(), ownerID, scopeID, limit)

	items := make([]listResponseItem, len(recs))
	for i, rec := range recs {
		items[i] = listResponseItem{
			ID:        rec.ID,
			OwnerID:   rec.OwnerID,
			ScopeID:   rec.ScopeID,
			Text:      rec.Text,
			Preview:   rec.Preview(),
			CreatedAt: rec.CreatedAt.UnixMilli(),
			UpdatedAt: rec.UpdatedAt.UnixMilli(),
		}
	}
	writeJSON(w, http.StatusOK, listResponse{Items: items, Total: len(items)})
}

// ContentStats handles GET /api/v1/content/stats.
func (s *Server) ContentStats(w http.ResponseWriter, r *http.Request) {
	var scopeID string
	if err := runtime.BindQueryParameter("form", true, true, "scope_id", r.URL.Query(), &scopeID); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "scope_id is required")
		return
	}

	res := s.content.ScopeStats(r.Context(), scopeID)
	writeJSON(w, resultStatus(res, http.StatusOK), res)
}

type editContentRequest struct {
	Text        string `json:"text"`
	RequesterID string `json:"requester_id"`
}

// EditContent handles PUT /api/v1/content/{id}.
func (s *Server) EditContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req editContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.RequesterID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "requester_id is required")
		return
	}

	res := s.content.Edit(r.Context(), id, req.Text, req.RequesterID)
	writeJSON(w, resultStatus(res, http.StatusOK), res)
}

// DeleteContent handles DELETE /api/v1/content/{id}.
func (s *Server) DeleteContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var requesterID string
	if err := runtime.BindQueryParameter(
		"form", true, true, "requester_id", r.URL.Query(), &requesterID,
	); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "requester_id is required")
		return
	}

	res := s.content.Delete(r.Context(), id, requesterID)
	writeJSON(w, resultStatus(res, http.StatusOK), res)
}

// TestStore handles POST /api/v1/diagnostics/store.
func (s *Server) TestStore(w http.ResponseWriter, r *http.Request) {
	res := s.content.TestConnection(r.Context())
	writeJSON(w, resultStatus(res, http.StatusOK), res)
}

type roomRequest struct {
	ScopeID     string `json:"scope_id"`
	RequesterID string `json:"requester_id"`
	PreloadURL  string `json:"preload_url,omitempty"`
}

type roomResponse struct {
	Room    domain.WatchRoom `json:"room"`
	Created bool             `json:"created"`
}

// GetOrCreateRoom handles POST /api/v1/rooms.
func (s *Server) GetOrCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.ScopeID == "" || req.RequesterID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "scope_id and requester_id are required")
		return
	}

	room, created, err := s.rooms.GetOrCreate(r.Context(), req.ScopeID, req.RequesterID, req.PreloadURL)
	if err != nil {
		s.logger.Warn("Room request failed", zap.String("scope_id", req.ScopeID), zap.Error(err))
		if errors.Is(err, domain.ErrRoomUnavailable) {
			writeError(w, http.StatusBadGateway, codeRoomError, "Failed to create a watch room. Please try again later.")
			return
		}
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, roomResponse{Room: room, Created: created})
}

// DeleteRoom handles DELETE /api/v1/rooms/{scopeID}.
func (s *Server) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	scopeID := chi.URLParam(r, "scopeID")
	if err := s.rooms.Delete(r.Context(), scopeID); err != nil {
		s.logger.Warn("Room delete failed", zap.String("scope_id", scopeID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type healthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status:  string(report.Status),
		Checks:  checks,
		Details: report.Details,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// resultStatus maps an OperationResult onto an HTTP status: the envelope is
// returned either way, the status line just mirrors the outcome code.
func resultStatus(res domain.OperationResult, okStatus int) int {
	if res.Success {
		return okStatus
	}
	switch res.Code {
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeForbidden:
		return http.StatusForbidden
	case domain.CodeInvalid:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusServiceUnavailable
	}
}
