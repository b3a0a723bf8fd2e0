package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/corpus"
	"github.com/ekaya-inc/ekaya-insight/pkg/graph"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
	"github.com/ekaya-inc/ekaya-insight/pkg/services"
	"github.com/ekaya-inc/ekaya-insight/pkg/storage"
)

const (
	defaultGraphSearchLimit = 20
	maxGraphSearchLimit     = 100
)

// DocsResponse lists corpus documents matching a filter.
type DocsResponse struct {
	Query     string            `json:"query"`
	Summary   string            `json:"summary"`
	Total     int               `json:"total"`
	Documents []models.Document `json:"documents"`
}

// GraphSearchResponse lists graph nodes matching a keyword.
type GraphSearchResponse struct {
	Query   string        `json:"query"`
	Matches []graph.Match `json:"matches"`
}

// MetadataHandler exposes the persisted metadata artifacts and refresh.
type MetadataHandler struct {
	snapshots storage.SnapshotStore
	docsPath  string
	graphs    *graph.Store
	refresh   services.RefreshService
	logger    *zap.Logger
}

func NewMetadataHandler(snapshots storage.SnapshotStore, docsPath string, graphs *graph.Store, refresh services.RefreshService, logger *zap.Logger) *MetadataHandler {
	return &MetadataHandler{
		snapshots: snapshots,
		docsPath:  docsPath,
		graphs:    graphs,
		refresh:   refresh,
		logger:    logger.Named("metadata-handler"),
	}
}

func (h *MetadataHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/metadata/snapshot", h.Snapshot)
	mux.HandleFunc("GET /api/metadata/docs", h.Docs)
	mux.HandleFunc("GET /api/metadata/graph/search", h.GraphSearch)
	mux.HandleFunc("POST /api/metadata/refresh", h.Refresh)
}

// Snapshot handles GET /api/metadata/snapshot
func (h *MetadataHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.snapshots.Load()
	if err != nil {
		h.logger.Warn("Snapshot unavailable", zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: snapshot}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Docs handles GET /api/metadata/docs?q=
func (h *MetadataHandler) Docs(w http.ResponseWriter, r *http.Request) {
	docs, err := corpus.Load(h.docsPath)
	if err != nil {
		h.logger.Error("Failed to read document corpus", zap.String("path", h.docsPath), zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	q := r.URL.Query().Get("q")
	filtered := corpus.Filter(docs, q)
	response := DocsResponse{
		Query:     q,
		Summary:   corpus.Summary(docs),
		Total:     len(filtered),
		Documents: filtered,
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// GraphSearch handles GET /api/metadata/graph/search?q=&limit=
func (h *MetadataHandler) GraphSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "q is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	limit := defaultGraphSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "limit must be a positive integer"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		limit = min(n, maxGraphSearchLimit)
	}

	response := GraphSearchResponse{Query: q, Matches: h.graphs.Current().Search(q, limit)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Refresh handles POST /api/metadata/refresh
func (h *MetadataHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	report, err := h.refresh.Refresh(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: report}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
