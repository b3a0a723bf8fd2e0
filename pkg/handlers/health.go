package handlers

import (
	"errors"
	"net/http"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-insight/pkg/config"
	"github.com/ekaya-inc/ekaya-insight/pkg/graph"
	"github.com/ekaya-inc/ekaya-insight/pkg/storage"
	"github.com/ekaya-inc/ekaya-insight/pkg/vectorindex"
)

// Ping statuses. Anything but "ok" still answers 200 so load balancers keep
// routing to a process that can serve retrieval-only requests.
const (
	PingStatusOK         = "ok"
	PingStatusNoMetadata = "no_metadata"
	PingStatusDegraded   = "degraded"
)

// MetadataStatus describes the derived state the last refresh left behind.
type MetadataStatus struct {
	RefreshID       string   `json:"refresh_id,omitempty"`
	ExtractedAt     string   `json:"extracted_at,omitempty"`
	AgeSeconds      *float64 `json:"age_seconds"`
	GraphNodes      int      `json:"graph_nodes"`
	VectorRetrieval bool     `json:"vector_retrieval"`
}

// PingResponse contains service status, version and metadata freshness.
type PingResponse struct {
	Status      string         `json:"status"`
	Version     string         `json:"version"`
	Service     string         `json:"service"`
	GoVersion   string         `json:"go_version"`
	Hostname    string         `json:"hostname"`
	Environment string         `json:"environment"`
	Warehouse   string         `json:"warehouse"`
	Metadata    MetadataStatus `json:"metadata"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg       *config.Config
	snapshots storage.SnapshotStore
	graphs    *graph.Store
	index     vectorindex.Index
	now       func() time.Time
	logger    *zap.Logger
}

// NewHealthHandler creates a HealthHandler. snapshots, graphs and index may
// be nil; the matching fields of the ping response are then left empty.
func NewHealthHandler(cfg *config.Config, snapshots storage.SnapshotStore, graphs *graph.Store, index vectorindex.Index, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		cfg:       cfg,
		snapshots: snapshots,
		graphs:    graphs,
		index:     index,
		now:       time.Now,
		logger:    logger,
	}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health requests.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping requests.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	status, metadata := h.metadataStatus()
	response := PingResponse{
		Status:      status,
		Version:     h.cfg.Version,
		Service:     "ekaya-insight",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
		Warehouse:   h.cfg.Warehouse.Type,
		Metadata:    metadata,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}

func (h *HealthHandler) metadataStatus() (string, MetadataStatus) {
	var m MetadataStatus
	if h.graphs != nil {
		m.GraphNodes = h.graphs.Current().NodeCount()
	}
	if h.index != nil {
		m.VectorRetrieval = h.index.Available()
	}
	if h.snapshots == nil {
		return PingStatusNoMetadata, m
	}

	snapshot, err := h.snapshots.Load()
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return PingStatusNoMetadata, m
	case err != nil:
		h.logger.Warn("Failed to read metadata snapshot for ping", zap.Error(err))
		return PingStatusDegraded, m
	}

	m.RefreshID = snapshot.RefreshID
	m.ExtractedAt = snapshot.ExtractedAt
	if extracted, err := time.Parse(time.RFC3339, snapshot.ExtractedAt); err == nil {
		age := h.now().Sub(extracted).Seconds()
		m.AgeSeconds = &age
	}
	return PingStatusOK, m
}
