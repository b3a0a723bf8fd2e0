package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/services"
)

// RunQueryRequest is the body of POST /api/query/run.
type RunQueryRequest struct {
	SQL string `json:"sql"`
}

// QueryHandler runs generated SQL.
type QueryHandler struct {
	runner services.QueryRunner
	logger *zap.Logger
}

func NewQueryHandler(runner services.QueryRunner, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{runner: runner, logger: logger.Named("query-handler")}
}

func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/query/run", h.Run)
}

// Run handles POST /api/query/run
func (h *QueryHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req RunQueryRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	result, err := h.runner.Run(r.Context(), req.SQL)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: result}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
