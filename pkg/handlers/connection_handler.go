package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/adapters/warehouse"
	"github.com/ekaya-inc/ekaya-insight/pkg/llm"
	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

const warehouseTestTimeout = 60 * time.Second

// WarehouseTestResult reports whether a warehouse session could be opened.
type WarehouseTestResult struct {
	Success bool         `json:"success"`
	Message string       `json:"message,omitempty"`
	Info    []models.Row `json:"info,omitempty"`
}

// ConnectionTestResponse combines warehouse and model connectivity.
type ConnectionTestResponse struct {
	Warehouse WarehouseTestResult `json:"warehouse"`
	LLM       *llm.TestResult     `json:"llm"`
}

// ConnectionHandler probes the warehouse and the model providers.
type ConnectionHandler struct {
	opener warehouse.Opener
	tester llm.ConnectionTester
	logger *zap.Logger
}

func NewConnectionHandler(opener warehouse.Opener, tester llm.ConnectionTester, logger *zap.Logger) *ConnectionHandler {
	return &ConnectionHandler{opener: opener, tester: tester, logger: logger.Named("connection-handler")}
}

func (h *ConnectionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/connection/test", h.Test)
}

// Test handles GET /api/connection/test. Failures are reported in the body;
// the status is 200 whenever the probe itself ran.
func (h *ConnectionHandler) Test(w http.ResponseWriter, r *http.Request) {
	response := ConnectionTestResponse{
		Warehouse: TestWarehouse(r.Context(), h.opener),
		LLM:       h.tester.Test(r.Context()),
	}
	if !response.Warehouse.Success {
		h.logger.Warn("Warehouse connection test failed", zap.String("message", response.Warehouse.Message))
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: response.Warehouse.Success && response.LLM.Success, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// TestWarehouse opens a session and reads its identity.
func TestWarehouse(ctx context.Context, opener warehouse.Opener) WarehouseTestResult {
	ctx, cancel := context.WithTimeout(ctx, warehouseTestTimeout)
	defer cancel()

	wh, err := opener.Open(ctx)
	if err != nil {
		return WarehouseTestResult{Message: logging.SanitizeError(err)}
	}
	defer wh.Close()

	info, err := wh.TestConnection(ctx)
	if err != nil {
		return WarehouseTestResult{Message: logging.SanitizeError(err)}
	}
	return WarehouseTestResult{Success: true, Message: "Connected", Info: info}
}
