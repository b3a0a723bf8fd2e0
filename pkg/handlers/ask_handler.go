package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/services"
)

// AskRequest is the body of POST /api/ask.
type AskRequest struct {
	Question string `json:"question"`
}

// AskHandler answers business questions.
type AskHandler struct {
	synthesizer services.QuerySynthesizer
	logger      *zap.Logger
}

func NewAskHandler(synthesizer services.QuerySynthesizer, logger *zap.Logger) *AskHandler {
	return &AskHandler{synthesizer: synthesizer, logger: logger.Named("ask-handler")}
}

func (h *AskHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ask", h.Ask)
}

// Ask handles POST /api/ask
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "question is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	out, err := h.synthesizer.Synthesize(r.Context(), question)
	if err != nil {
		h.logger.Error("Failed to answer question", zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: out}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
