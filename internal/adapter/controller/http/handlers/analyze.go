package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/noplanalderson/argus/internal/entity"
	"github.com/noplanalderson/argus/internal/usecase/analyzer"
)

// HistoryStore reads persisted analysis records.
type HistoryStore interface {
	GetLatest(ctx context.Context, observable string) (*entity.AnalysisRecord, error)
	ListHistory(ctx context.Context, observable string, limit int) ([]entity.AnalysisRecord, error)
}

// AnalyzeHandler handles observable analysis HTTP requests
type AnalyzeHandler struct {
	service *analyzer.Service
	history HistoryStore
}

// NewAnalyzeHandler creates a new analyze handler
func NewAnalyzeHandler(service *analyzer.Service, history HistoryStore) *AnalyzeHandler {
	return &AnalyzeHandler{service: service, history: history}
}

// Analyze runs the full analysis pipeline for one observable
// POST /api/v1/analyze
func (h *AnalyzeHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req analyzer.Request
	if err := DecodeJSON(r, &req); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	obs, err := entity.ParseObservable(req.Observable)
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid observable", err)
		return
	}
	if obs.Type == entity.ObservableIP && !obs.IsPublicIP() {
		ErrorResponse(w, http.StatusUnprocessableEntity, "Observable is not publicly routable", nil)
		return
	}

	result, err := h.service.Analyze(ctx, req)
	if err != nil {
		ErrorResponse(w, http.StatusInternalServerError, "Analysis failed", err)
		return
	}

	JSONResponse(w, http.StatusOK, result)
}

// Check returns the stored decision for an observable without re-analyzing
// GET /api/v1/check/{observable}
func (h *AnalyzeHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	obs, err := entity.ParseObservable(chi.URLParam(r, "observable"))
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid observable", err)
		return
	}

	record, err := h.history.GetLatest(ctx, obs.Value)
	if err != nil {
		ErrorResponse(w, http.StatusInternalServerError, "Failed to read analysis history", err)
		return
	}
	if record == nil {
		ErrorResponse(w, http.StatusNotFound, "Observable has never been analyzed", nil)
		return
	}

	now := time.Now().UTC()
	JSONResponse(w, http.StatusOK, map[string]interface{}{
		"observable":    record.Observable,
		"blockmode":     record.Decision.BlockMode,
		"blocked":       record.Decision.BlockMode != entity.BlockNone && !record.Expired(now),
		"expired":       record.Expired(now),
		"tip_score":     record.TIPScore,
		"wazuh_score":   record.WazuhScore,
		"overall_score": record.OverallScore,
		"decided_at":    record.CreatedAt,
		"updated_at":    record.UpdatedAt,
	})
}

// History lists stored analysis runs for an observable
// GET /api/v1/history/{observable}
func (h *AnalyzeHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	obs, err := entity.ParseObservable(chi.URLParam(r, "observable"))
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid observable", err)
		return
	}

	limit := QueryInt(r, "limit", 20)
	if limit > 100 {
		limit = 100
	}

	records, err := h.history.ListHistory(ctx, obs.Value, limit)
	if err != nil {
		ErrorResponse(w, http.StatusInternalServerError, "Failed to read analysis history", err)
		return
	}

	JSONResponse(w, http.StatusOK, map[string]interface{}{
		"observable": obs.Value,
		"count":      len(records),
		"records":    records,
	})
}
