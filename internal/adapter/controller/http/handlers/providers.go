package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noplanalderson/argus/internal/adapter/external/tip"
	"github.com/noplanalderson/argus/internal/entity"
)

// ProvidersHandler exposes collector state for operators
type ProvidersHandler struct {
	collector *tip.Collector
}

// NewProvidersHandler creates a new providers handler
func NewProvidersHandler(collector *tip.Collector) *ProvidersHandler {
	return &ProvidersHandler{collector: collector}
}

// List returns the configured intel providers
// GET /api/v1/providers
func (h *ProvidersHandler) List(w http.ResponseWriter, r *http.Request) {
	providers := h.collector.Providers()
	JSONResponse(w, http.StatusOK, map[string]interface{}{
		"count":     len(providers),
		"providers": providers,
	})
}

// CacheStats returns in-memory result cache statistics
// GET /api/v1/providers/cache
func (h *ProvidersHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, http.StatusOK, h.collector.CacheStats())
}

// ClearCache drops all cached provider results
// DELETE /api/v1/providers/cache
func (h *ProvidersHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.collector.ClearCache()
	SuccessResponse(w, "Provider result cache cleared", nil)
}

// RefreshObservable forgets cached and stored provider results for one
// observable so its next analysis refetches from every provider
// POST /api/v1/cache/refresh/{observable}
func (h *ProvidersHandler) RefreshObservable(w http.ResponseWriter, r *http.Request) {
	obs, err := entity.ParseObservable(chi.URLParam(r, "observable"))
	if err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid observable", err)
		return
	}

	if err := h.collector.Invalidate(r.Context(), obs.Value); err != nil {
		ErrorResponse(w, http.StatusInternalServerError, "Failed to invalidate provider results", err)
		return
	}

	SuccessResponse(w, "Provider results invalidated", map[string]string{"observable": obs.Value})
}
