package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/noplanalderson/argus/internal/adapter/external/blocklist"
	"github.com/noplanalderson/argus/internal/entity"
)

// BlockedLister reads decided blocks from storage.
type BlockedLister interface {
	ListBlocked(ctx context.Context, filter entity.BlockedFilter) ([]entity.BlockedEntry, error)
	CountBlocked(ctx context.Context, filter entity.BlockedFilter) (uint64, error)
}

// BlocklistHandler handles block decisions and local block-set HTTP requests
type BlocklistHandler struct {
	store   BlockedLister
	index   *blocklist.Index
	builder *blocklist.Builder
}

// NewBlocklistHandler creates a new blocklist handler
func NewBlocklistHandler(store BlockedLister, index *blocklist.Index, builder *blocklist.Builder) *BlocklistHandler {
	return &BlocklistHandler{store: store, index: index, builder: builder}
}

// ListBlocked returns observables with a recorded block decision, optionally
// bounded by a from/to date range (RFC 3339 or YYYY-MM-DD)
// GET /api/v1/blocklist?from=&to=&limit=&offset=
func (h *BlocklistHandler) ListBlocked(w http.ResponseWriter, r *http.Request) {
	filter := entity.BlockedFilter{
		Limit:  QueryInt(r, "limit", 50),
		Offset: QueryInt(r, "offset", 0),
	}
	if filter.Limit > 500 {
		filter.Limit = 500
	}

	var err error
	if filter.From, err = queryTime(r, "from"); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid from parameter", err)
		return
	}
	if filter.To, err = queryTime(r, "to"); err != nil {
		ErrorResponse(w, http.StatusBadRequest, "Invalid to parameter", err)
		return
	}

	h.respondBlocked(w, r, filter)
}

// ListBlocked24h returns block decisions recorded in the last 24 hours
// GET /api/v1/blocklist/24h
func (h *BlocklistHandler) ListBlocked24h(w http.ResponseWriter, r *http.Request) {
	filter := entity.BlockedFilter{
		From:   time.Now().UTC().Add(-24 * time.Hour),
		Limit:  QueryInt(r, "limit", 50),
		Offset: QueryInt(r, "offset", 0),
	}
	if filter.Limit > 500 {
		filter.Limit = 500
	}

	h.respondBlocked(w, r, filter)
}

func (h *BlocklistHandler) respondBlocked(w http.ResponseWriter, r *http.Request, filter entity.BlockedFilter) {
	ctx := r.Context()

	entries, err := h.store.ListBlocked(ctx, filter)
	if err != nil {
		ErrorResponse(w, http.StatusInternalServerError, "Failed to list blocked observables", err)
		return
	}

	total, err := h.store.CountBlocked(ctx, filter)
	if err != nil {
		ErrorResponse(w, http.StatusInternalServerError, "Failed to count blocked observables", err)
		return
	}

	JSONResponse(w, http.StatusOK, NewPaginatedResponse(entries, int64(total), filter.Limit, filter.Offset))
}

func queryTime(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", raw)
}

// IndexStats returns the state of the local block-set index
// GET /api/v1/blocklist/index
func (h *BlocklistHandler) IndexStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.index.Stats()
	if err != nil {
		ErrorResponse(w, http.StatusInternalServerError, "Failed to read block-set stats", err)
		return
	}

	JSONResponse(w, http.StatusOK, stats)
}

// Rebuild re-ingests the configured block-set source into the index
// POST /api/v1/blocklist/index/rebuild
func (h *BlocklistHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if h.builder == nil {
		ErrorResponse(w, http.StatusServiceUnavailable, "No block-set source configured", nil)
		return
	}

	if err := h.builder.Rebuild(r.Context()); err != nil {
		ErrorResponse(w, http.StatusInternalServerError, "Block-set rebuild failed", err)
		return
	}

	stats, err := h.index.Stats()
	if err != nil {
		ErrorResponse(w, http.StatusInternalServerError, "Failed to read block-set stats", err)
		return
	}

	SuccessResponse(w, "Block-set rebuilt", stats)
}
