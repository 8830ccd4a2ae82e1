package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/classboard/notify-worker/internal/domain"
	"github.com/classboard/notify-worker/internal/service"
)

// QueueHandler serves queue inspection and the recipient cleanup endpoint.
type QueueHandler struct {
	svc    *service.QueueService
	logger *zap.Logger
}

func NewQueueHandler(svc *service.QueueService, logger *zap.Logger) *QueueHandler {
	return &QueueHandler{svc: svc, logger: logger}
}

// List handles GET /api/v1/queue
func (h *QueueHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := parseListFilter(r)
	items, total, err := h.svc.List(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list queue items")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"data":  items,
		"total": total,
		"page":  filter.Page,
		"limit": filter.Limit,
	})
}

// GetByID handles GET /api/v1/queue/{id}
func (h *QueueHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// Stats handles GET /api/v1/queue/stats
//
// Row counts per status; failed and pending-with-last_error rows are the
// operational signal this worker exposes in place of real-time alerting.
func (h *QueueHandler) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.Stats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to read queue stats")
		return
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"by_status": counts,
		"total":     total,
	})
}

// Cancel handles POST /api/v1/queue/cancel
//
// Account-deletion cleanup fan-out: cancels every pending notification
// addressed to the given recipient.
func (h *QueueHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req domain.CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	n, err := h.svc.CancelForRecipient(r.Context(), req)
	if err != nil {
		h.logger.Warn("cancel for recipient failed", zap.Error(err))
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"cancelled": n})
}

func parseListFilter(r *http.Request) domain.ListFilter {
	q := r.URL.Query()
	filter := domain.ListFilter{Page: 1, Limit: 20}

	if p, err := strconv.Atoi(q.Get("page")); err == nil && p > 0 {
		filter.Page = p
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil && l > 0 && l <= 100 {
		filter.Limit = l
	}
	if s := q.Get("status"); s != "" {
		st := domain.Status(s)
		filter.Status = &st
	}
	if rec := q.Get("recipient"); rec != "" {
		filter.Recipient = &rec
	}
	if f := q.Get("from"); f != "" {
		if t, err := time.Parse(time.RFC3339, f); err == nil {
			filter.From = &t
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filter.To = &t
		}
	}
	return filter
}
