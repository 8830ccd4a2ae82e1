package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	apimw "github.com/classboard/notify-worker/internal/api/middleware"
	"github.com/classboard/notify-worker/internal/dispatcher"
)

// DispatchHandler exposes the queue-drain trigger. Each POST performs one
// complete, bounded invocation of the dispatcher and returns its summary.
type DispatchHandler struct {
	d          *dispatcher.Dispatcher
	observeRun func(elapsed time.Duration)
	logger     *zap.Logger
}

// NewDispatchHandler constructs the handler. observeRun is optional
// (nil = no-op) and records invocation duration for metrics.
func NewDispatchHandler(d *dispatcher.Dispatcher, observeRun func(time.Duration), logger *zap.Logger) *DispatchHandler {
	if observeRun == nil {
		observeRun = func(time.Duration) {}
	}
	return &DispatchHandler{d: d, observeRun: observeRun, logger: logger}
}

// Dispatch handles POST /api/v1/dispatch
//
// Responds 200 with the run summary, including the gate-closed no-op case.
// Only a failed eligible-batch fetch produces a 500; per-item failures are
// reported through the counters and each row's persisted last_error.
func (h *DispatchHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	summary, err := h.d.Run(r.Context())
	h.observeRun(time.Since(start))

	if err != nil {
		h.logger.Error("dispatch run failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, "dispatch run failed")
		return
	}

	message := "dispatch run complete"
	if summary.Disabled {
		message = "email notifications are disabled"
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":   message,
		"processed": summary.Processed,
		"sent":      summary.Sent,
		"failed":    summary.Failed,
		"dry_run":   summary.DryRun,
	})
}
