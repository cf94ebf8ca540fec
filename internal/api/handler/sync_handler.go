package handler

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/eprhub/prn-integration/internal/service"
)

// SyncHandler exposes manual triggers and inspection endpoints for the
// synchronization pipeline. The scheduled workers run the same code
// paths; these endpoints exist for operators.
type SyncHandler struct {
	svc    *service.SyncService
	logger *zap.Logger
}

func NewSyncHandler(svc *service.SyncService, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{svc: svc, logger: logger}
}

// TriggerFetch handles POST /api/v1/sync/prns
func (h *SyncHandler) TriggerFetch(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.TriggerFetch(r.Context()); err != nil {
		h.logger.Error("manual fetch run failed", zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "completed"})
}

// TriggerPush handles POST /api/v1/sync/producers
func (h *SyncHandler) TriggerPush(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.TriggerPush(r.Context()); err != nil {
		h.logger.Error("manual push run failed", zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]string{"status": "completed"})
}

// Cursors handles GET /api/v1/sync/cursors
func (h *SyncHandler) Cursors(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.Cursors(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"cursors": views})
}

// QueueDepths handles GET /api/v1/queue/depths
func (h *SyncHandler) QueueDepths(w http.ResponseWriter, r *http.Request) {
	work, retry, errored, err := h.svc.QueueDepths(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"queue_depth": map[string]int{
			"work":  work,
			"retry": retry,
			"error": errored,
			"total": work + retry + errored,
		},
	})
}

// DeadLetters handles GET /api/v1/queue/errors
func (h *SyncHandler) DeadLetters(w http.ResponseWriter, r *http.Request) {
	max := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			max = n
		}
	}

	views, err := h.svc.DeadLetters(r.Context(), max)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"messages": views, "count": len(views)})
}
