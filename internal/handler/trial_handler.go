package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/travira/internal/metrics"
	"github.com/hitoshi/travira/internal/trial"
)

// TrialServiceInterface はトライアルハンドラーが必要とするサービスインターフェース。
type TrialServiceInterface interface {
	Start(ctx context.Context, userID string) (*trial.Info, error)
	Status(ctx context.Context, userID string) (*trial.Info, error)
}

// TrialHandler はトライアルのHTTPハンドラー。
type TrialHandler struct {
	service TrialServiceInterface
	metrics metrics.MetricsCollector
}

// NewTrialHandler はTrialHandlerを生成する。
func NewTrialHandler(service TrialServiceInterface, collector metrics.MetricsCollector) *TrialHandler {
	return &TrialHandler{
		service: service,
		metrics: collector,
	}
}

// StartTrial はユーザーのトライアルを開始する。期限切れ後の再実行でもリセットする。
// POST /api/users/:userId/trial/start
func (h *TrialHandler) StartTrial(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := resolvePathUserID(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	info, err := h.service.Start(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordTrialStarted()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}

// GetTrialStatus はユーザーの現在のトライアル状態を返す。
// GET /api/users/:userId/trial
func (h *TrialHandler) GetTrialStatus(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := resolvePathUserID(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	info, err := h.service.Status(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}
