package handler

import (
	"context"
	"encoding/json"
	"net/http"
)

// NotificationServiceInterface は通知ハンドラーが必要とするサービスインターフェース。
type NotificationServiceInterface interface {
	// SendDealsNow は未通知ディールのダイジェストを即時送信し、送信した件数を返す。
	SendDealsNow(ctx context.Context, userID string) (int, error)
}

// NotificationHandler はディール通知のHTTPハンドラー。
type NotificationHandler struct {
	service NotificationServiceInterface
}

// NewNotificationHandler はNotificationHandlerを生成する。
func NewNotificationHandler(service NotificationServiceInterface) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// SendDeals は未通知ディールのダイジェストメールを即時送信する。
// 定期配信を待たずに手動で配信を要求するエンドポイントで、
// 専用のレート制限が適用される。
// POST /api/users/:userId/notifications/deals
func (h *NotificationHandler) SendDeals(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := resolvePathUserID(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	count, err := h.service.SendDealsNow(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{"sentCount": count})
}
