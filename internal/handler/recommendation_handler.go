package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/travira/internal/metrics"
	"github.com/hitoshi/travira/internal/model"
)

// RecommendationServiceInterface はディールハンドラーが必要とするサービスインターフェース。
type RecommendationServiceInterface interface {
	List(ctx context.Context, userID string) ([]*model.FlightRecommendation, error)
	ListWatched(ctx context.Context, userID string) ([]*model.FlightRecommendation, error)
	ToggleWatch(ctx context.Context, userID, recommendationID string) (*model.FlightRecommendation, error)
	Delete(ctx context.Context, userID, recommendationID string) error
	BulkDelete(ctx context.Context, userID string, recommendationIDs []string) (int, error)
}

// RecommendationHandler はフライトディールのHTTPハンドラー。
type RecommendationHandler struct {
	service RecommendationServiceInterface
	metrics metrics.MetricsCollector
}

// NewRecommendationHandler はRecommendationHandlerを生成する。
func NewRecommendationHandler(service RecommendationServiceInterface, collector metrics.MetricsCollector) *RecommendationHandler {
	return &RecommendationHandler{
		service: service,
		metrics: collector,
	}
}

// recommendationResponse はフライトディールのレスポンス。
type recommendationResponse struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	Origin         string     `json:"origin"`
	Destination    string     `json:"destination"`
	Airline        string     `json:"airline"`
	FlightNumber   string     `json:"flightNumber"`
	Price          float64    `json:"price"`
	Currency       string     `json:"currency"`
	DepartureDate  time.Time  `json:"departureDate"`
	ReturnDate     *time.Time `json:"returnDate"`
	BookingURL     string     `json:"bookingUrl"`
	DealQuality    string     `json:"dealQuality"`
	Summary        string     `json:"summary"`
	IsWatched      bool       `json:"isWatched"`
	IsActive       bool       `json:"isActive"`
	NotifiedAt     *time.Time `json:"notifiedAt"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func toRecommendationResponse(rec *model.FlightRecommendation) recommendationResponse {
	return recommendationResponse{
		ID:            rec.ID,
		UserID:        rec.UserID,
		Origin:        rec.Origin,
		Destination:   rec.Destination,
		Airline:       rec.Airline,
		FlightNumber:  rec.FlightNumber,
		Price:         rec.Price,
		Currency:      rec.Currency,
		DepartureDate: rec.DepartureDate,
		ReturnDate:    rec.ReturnDate,
		BookingURL:    rec.BookingURL,
		DealQuality:   string(rec.DealQuality),
		Summary:       rec.Summary,
		IsWatched:     rec.IsWatched,
		IsActive:      rec.IsActive,
		NotifiedAt:    rec.NotifiedAt,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

func toRecommendationResponses(recs []*model.FlightRecommendation) []recommendationResponse {
	// nilスライスでも空配列としてシリアライズする
	responses := make([]recommendationResponse, 0, len(recs))
	for _, rec := range recs {
		responses = append(responses, toRecommendationResponse(rec))
	}
	return responses
}

// ListDeals はユーザーの有効なディール一覧を返す。
// GET /api/users/:userId/deals
func (h *RecommendationHandler) ListDeals(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := resolvePathUserID(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	recs, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"deals": toRecommendationResponses(recs),
	})
}

// ListWatchedDeals はウォッチ中のディール一覧を返す。
// GET /api/users/:userId/deals/watched
func (h *RecommendationHandler) ListWatchedDeals(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := resolvePathUserID(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	recs, err := h.service.ListWatched(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"deals": toRecommendationResponses(recs),
	})
}

// ToggleWatch はディールのウォッチフラグを反転する。
// PATCH /api/users/:userId/deals/:dealId/watch
func (h *RecommendationHandler) ToggleWatch(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := resolvePathUserID(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	dealID := chi.URLParam(r, "dealId")
	rec, err := h.service.ToggleWatch(r.Context(), userID, dealID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":   true,
		"isWatched": rec.IsWatched,
	})
}

// DeleteDeal は単一のディールを削除する。
// DELETE /api/users/:userId/deals/:dealId
func (h *RecommendationHandler) DeleteDeal(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := resolvePathUserID(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	dealID := chi.URLParam(r, "dealId")
	if err := h.service.Delete(r.Context(), userID, dealID); err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordDealsDeleted(1)
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "ディールを削除しました",
	})
}

// bulkDeleteRequest は一括削除リクエストのボディ。
type bulkDeleteRequest struct {
	DealIDs []string `json:"dealIds"`
}

// BulkDeleteDeals は複数のディールを一括削除する。
// 所有外のIDは黙ってスキップし、実際に削除した件数を返す。
// POST /api/users/:userId/deals/bulk-delete
func (h *RecommendationHandler) BulkDeleteDeals(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := resolvePathUserID(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	var req bulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	count, err := h.service.BulkDelete(r.Context(), userID, req.DealIDs)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if count > 0 {
		h.metrics.RecordDealsDeleted(count)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":      true,
		"deletedCount": count,
	})
}
