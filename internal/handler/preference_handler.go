package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/travira/internal/middleware"
	"github.com/hitoshi/travira/internal/model"
	"github.com/hitoshi/travira/internal/repository"
)

// PreferenceServiceInterface は旅行設定ハンドラーが必要とするサービスインターフェース。
type PreferenceServiceInterface interface {
	// Get はユーザーの旅行設定を返す。未設定の場合はnilを返す。
	Get(ctx context.Context, userID string) (*model.TravelPreferences, error)
	// Update は旅行設定を検証してUPSERTする。nilフィールドは変更しない。
	Update(ctx context.Context, userID string, update repository.PreferenceUpdate) (*model.TravelPreferences, error)
}

// PreferenceHandler は旅行設定のHTTPハンドラー。
type PreferenceHandler struct {
	service PreferenceServiceInterface
}

// NewPreferenceHandler はPreferenceHandlerを生成する。
func NewPreferenceHandler(service PreferenceServiceInterface) *PreferenceHandler {
	return &PreferenceHandler{service: service}
}

// --- リクエスト・レスポンス型 ---

// preferenceRequest は旅行設定更新リクエストのボディ。
// 省略されたフィールドは既存の値を維持する。
type preferenceRequest struct {
	HomeAirports      *[]string `json:"homeAirports,omitempty"`
	DreamDestinations *[]string `json:"dreamDestinations,omitempty"`
	DeliveryFrequency *string   `json:"deliveryFrequency,omitempty"`
	MaxBudget         *float64  `json:"maxBudget,omitempty"`
	PreferredAirlines *[]string `json:"preferredAirlines,omitempty"`
	Currency          *string   `json:"currency,omitempty"`
	HeaderImageURL    *string   `json:"headerImageUrl,omitempty"`
}

// preferenceResponse は旅行設定のレスポンス。
type preferenceResponse struct {
	ID                string     `json:"id"`
	UserID            string     `json:"userId"`
	HomeAirports      []string   `json:"homeAirports"`
	DreamDestinations []string   `json:"dreamDestinations"`
	DeliveryFrequency string     `json:"deliveryFrequency"`
	MaxBudget         *float64   `json:"maxBudget"`
	PreferredAirlines []string   `json:"preferredAirlines"`
	Currency          string     `json:"currency"`
	HeaderImageURL    *string    `json:"headerImageUrl"`
	LastNotifiedAt    *time.Time `json:"lastNotifiedAt"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func toPreferenceResponse(prefs *model.TravelPreferences) preferenceResponse {
	return preferenceResponse{
		ID:                prefs.ID,
		UserID:            prefs.UserID,
		HomeAirports:      prefs.HomeAirports,
		DreamDestinations: prefs.DreamDestinations,
		DeliveryFrequency: string(prefs.DeliveryFrequency),
		MaxBudget:         prefs.MaxBudget,
		PreferredAirlines: prefs.PreferredAirlines,
		Currency:          prefs.Currency,
		HeaderImageURL:    prefs.HeaderImageURL,
		LastNotifiedAt:    prefs.LastNotifiedAt,
		CreatedAt:         prefs.CreatedAt,
		UpdatedAt:         prefs.UpdatedAt,
	}
}

// resolvePathUserID はパスのuserIdと認証済みユーザーIDの一致を検証する。
// 不一致の場合はUSER_MISMATCHを返し、他ユーザーのリソース操作を防ぐ。
func resolvePathUserID(r *http.Request) (string, *model.APIError) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		return "", model.NewUnauthorizedError()
	}

	pathUserID := chi.URLParam(r, "userId")
	if pathUserID != "" && pathUserID != userID {
		return "", model.NewUserMismatchError()
	}

	return userID, nil
}

// GetPreferences はユーザーの旅行設定を取得する。
// GET /api/users/:userId/preferences
// 未設定の場合は404ではなくnullボディの200を返す。
func (h *PreferenceHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := resolvePathUserID(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	prefs, err := h.service.Get(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if prefs == nil {
		w.Write([]byte("null"))
		return
	}
	json.NewEncoder(w).Encode(toPreferenceResponse(prefs))
}

// UpdatePreferences は旅行設定を更新する。
// PUT /api/users/:userId/preferences
func (h *PreferenceHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID, apiErr := resolvePathUserID(r)
	if apiErr != nil {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	var req preferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	update := repository.PreferenceUpdate{
		HomeAirports:      req.HomeAirports,
		DreamDestinations: req.DreamDestinations,
		MaxBudget:         req.MaxBudget,
		PreferredAirlines: req.PreferredAirlines,
		Currency:          req.Currency,
		HeaderImageURL:    req.HeaderImageURL,
	}
	if req.DeliveryFrequency != nil {
		freq := model.DeliveryFrequency(*req.DeliveryFrequency)
		update.DeliveryFrequency = &freq
	}

	prefs, err := h.service.Update(r.Context(), userID, update)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPreferenceResponse(prefs))
}
