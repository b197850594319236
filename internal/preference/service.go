// Package preference は旅行設定の取得と更新を提供する。
package preference

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/travira/internal/model"
	"github.com/hitoshi/travira/internal/repository"
	"github.com/hitoshi/travira/internal/security"
)

// Service は旅行設定に関するビジネスロジックを提供する。
type Service struct {
	prefRepo  repository.PreferenceRepository
	ssrfGuard security.SSRFGuardService
}

// NewService はServiceを生成する。
func NewService(prefRepo repository.PreferenceRepository, ssrfGuard security.SSRFGuardService) *Service {
	return &Service{
		prefRepo:  prefRepo,
		ssrfGuard: ssrfGuard,
	}
}

// Get はユーザーの旅行設定を取得する。
// 未設定の場合はエラーにせずnilを返す。初回アクセス時の正常な状態。
func (s *Service) Get(ctx context.Context, userID string) (*model.TravelPreferences, error) {
	prefs, err := s.prefRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}
	return prefs, nil
}

// Update は旅行設定を検証してUPSERTする。
// nilフィールドは既存の値を維持する部分更新。
// 同一内容での再実行は同一結果となる（冪等）。
func (s *Service) Update(ctx context.Context, userID string, update repository.PreferenceUpdate) (*model.TravelPreferences, error) {
	if err := s.validate(update); err != nil {
		return nil, err
	}

	prefs, err := s.prefRepo.Upsert(ctx, userID, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}

	slog.Info("preferences updated",
		slog.String("user_id", userID),
		slog.String("frequency", string(prefs.DeliveryFrequency)),
	)

	return prefs, nil
}

// validate は更新内容の各フィールドを検証する。
func (s *Service) validate(update repository.PreferenceUpdate) error {
	if update.DeliveryFrequency != nil && !update.DeliveryFrequency.IsValid() {
		return model.NewInvalidFrequencyError(string(*update.DeliveryFrequency))
	}

	if update.MaxBudget != nil && *update.MaxBudget < 0 {
		return model.NewInvalidBudgetError(*update.MaxBudget)
	}

	if update.HeaderImageURL != nil && *update.HeaderImageURL != "" {
		if err := s.ssrfGuard.ValidateImageURL(*update.HeaderImageURL); err != nil {
			return model.NewInvalidImageURLError(err.Error())
		}
	}

	return nil
}
