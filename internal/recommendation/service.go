// Package recommendation はフライト推薦の参照とライフサイクル操作を提供する。
package recommendation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/travira/internal/model"
	"github.com/hitoshi/travira/internal/repository"
)

// Service はフライト推薦に関するビジネスロジックを提供する。
// 全ての操作は認証済みユーザーのIDでスコープされ、
// 他ユーザーの推薦は存在しないものとして扱う。
type Service struct {
	recRepo repository.RecommendationRepository
}

// NewService はServiceを生成する。
func NewService(recRepo repository.RecommendationRepository) *Service {
	return &Service{recRepo: recRepo}
}

// List はユーザーのアクティブな推薦を新しい順で返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.FlightRecommendation, error) {
	recs, err := s.recRepo.ListActiveByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}
	return recs, nil
}

// ListWatched はユーザーがウォッチ中の推薦を返す。
func (s *Service) ListWatched(ctx context.Context, userID string) ([]*model.FlightRecommendation, error) {
	recs, err := s.recRepo.ListWatchedByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watched recommendations: %w", err)
	}
	return recs, nil
}

// ToggleWatch は推薦のウォッチフラグを反転させ、更新後の推薦を返す。
// 2回実行すると元の状態に戻る。
// 他ユーザー所有・存在しない推薦はどちらもRECOMMENDATION_NOT_FOUNDを返す。
func (s *Service) ToggleWatch(ctx context.Context, userID, recID string) (*model.FlightRecommendation, error) {
	rec, err := s.recRepo.FindByUserAndID(ctx, userID, recID)
	if err != nil {
		return nil, fmt.Errorf("failed to find recommendation: %w", err)
	}
	if rec == nil {
		return nil, model.NewRecommendationNotFoundError(recID)
	}

	newWatched := !rec.IsWatched
	updated, err := s.recRepo.UpdateWatched(ctx, userID, recID, newWatched)
	if err != nil {
		return nil, fmt.Errorf("failed to update watch flag: %w", err)
	}
	if !updated {
		// 取得と更新の間に削除された場合
		return nil, model.NewRecommendationNotFoundError(recID)
	}

	rec.IsWatched = newWatched

	slog.Info("watch flag toggled",
		slog.String("user_id", userID),
		slog.String("recommendation_id", recID),
		slog.Bool("is_watched", newWatched),
	)

	return rec, nil
}

// Delete は推薦を削除する。
// 他ユーザー所有・存在しない推薦はどちらもRECOMMENDATION_NOT_FOUNDを返す。
func (s *Service) Delete(ctx context.Context, userID, recID string) error {
	deleted, err := s.recRepo.DeleteByUserAndID(ctx, userID, recID)
	if err != nil {
		return fmt.Errorf("failed to delete recommendation: %w", err)
	}
	if !deleted {
		return model.NewRecommendationNotFoundError(recID)
	}

	slog.Info("recommendation deleted",
		slog.String("user_id", userID),
		slog.String("recommendation_id", recID),
	)

	return nil
}

// BulkDelete は指定IDのうちユーザーが所有する推薦だけを削除し、削除件数を返す。
// 他ユーザーの推薦や存在しないIDはエラーにせず黙って無視される。
// 空リストはEMPTY_DEAL_IDSエラーを返す。
func (s *Service) BulkDelete(ctx context.Context, userID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, model.NewEmptyDealIDsError()
	}

	deleted, err := s.recRepo.DeleteByUserAndIDs(ctx, userID, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to bulk delete recommendations: %w", err)
	}

	slog.Info("recommendations bulk deleted",
		slog.String("user_id", userID),
		slog.Int("requested", len(ids)),
		slog.Int64("deleted", deleted),
	)

	return int(deleted), nil
}
