// Package trial は無料トライアルのライフサイクルを管理する。
package trial

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/travira/internal/model"
	"github.com/hitoshi/travira/internal/repository"
)

const (
	// StatusTrial はトライアル中のサブスクリプションステータス。
	StatusTrial = "trial"

	// Duration はトライアル期間。
	Duration = 7 * 24 * time.Hour
)

// Info はユーザーのトライアル状態を表す。
type Info struct {
	Status        *string    `json:"status"`
	TrialEndsAt   *time.Time `json:"trialEndsAt"`
	InTrial       bool       `json:"inTrial"`
	Expired       bool       `json:"expired"`
	DaysRemaining int        `json:"daysRemaining"`
}

// Evaluate はユーザーのトライアル状態を評価する純粋関数。
// daysRemainingは日単位の切り上げで、0未満にはならない。
// 例: 残り1秒でも1日、期限ちょうど・超過後は0日。
func Evaluate(user *model.User, now time.Time) Info {
	info := Info{
		Status:      user.SubscriptionStatus,
		TrialEndsAt: user.TrialEndsAt,
	}

	if user.SubscriptionStatus == nil || *user.SubscriptionStatus != StatusTrial || user.TrialEndsAt == nil {
		return info
	}

	remaining := user.TrialEndsAt.Sub(now)
	if remaining > 0 {
		info.InTrial = true
		info.DaysRemaining = int((remaining + 24*time.Hour - 1) / (24 * time.Hour))
	} else {
		info.Expired = true
	}

	return info
}

// Service はトライアル開始の永続化を提供する。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// Start はユーザーのトライアルを開始する。
// 既にトライアル中・期限切れの場合も期限を現在から7日後にリセットする（冪等）。
func (s *Service) Start(ctx context.Context, userID string) (*Info, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	now := time.Now()
	endsAt := now.Add(Duration)

	if err := s.userRepo.UpdateTrial(ctx, userID, StatusTrial, endsAt); err != nil {
		return nil, fmt.Errorf("failed to start trial: %w", err)
	}

	slog.Info("trial started",
		slog.String("user_id", userID),
		slog.Time("trial_ends_at", endsAt),
	)

	status := StatusTrial
	info := Evaluate(&model.User{
		ID:                 userID,
		SubscriptionStatus: &status,
		TrialEndsAt:        &endsAt,
	}, now)

	return &info, nil
}

// Status はユーザーの現在のトライアル状態を返す。
func (s *Service) Status(ctx context.Context, userID string) (*Info, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	info := Evaluate(user, time.Now())
	return &info, nil
}
