// Package digest はディールダイジェストのバックグラウンド配信処理を提供する。
// スケジューラと送信サービスを含む。
package digest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/travira/internal/metrics"
	"github.com/hitoshi/travira/internal/model"
	"github.com/hitoshi/travira/internal/notify"
	"github.com/hitoshi/travira/internal/repository"
	"github.com/hitoshi/travira/internal/trial"
)

// DefaultMaxDealsPerDigest は1通のダイジェストに含めるディールの上限。
const DefaultMaxDealsPerDigest = 20

// Sender は未通知ディールのダイジェスト送信を行う。
// スケジューラからの定期配信とAPIからの手動配信の両方で使われる。
type Sender struct {
	userRepo  repository.UserRepository
	prefRepo  repository.PreferenceRepository
	recRepo   repository.RecommendationRepository
	mailer    notify.DealMailer
	collector metrics.MetricsCollector
	logger    *slog.Logger
	maxDeals  int
}

// NewSender はSenderを生成する。
// maxDealsが0以下の場合はDefaultMaxDealsPerDigestを使用する。
func NewSender(
	userRepo repository.UserRepository,
	prefRepo repository.PreferenceRepository,
	recRepo repository.RecommendationRepository,
	mailer notify.DealMailer,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	maxDeals int,
) *Sender {
	if maxDeals <= 0 {
		maxDeals = DefaultMaxDealsPerDigest
	}
	return &Sender{
		userRepo:  userRepo,
		prefRepo:  prefRepo,
		recRepo:   recRepo,
		mailer:    mailer,
		collector: collector,
		logger:    logger,
		maxDeals:  maxDeals,
	}
}

// SendDealsNow はAPIからの手動配信要求を処理する。
// 未通知ディールがなければ何も送らずに0を返す。
// メール送信に失敗した場合はEMAIL_SEND_FAILEDを返し、ディールは未通知のまま残る。
func (s *Sender) SendDealsNow(ctx context.Context, userID string) (int, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return 0, model.NewUserNotFoundError()
	}

	var headerImageURL *string
	prefs, err := s.prefRepo.FindByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load preferences: %w", err)
	}
	if prefs != nil {
		headerImageURL = prefs.HeaderImageURL
	}

	return s.send(ctx, userID, user.Email, user.Name, headerImageURL)
}

// SendForCandidate は定期配信サイクルから1候補分のダイジェストを送信する。
func (s *Sender) SendForCandidate(ctx context.Context, cand repository.DigestCandidate) (int, error) {
	return s.send(ctx, cand.UserID, cand.Email, cand.Name, cand.HeaderImageURL)
}

func (s *Sender) send(ctx context.Context, userID, email, name string, headerImageURL *string) (int, error) {
	deals, err := s.recRepo.ListUnnotifiedByUserID(ctx, userID, s.maxDeals)
	if err != nil {
		return 0, fmt.Errorf("failed to list unnotified deals: %w", err)
	}
	if len(deals) == 0 {
		s.logger.Info("送信対象のディールはありません",
			slog.String("user_id", userID),
		)
		return 0, nil
	}

	err = s.mailer.SendDigest(ctx, notify.Digest{
		RecipientEmail: email,
		RecipientName:  name,
		HeaderImageURL: headerImageURL,
		Deals:          deals,
	})
	if err != nil {
		s.collector.RecordDigestFailed("send_error")
		s.logger.Error("ダイジェストメールの送信に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		return 0, model.NewEmailSendFailedError()
	}

	now := time.Now()
	ids := make([]string, 0, len(deals))
	for _, deal := range deals {
		ids = append(ids, deal.ID)
	}

	// 送信済みの記録に失敗しても再送するだけなのでエラーにはしない
	if err := s.recRepo.MarkNotified(ctx, userID, ids, now); err != nil {
		s.logger.Error("ディールの送信済み記録に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.prefRepo.UpdateLastNotified(ctx, userID, now); err != nil {
		s.logger.Error("最終送信日時の記録に失敗しました",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
	}

	s.collector.RecordDigestSent()
	s.logger.Info("ダイジェストメールを送信しました",
		slog.String("user_id", userID),
		slog.Int("deal_count", len(deals)),
	)

	return len(deals), nil
}

// ShouldSend は定期配信の送信要否を判定する。
// トライアル中でないユーザーには送信しない。
// 前回送信からの経過時間が配信頻度の間隔に満たない場合も送信しない。
func ShouldSend(cand repository.DigestCandidate, now time.Time) bool {
	info := trial.Evaluate(&model.User{
		ID:                 cand.UserID,
		SubscriptionStatus: cand.SubscriptionStatus,
		TrialEndsAt:        cand.TrialEndsAt,
	}, now)
	if !info.InTrial {
		return false
	}

	if cand.LastNotifiedAt == nil {
		return true
	}
	return now.Sub(*cand.LastNotifiedAt) >= cand.DeliveryFrequency.Interval()
}
