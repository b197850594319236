// Package cleanup は期限切れデータの自動整理ジョブを提供する。
// 期限切れセッションの削除と、保持期間（デフォルト90日）を超過した
// ディールの非アクティブ化を日次バッチで行う。
// ウォッチ中のディールは保持期間を超過しても非アクティブ化しない。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/travira/internal/metrics"
	"github.com/hitoshi/travira/internal/repository"
)

// DefaultRetentionDays はディールのデフォルト保持日数。
const DefaultRetentionDays = 90

// CleanupJob は期限切れデータの自動整理ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な処理を保証する。
type CleanupJob struct {
	sessionRepo   repository.SessionRepository
	recRepo       repository.RecommendationRepository
	collector     metrics.MetricsCollector
	logger        *slog.Logger
	RetentionDays int // ディールの保持日数（デフォルト: 90）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持日数は90日。
func NewCleanupJob(
	sessionRepo repository.SessionRepository,
	recRepo repository.RecommendationRepository,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
) *CleanupJob {
	return &CleanupJob{
		sessionRepo:   sessionRepo,
		recRepo:       recRepo,
		collector:     collector,
		logger:        logger,
		RetentionDays: DefaultRetentionDays,
	}
}

// Run は期限切れセッションの削除とディールの非アクティブ化を実行する。
// 冪等: 対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	expiredSessions, err := j.sessionRepo.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("期限切れセッションの削除に失敗: %w", err)
	}

	retention := time.Duration(j.RetentionDays) * 24 * time.Hour
	deactivated, err := j.recRepo.DeactivateOlderThan(ctx, retention)
	if err != nil {
		j.logger.Error("ディールの非アクティブ化に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("ディールの非アクティブ化に失敗: %w", err)
	}

	if deactivated > 0 {
		j.collector.RecordDealsDeactivated(int(deactivated))
	}

	duration := time.Since(start)
	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("expired_sessions", expiredSessions),
		slog.Int64("deactivated_deals", deactivated),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// Start は指定間隔のティッカーでクリーンアップジョブを定期実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("クリーンアップジョブを開始しました",
		slog.Duration("interval", interval),
		slog.Int("retention_days", j.RetentionDays),
	)

	// 起動直後に1回実行
	if err := j.Run(ctx); err != nil {
		j.logger.Error("クリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("クリーンアップジョブの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
