package digest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/travira/internal/metrics"
	"github.com/hitoshi/travira/internal/repository"
)

// DigestSenderService はダイジェスト送信の実行インターフェース。
type DigestSenderService interface {
	// SendForCandidate は1候補分のダイジェストを送信し、送信した件数を返す。
	SendForCandidate(ctx context.Context, cand repository.DigestCandidate) (int, error)
}

// Scheduler はダイジェスト配信のスケジューリングと並列制御を行う。
// 定期ティッカーで配信候補ユーザーを取得し、
// semaphoreパターンで最大並列数を制御しながら送信を実行する。
type Scheduler struct {
	prefRepo       repository.PreferenceRepository
	sender         DigestSenderService
	collector      metrics.MetricsCollector
	logger         *slog.Logger
	maxConcurrency int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値10を使用する。
func NewScheduler(
	prefRepo repository.PreferenceRepository,
	sender DigestSenderService,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}
	return &Scheduler{
		prefRepo:       prefRepo,
		sender:         sender,
		collector:      collector,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("ダイジェストスケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("ダイジェストサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ダイジェストスケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("ダイジェストサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は配信候補を1回取得し、送信条件を満たすユーザーに並列で送信する。
// semaphoreパターンで並列数を制御する。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	candidates, err := s.prefRepo.ListDigestCandidates(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	due := make([]repository.DigestCandidate, 0, len(candidates))
	for _, cand := range candidates {
		if ShouldSend(cand, now) {
			due = append(due, cand)
		}
	}

	if len(due) == 0 {
		s.logger.Info("配信対象のユーザーはいません",
			slog.Int("candidate_count", len(candidates)),
		)
		return nil
	}

	s.logger.Info("ダイジェストサイクルを開始します",
		slog.Int("candidate_count", len(candidates)),
		slog.Int("due_count", len(due)),
	)

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	for _, cand := range due {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(c repository.DigestCandidate) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			if _, err := s.sender.SendForCandidate(ctx, c); err != nil {
				s.logger.Error("ダイジェスト送信に失敗しました",
					slog.String("user_id", c.UserID),
					slog.String("error", err.Error()),
				)
			}
		}(cand)
	}

	wg.Wait()

	duration := time.Since(start)
	s.collector.RecordDigestLatency(duration)
	s.logger.Info("ダイジェストサイクルが完了しました",
		slog.Int("due_count", len(due)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
