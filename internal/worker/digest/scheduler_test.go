package digest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/travira/internal/model"
	"github.com/hitoshi/travira/internal/repository"
	"github.com/hitoshi/travira/internal/trial"
)

// mockSenderService はDigestSenderServiceのモック実装。
type mockSenderService struct {
	mu      sync.Mutex
	sentTo  []string
	sendFn  func(ctx context.Context, cand repository.DigestCandidate) (int, error)
}

func (m *mockSenderService) SendForCandidate(ctx context.Context, cand repository.DigestCandidate) (int, error) {
	m.mu.Lock()
	m.sentTo = append(m.sentTo, cand.UserID)
	m.mu.Unlock()
	if m.sendFn != nil {
		return m.sendFn(ctx, cand)
	}
	return 1, nil
}

func trialCandidate(userID string, freq model.DeliveryFrequency, lastNotified *time.Time) repository.DigestCandidate {
	status := trial.StatusTrial
	endsAt := time.Now().Add(5 * 24 * time.Hour)
	return repository.DigestCandidate{
		UserID:             userID,
		Email:              userID + "@example.com",
		Name:               "テストユーザー",
		SubscriptionStatus: &status,
		TrialEndsAt:        &endsAt,
		DeliveryFrequency:  freq,
		LastNotifiedAt:     lastNotified,
	}
}

func TestScheduler_RunOnce_SendsOnlyDueCandidates(t *testing.T) {
	recent := time.Now().Add(-1 * time.Hour)
	old := time.Now().Add(-10 * 24 * time.Hour)
	expired := trialCandidate("user-expired", model.FrequencyDaily, nil)
	pastEndsAt := time.Now().Add(-1 * time.Hour)
	expired.TrialEndsAt = &pastEndsAt

	prefRepo := &mockPrefRepo{
		listCandidatesFn: func(ctx context.Context) ([]repository.DigestCandidate, error) {
			return []repository.DigestCandidate{
				trialCandidate("user-due", model.FrequencyWeekly, &old),
				trialCandidate("user-recent", model.FrequencyWeekly, &recent),
				trialCandidate("user-never", model.FrequencyDaily, nil),
				expired,
			}, nil
		},
	}
	sender := &mockSenderService{}
	collector := &mockMetrics{}

	s := NewScheduler(prefRepo, sender, collector, discardLogger(), 2)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if len(sender.sentTo) != 2 {
		t.Fatalf("sent to %v, want 2 users", sender.sentTo)
	}
	sent := map[string]bool{}
	for _, id := range sender.sentTo {
		sent[id] = true
	}
	if !sent["user-due"] || !sent["user-never"] {
		t.Errorf("sent to %v, want user-due and user-never", sender.sentTo)
	}
}

func TestScheduler_RunOnce_NoCandidates(t *testing.T) {
	sender := &mockSenderService{}
	s := NewScheduler(&mockPrefRepo{}, sender, &mockMetrics{}, discardLogger(), 0)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(sender.sentTo) != 0 {
		t.Errorf("sent to %v, want no sends", sender.sentTo)
	}
}

func TestScheduler_RunOnce_ListError(t *testing.T) {
	prefRepo := &mockPrefRepo{
		listCandidatesFn: func(ctx context.Context) ([]repository.DigestCandidate, error) {
			return nil, errors.New("db down")
		},
	}
	s := NewScheduler(prefRepo, &mockSenderService{}, &mockMetrics{}, discardLogger(), 0)

	if err := s.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

// 1人の送信失敗が他ユーザーへの送信を妨げない。
func TestScheduler_RunOnce_FailureDoesNotBlockOthers(t *testing.T) {
	old := time.Now().Add(-10 * 24 * time.Hour)
	prefRepo := &mockPrefRepo{
		listCandidatesFn: func(ctx context.Context) ([]repository.DigestCandidate, error) {
			return []repository.DigestCandidate{
				trialCandidate("user-1", model.FrequencyWeekly, &old),
				trialCandidate("user-2", model.FrequencyWeekly, &old),
				trialCandidate("user-3", model.FrequencyWeekly, &old),
			}, nil
		},
	}
	sender := &mockSenderService{
		sendFn: func(ctx context.Context, cand repository.DigestCandidate) (int, error) {
			if cand.UserID == "user-2" {
				return 0, errors.New("mailbox full")
			}
			return 1, nil
		},
	}

	s := NewScheduler(prefRepo, sender, &mockMetrics{}, discardLogger(), 1)

	if err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(sender.sentTo) != 3 {
		t.Errorf("attempted %v, want all 3 users", sender.sentTo)
	}
}

func TestScheduler_Start_StopsOnContextCancel(t *testing.T) {
	s := NewScheduler(&mockPrefRepo{}, &mockSenderService{}, &mockMetrics{}, discardLogger(), 0)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx, 1*time.Hour)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after context cancel")
	}
}
