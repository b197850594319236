package digest

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hitoshi/travira/internal/model"
	"github.com/hitoshi/travira/internal/notify"
	"github.com/hitoshi/travira/internal/repository"
	"github.com/hitoshi/travira/internal/trial"
)

// --- モック定義 ---

type mockUserRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	return nil
}

func (m *mockUserRepo) UpdateTrial(ctx context.Context, userID, status string, trialEndsAt time.Time) error {
	return nil
}

func (m *mockUserRepo) DeleteByID(ctx context.Context, id string) error { return nil }

type mockPrefRepo struct {
	findByUserIDFn       func(ctx context.Context, userID string) (*model.TravelPreferences, error)
	updateLastNotifiedFn func(ctx context.Context, userID string, at time.Time) error
	listCandidatesFn     func(ctx context.Context) ([]repository.DigestCandidate, error)
}

func (m *mockPrefRepo) FindByUserID(ctx context.Context, userID string) (*model.TravelPreferences, error) {
	if m.findByUserIDFn != nil {
		return m.findByUserIDFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockPrefRepo) Upsert(ctx context.Context, userID string, update repository.PreferenceUpdate) (*model.TravelPreferences, error) {
	return nil, nil
}

func (m *mockPrefRepo) UpdateLastNotified(ctx context.Context, userID string, at time.Time) error {
	if m.updateLastNotifiedFn != nil {
		return m.updateLastNotifiedFn(ctx, userID, at)
	}
	return nil
}

func (m *mockPrefRepo) ListDigestCandidates(ctx context.Context) ([]repository.DigestCandidate, error) {
	if m.listCandidatesFn != nil {
		return m.listCandidatesFn(ctx)
	}
	return nil, nil
}

type mockRecRepo struct {
	listUnnotifiedFn func(ctx context.Context, userID string, limit int) ([]*model.FlightRecommendation, error)
	markNotifiedFn   func(ctx context.Context, userID string, ids []string, at time.Time) error
}

func (m *mockRecRepo) FindByUserAndID(ctx context.Context, userID, recommendationID string) (*model.FlightRecommendation, error) {
	return nil, nil
}

func (m *mockRecRepo) ListActiveByUserID(ctx context.Context, userID string) ([]*model.FlightRecommendation, error) {
	return nil, nil
}

func (m *mockRecRepo) ListWatchedByUserID(ctx context.Context, userID string) ([]*model.FlightRecommendation, error) {
	return nil, nil
}

func (m *mockRecRepo) ListUnnotifiedByUserID(ctx context.Context, userID string, limit int) ([]*model.FlightRecommendation, error) {
	if m.listUnnotifiedFn != nil {
		return m.listUnnotifiedFn(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockRecRepo) Create(ctx context.Context, rec *model.FlightRecommendation) error { return nil }

func (m *mockRecRepo) UpdateWatched(ctx context.Context, userID, recommendationID string, isWatched bool) (bool, error) {
	return false, nil
}

func (m *mockRecRepo) DeleteByUserAndID(ctx context.Context, userID, recommendationID string) (bool, error) {
	return false, nil
}

func (m *mockRecRepo) DeleteByUserAndIDs(ctx context.Context, userID string, ids []string) (int64, error) {
	return 0, nil
}

func (m *mockRecRepo) MarkNotified(ctx context.Context, userID string, ids []string, at time.Time) error {
	if m.markNotifiedFn != nil {
		return m.markNotifiedFn(ctx, userID, ids, at)
	}
	return nil
}

func (m *mockRecRepo) DeactivateOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	return 0, nil
}

type mockMailer struct {
	sendDigestFn func(ctx context.Context, digest notify.Digest) error
}

func (m *mockMailer) SendDigest(ctx context.Context, digest notify.Digest) error {
	if m.sendDigestFn != nil {
		return m.sendDigestFn(ctx, digest)
	}
	return nil
}

type mockMetrics struct {
	digestSent    int
	digestFailed  int
	failedReasons []string
}

func (m *mockMetrics) RecordHTTPStatus(statusCode int) {}
func (m *mockMetrics) RecordTrialStarted()             {}
func (m *mockMetrics) RecordDealsDeleted(count int)    {}
func (m *mockMetrics) RecordDigestSent()               { m.digestSent++ }
func (m *mockMetrics) RecordDigestFailed(reason string) {
	m.digestFailed++
	m.failedReasons = append(m.failedReasons, reason)
}
func (m *mockMetrics) RecordDigestLatency(duration time.Duration) {}
func (m *mockMetrics) RecordDealsDeactivated(count int)           {}

func testDeal(id, userID string) *model.FlightRecommendation {
	return &model.FlightRecommendation{
		ID:           id,
		UserID:       userID,
		Origin:       "HND",
		Destination:  "BCN",
		Price:        112000,
		Currency:     "JPY",
		Airline:      "JAL",
		FlightNumber: "JL43",
		Summary:      "バルセロナ行きの特価ディール",
		BookingURL:   "https://booking.example.com/jl43",
		IsActive:     true,
	}
}

func testUser(id string, inTrial bool) *model.User {
	user := &model.User{
		ID:    id,
		Email: "taro@example.com",
		Name:  "旅行太郎",
	}
	if inTrial {
		status := trial.StatusTrial
		endsAt := time.Now().Add(5 * 24 * time.Hour)
		user.SubscriptionStatus = &status
		user.TrialEndsAt = &endsAt
	}
	return user
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testWriter{}, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

type testWriter struct{}

func (testWriter) Write(p []byte) (int, error) { return len(p), nil }

// --- SendDealsNow テスト ---

func TestSender_SendDealsNow_Success(t *testing.T) {
	var markedIDs []string
	var lastNotifiedUpdated bool

	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return testUser(id, true), nil
		},
	}
	prefRepo := &mockPrefRepo{
		updateLastNotifiedFn: func(ctx context.Context, userID string, at time.Time) error {
			lastNotifiedUpdated = true
			return nil
		},
	}
	recRepo := &mockRecRepo{
		listUnnotifiedFn: func(ctx context.Context, userID string, limit int) ([]*model.FlightRecommendation, error) {
			return []*model.FlightRecommendation{
				testDeal("rec-1", userID),
				testDeal("rec-2", userID),
			}, nil
		},
		markNotifiedFn: func(ctx context.Context, userID string, ids []string, at time.Time) error {
			markedIDs = ids
			return nil
		},
	}
	mailer := &mockMailer{}
	collector := &mockMetrics{}

	sender := NewSender(userRepo, prefRepo, recRepo, mailer, collector, discardLogger(), 0)

	count, err := sender.SendDealsNow(context.Background(), "user-123")
	if err != nil {
		t.Fatalf("SendDealsNow() error = %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if len(markedIDs) != 2 {
		t.Errorf("marked IDs = %v, want 2 entries", markedIDs)
	}
	if !lastNotifiedUpdated {
		t.Error("expected UpdateLastNotified to be called")
	}
	if collector.digestSent != 1 {
		t.Errorf("digestSent = %d, want 1", collector.digestSent)
	}
}

// 未通知ディールがない場合はメールを送らず0件で成功する。
func TestSender_SendDealsNow_NothingToSend(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return testUser(id, true), nil
		},
	}
	mailer := &mockMailer{
		sendDigestFn: func(ctx context.Context, digest notify.Digest) error {
			t.Error("mailer should not be called with no deals")
			return nil
		},
	}
	collector := &mockMetrics{}

	sender := NewSender(userRepo, &mockPrefRepo{}, &mockRecRepo{}, mailer, collector, discardLogger(), 0)

	count, err := sender.SendDealsNow(context.Background(), "user-123")
	if err != nil {
		t.Fatalf("SendDealsNow() error = %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
	if collector.digestSent != 0 {
		t.Errorf("digestSent = %d, want 0", collector.digestSent)
	}
}

// メール送信失敗時はEMAIL_SEND_FAILEDを返し、ディールは未通知のまま残る。
func TestSender_SendDealsNow_MailerFailure(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return testUser(id, true), nil
		},
	}
	recRepo := &mockRecRepo{
		listUnnotifiedFn: func(ctx context.Context, userID string, limit int) ([]*model.FlightRecommendation, error) {
			return []*model.FlightRecommendation{testDeal("rec-1", userID)}, nil
		},
		markNotifiedFn: func(ctx context.Context, userID string, ids []string, at time.Time) error {
			t.Error("MarkNotified should not be called after send failure")
			return nil
		},
	}
	mailer := &mockMailer{
		sendDigestFn: func(ctx context.Context, digest notify.Digest) error {
			return errors.New("smtp unavailable")
		},
	}
	collector := &mockMetrics{}

	sender := NewSender(userRepo, &mockPrefRepo{}, recRepo, mailer, collector, discardLogger(), 0)

	_, err := sender.SendDealsNow(context.Background(), "user-123")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeEmailSendFailed {
		t.Fatalf("error = %v, want EMAIL_SEND_FAILED", err)
	}
	if collector.digestFailed != 1 {
		t.Errorf("digestFailed = %d, want 1", collector.digestFailed)
	}
}

func TestSender_SendDealsNow_UserNotFound(t *testing.T) {
	sender := NewSender(&mockUserRepo{}, &mockPrefRepo{}, &mockRecRepo{}, &mockMailer{}, &mockMetrics{}, discardLogger(), 0)

	_, err := sender.SendDealsNow(context.Background(), "user-unknown")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Fatalf("error = %v, want USER_NOT_FOUND", err)
	}
}

// ヘッダー画像URLは設定から引き継がれる。
func TestSender_SendDealsNow_HeaderImageFromPreferences(t *testing.T) {
	headerURL := "https://cdn.example.com/header.png"
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return testUser(id, true), nil
		},
	}
	prefRepo := &mockPrefRepo{
		findByUserIDFn: func(ctx context.Context, userID string) (*model.TravelPreferences, error) {
			return &model.TravelPreferences{
				UserID:         userID,
				HeaderImageURL: &headerURL,
			}, nil
		},
	}
	recRepo := &mockRecRepo{
		listUnnotifiedFn: func(ctx context.Context, userID string, limit int) ([]*model.FlightRecommendation, error) {
			return []*model.FlightRecommendation{testDeal("rec-1", userID)}, nil
		},
	}
	var gotDigest notify.Digest
	mailer := &mockMailer{
		sendDigestFn: func(ctx context.Context, digest notify.Digest) error {
			gotDigest = digest
			return nil
		},
	}

	sender := NewSender(userRepo, prefRepo, recRepo, mailer, &mockMetrics{}, discardLogger(), 0)

	if _, err := sender.SendDealsNow(context.Background(), "user-123"); err != nil {
		t.Fatalf("SendDealsNow() error = %v", err)
	}
	if gotDigest.HeaderImageURL == nil || *gotDigest.HeaderImageURL != headerURL {
		t.Errorf("HeaderImageURL = %v, want %q", gotDigest.HeaderImageURL, headerURL)
	}
	if gotDigest.RecipientEmail != "taro@example.com" {
		t.Errorf("RecipientEmail = %q, want %q", gotDigest.RecipientEmail, "taro@example.com")
	}
}

// --- ShouldSend テスト ---

func TestShouldSend(t *testing.T) {
	now := time.Now()
	trialStatus := trial.StatusTrial
	activeEndsAt := now.Add(5 * 24 * time.Hour)
	expiredEndsAt := now.Add(-1 * time.Hour)

	recent := now.Add(-2 * 24 * time.Hour)
	old := now.Add(-10 * 24 * time.Hour)

	tests := []struct {
		name string
		cand repository.DigestCandidate
		want bool
	}{
		{
			name: "トライアル中かつ未送信なら送る",
			cand: repository.DigestCandidate{
				SubscriptionStatus: &trialStatus,
				TrialEndsAt:        &activeEndsAt,
				DeliveryFrequency:  model.FrequencyWeekly,
			},
			want: true,
		},
		{
			name: "トライアル期限切れなら送らない",
			cand: repository.DigestCandidate{
				SubscriptionStatus: &trialStatus,
				TrialEndsAt:        &expiredEndsAt,
				DeliveryFrequency:  model.FrequencyWeekly,
			},
			want: false,
		},
		{
			name: "トライアル未開始なら送らない",
			cand: repository.DigestCandidate{
				DeliveryFrequency: model.FrequencyWeekly,
			},
			want: false,
		},
		{
			name: "週次で前回送信が2日前なら送らない",
			cand: repository.DigestCandidate{
				SubscriptionStatus: &trialStatus,
				TrialEndsAt:        &activeEndsAt,
				DeliveryFrequency:  model.FrequencyWeekly,
				LastNotifiedAt:     &recent,
			},
			want: false,
		},
		{
			name: "週次で前回送信が10日前なら送る",
			cand: repository.DigestCandidate{
				SubscriptionStatus: &trialStatus,
				TrialEndsAt:        &activeEndsAt,
				DeliveryFrequency:  model.FrequencyWeekly,
				LastNotifiedAt:     &old,
			},
			want: true,
		},
		{
			name: "毎日配信なら2日前の送信でも送る",
			cand: repository.DigestCandidate{
				SubscriptionStatus: &trialStatus,
				TrialEndsAt:        &activeEndsAt,
				DeliveryFrequency:  model.FrequencyDaily,
				LastNotifiedAt:     &recent,
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldSend(tt.cand, now); got != tt.want {
				t.Errorf("ShouldSend() = %v, want %v", got, tt.want)
			}
		})
	}
}
