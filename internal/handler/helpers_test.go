package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/travira/internal/middleware"
)

// withUserID はテスト用に認証済みユーザーIDをコンテキストに注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
// 既存のルートコンテキストがあれば再利用し、複数パラメータの積み重ねに対応する。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}

// mockMetrics はMetricsCollectorの記録回数を数えるモック実装。
type mockMetrics struct {
	trialStarted     int
	dealsDeleted     int
	digestSent       int
	digestFailed     int
	dealsDeactivated int
}

func (m *mockMetrics) RecordHTTPStatus(statusCode int)            {}
func (m *mockMetrics) RecordTrialStarted()                        { m.trialStarted++ }
func (m *mockMetrics) RecordDealsDeleted(count int)               { m.dealsDeleted += count }
func (m *mockMetrics) RecordDigestSent()                          { m.digestSent++ }
func (m *mockMetrics) RecordDigestFailed(reason string)           { m.digestFailed++ }
func (m *mockMetrics) RecordDigestLatency(duration time.Duration) {}
func (m *mockMetrics) RecordDealsDeactivated(count int)           { m.dealsDeactivated += count }
