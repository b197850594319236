package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/travira/internal/metrics"
	"github.com/hitoshi/travira/internal/middleware"
)

// HealthChecker はDB疎通確認に必要なインターフェース。
// *sql.DBが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// メトリクス
	Metrics metrics.MetricsCollector

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// 旅行設定
	PreferenceService PreferenceServiceInterface

	// ディール
	RecommendationService RecommendationServiceInterface

	// トライアル
	TrialService TrialServiceInterface

	// 通知
	NotificationService NotificationServiceInterface

	// ユーザー
	UserService UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RecoveryMiddleware → CORSMiddleware → SecurityHeadersMiddleware → LoggingMiddleware → MetricsMiddleware
//	→ SessionMiddleware → CSRFMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// 認証ルート（/auth/*）はセッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// 全ルート共通のミドルウェア（Recoveryを最上位に適用）
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(middleware.NewMetricsMiddleware(deps.Metrics))

	csrfConfig := middleware.CSRFConfig{
		CookieSecure: deps.AuthConfig.CookieSecure,
		CookieDomain: deps.AuthConfig.CookieDomain,
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	prefHandler := NewPreferenceHandler(deps.PreferenceService)
	recHandler := NewRecommendationHandler(deps.RecommendationService, deps.Metrics)
	trialHandler := NewTrialHandler(deps.TrialService, deps.Metrics)
	notifyHandler := NewNotificationHandler(deps.NotificationService)
	userHandler := NewUserHandler(deps.UserService, UserHandlerConfig{
		CookieDomain: deps.AuthConfig.CookieDomain,
		CookieSecure: deps.AuthConfig.CookieSecure,
	})

	// --- 認証不要のルート ---

	// ヘルスチェック（Dockerヘルスチェックおよび死活監視用）
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.HealthChecker != nil {
			if err := deps.HealthChecker.PingContext(req.Context()); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// CSRFトークン取得（フロントエンドが状態変更リクエストの前に呼び出す）
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(csrfConfig).ServeHTTP)

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(csrfConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/api/users/{userId}", func(r chi.Router) {
			// 退会
			r.Delete("/", userHandler.Withdraw)

			// 旅行設定
			r.Route("/preferences", func(r chi.Router) {
				r.Get("/", prefHandler.GetPreferences)
				r.Put("/", prefHandler.UpdatePreferences)
			})

			// ディール管理
			r.Route("/deals", func(r chi.Router) {
				r.Get("/", recHandler.ListDeals)
				r.Get("/watched", recHandler.ListWatchedDeals)
				r.Post("/bulk-delete", recHandler.BulkDeleteDeals)

				r.Route("/{dealId}", func(r chi.Router) {
					r.Patch("/watch", recHandler.ToggleWatch)
					r.Delete("/", recHandler.DeleteDeal)
				})
			})

			// トライアル
			r.Route("/trial", func(r chi.Router) {
				r.Get("/", trialHandler.GetTrialStatus)
				r.Post("/start", trialHandler.StartTrial)
			})

			// POST /api/users/{userId}/notifications/deals - 手動配信（通知専用レート制限を追加）
			r.With(deps.RateLimiter.NotifyMiddleware()).Post("/notifications/deals", notifyHandler.SendDeals)
		})
	})

	return r
}
