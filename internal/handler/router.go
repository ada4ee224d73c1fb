package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/personbook/internal/event"
	"github.com/hitoshi/personbook/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	StatusObserver    middleware.StatusObserver

	// Person
	PersonService PersonServiceInterface
	Stats         StatsRecorder

	// 変更通知
	Broadcaster *event.Broadcaster

	// ヘルスチェック
	HealthChecker HealthChecker

	// メトリクス公開（/metrics）。nilの場合はマウントしない。
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RequestID → Logging → SecurityHeaders → CORS → RateLimit(General)
//
// /health、/metrics、埋め込みUIはレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewRequestIDMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, deps.StatusObserver))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	personHandler := NewPersonHandler(deps.PersonService, deps.Stats)
	eventsHandler := NewEventsHandler(deps.Broadcaster, deps.CORSAllowedOrigin)
	healthHandler := NewHealthHandler(deps.HealthChecker)

	// ヘルスチェック・メトリクス（レート制限の外）
	r.Get("/health", healthHandler.Health)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// 変更通知のWebSocket。長命の接続なのでレート制限の外に置く。
	r.Get("/api/events", eventsHandler.Serve)

	// --- APIルート ---
	// ミドルウェアスタック: RateLimit(General)、書き込みはさらにRateLimit(Write)
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/api/test", healthHandler.Test)

		// /api/persons と /api/personas は同一リソースの別名
		for _, prefix := range []string{"/api/persons", "/api/personas"} {
			r.Route(prefix, func(r chi.Router) {
				r.Get("/", personHandler.ListPersons)
				r.With(deps.RateLimiter.WriteMiddleware()).Post("/", personHandler.CreatePerson)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", personHandler.GetPerson)

					// PUTとPATCHはいずれも部分更新として扱う
					r.With(deps.RateLimiter.WriteMiddleware()).Put("/", personHandler.UpdatePerson)
					r.With(deps.RateLimiter.WriteMiddleware()).Patch("/", personHandler.UpdatePerson)
					r.With(deps.RateLimiter.WriteMiddleware()).Delete("/", personHandler.DeletePerson)
				})
			})
		}
	})

	// 埋め込みUI（フォーム・一覧・グラフ）
	r.Handle("/*", StaticHandler())

	return r
}
