// Package app はアプリケーションの起動と依存関係のワイヤリングを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/personbook/internal/client"
	"github.com/hitoshi/personbook/internal/config"
	"github.com/hitoshi/personbook/internal/dashboard"
	"github.com/hitoshi/personbook/internal/database"
	"github.com/hitoshi/personbook/internal/event"
	"github.com/hitoshi/personbook/internal/handler"
	"github.com/hitoshi/personbook/internal/logger"
	"github.com/hitoshi/personbook/internal/metrics"
	"github.com/hitoshi/personbook/internal/middleware"
	"github.com/hitoshi/personbook/internal/person"
	"github.com/hitoshi/personbook/internal/repository"
	"github.com/hitoshi/personbook/internal/security"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルを反映する
	if w == nil {
		w = os.Stdout
	}
	slog.SetDefault(logger.SetupWithLevel(w, logger.ParseLevel(cfg.LogLevel)))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandServe:
		return runServe(cfg)
	case CommandDashboard:
		return runDashboard(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// measuredPublisher は変更通知の発行をメトリクスに記録してから配信する。
type measuredPublisher struct {
	broadcaster *event.Broadcaster
	collector   *metrics.Collector
}

// Publish はChangePublisherを実装する。
func (p *measuredPublisher) Publish(change event.Change) {
	p.collector.RecordChangeBroadcast(string(change.Action))
	p.broadcaster.Publish(change)
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 3. リポジトリ・セキュリティサービスの初期化
	personRepo := repository.NewPostgresPersonRepo(db)
	sanitizer := security.NewFieldSanitizer()

	// 4. 変更通知とドメインサービスの初期化
	broadcaster := event.NewBroadcaster()
	publisher := &measuredPublisher{broadcaster: broadcaster, collector: collector}
	personService := person.NewService(personRepo, sanitizer, publisher)

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitWrite),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Logger:            slog.Default(),
		StatusObserver:    collector,

		PersonService: personService,
		Stats:         collector,

		Broadcaster:   broadcaster,
		HealthChecker: db,

		MetricsHandler: metrics.Handler(registry),
	}

	router := handler.NewRouter(deps)

	// 6. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runDashboard はダッシュボードモードで起動する。
// APIサーバーに接続して一覧と統計グラフを表示し、変更通知を受けて
// 再描画する。SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runDashboard(cfg *config.Config) error {
	source := client.NewPersonService(cfg.APIBaseURL, cfg.CacheFile)
	renderer := dashboard.NewConsoleRenderer(os.Stdout)
	view := dashboard.NewView(source, renderer, cfg.ReloadDebounce, cfg.ChartDebounce)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down dashboard...")
		cancel()
	}()

	// 変更通知のWebSocketをバックグラウンドで購読
	go dashboard.Listen(ctx, eventsURL(cfg.APIBaseURL), view.Notify)

	slog.Info("dashboard starting", slog.String("api", cfg.APIBaseURL))

	if err := view.Run(ctx); err != nil {
		return fmt.Errorf("dashboard stopped with error: %w", err)
	}

	slog.Info("dashboard stopped gracefully")
	return nil
}

// eventsURL はAPIベースURLから変更通知WebSocketのURLを導出する。
func eventsURL(apiBaseURL string) string {
	url := strings.TrimSuffix(apiBaseURL, "/") + "/events"
	if after, ok := strings.CutPrefix(url, "https://"); ok {
		return "wss://" + after
	}
	if after, ok := strings.CutPrefix(url, "http://"); ok {
		return "ws://" + after
	}
	return url
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("schema_version", uint64(version)),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	httpClient := &http.Client{Timeout: 5 * time.Second}

	resp, err := httpClient.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
