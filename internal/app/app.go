// Package app はサブコマンドの解析とアプリケーションの起動を提供する。
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/hitoshi/topicradar/internal/config"
	"github.com/hitoshi/topicradar/internal/database"
	"github.com/hitoshi/topicradar/internal/dedup"
	"github.com/hitoshi/topicradar/internal/embedding"
	"github.com/hitoshi/topicradar/internal/execution"
	"github.com/hitoshi/topicradar/internal/handler"
	"github.com/hitoshi/topicradar/internal/logger"
	"github.com/hitoshi/topicradar/internal/metrics"
	"github.com/hitoshi/topicradar/internal/middleware"
	"github.com/hitoshi/topicradar/internal/model"
	"github.com/hitoshi/topicradar/internal/provider"
	"github.com/hitoshi/topicradar/internal/queue"
	"github.com/hitoshi/topicradar/internal/repository"
	"github.com/hitoshi/topicradar/internal/security"
	"github.com/hitoshi/topicradar/internal/topic"
	"github.com/hitoshi/topicradar/internal/worker/cleanup"
	"github.com/hitoshi/topicradar/internal/worker/runqueue"
	"github.com/hitoshi/topicradar/internal/worker/schedule"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, cfg.LogLevel)
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
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandRun:
		return runOnce(cfg, ParseRunOptions(args[1:]))
	default:
		return runServe(cfg)
	}
}

// runtime はサーバー・ワーカー・CLI実行で共有する依存一式。
type runtime struct {
	db            *sql.DB
	topicRepo     *repository.PostgresTopicRepo
	groupRepo     *repository.PostgresTopicGroupRepo
	executionRepo *repository.PostgresExecutionRepo
	contentRepo   *repository.PostgresContentRepo
	bookmarkRepo  *repository.PostgresBookmarkRepo

	registry  *provider.Registry
	runner    *execution.Runner
	queue     *queue.Queue
	collector *metrics.Collector
	gatherer  prometheus.Gatherer

	topicService *topic.Service
	groupService *topic.GroupService
}

// buildRuntime はDB・Redisへ接続し、依存関係をワイヤリングする。
// 呼び出し元はrt.db.Close()を行うこと。
func buildRuntime(cfg *config.Config) (*runtime, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established")

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)

	// リポジトリ
	topicRepo := repository.NewPostgresTopicRepo(db)
	groupRepo := repository.NewPostgresTopicGroupRepo(db)
	executionRepo := repository.NewPostgresExecutionRepo(db)
	contentRepo := repository.NewPostgresContentRepo(db)
	bookmarkRepo := repository.NewPostgresBookmarkRepo(db)

	// 検索プロバイダ
	httpClient := &http.Client{Timeout: cfg.ProviderTimeout}
	registry, err := provider.NewRegistry(cfg.DefaultProvider,
		provider.NewOpenAIProvider(httpClient, slog.Default(), provider.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
		}),
		provider.NewPerplexityProvider(httpClient, slog.Default(), provider.PerplexityConfig{
			APIKey:  cfg.PerplexityAPIKey,
			BaseURL: cfg.PerplexityBaseURL,
		}),
	)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to build provider registry: %w", err)
	}

	// 埋め込み生成
	var embedder embedding.Generator = embedding.NoopGenerator{}
	if cfg.EmbeddingEnabled {
		embedder = embedding.NewOpenAIGenerator(httpClient, slog.Default(), embedding.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.EmbeddingModel,
		})
	}

	// メトリクス
	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	// 実行パイプライン
	deduper := dedup.NewDeduplicator(contentRepo, slog.Default())
	runner := execution.NewRunner(
		topicRepo, executionRepo, registry, deduper,
		security.NewSnippetSanitizer(), security.NewURLGuard(),
		collector, slog.Default(),
		provider.Limits{
			MaxResults:       cfg.SearchMaxResults,
			MaxTokens:        cfg.SearchMaxTokens,
			MaxTokensPerPage: cfg.SearchMaxTokensPerPage,
		},
	)

	return &runtime{
		db:            db,
		topicRepo:     topicRepo,
		groupRepo:     groupRepo,
		executionRepo: executionRepo,
		contentRepo:   contentRepo,
		bookmarkRepo:  bookmarkRepo,
		registry:      registry,
		runner:        runner,
		queue:         queue.NewQueue(redisClient, cfg.QueueName, slog.Default()),
		collector:     collector,
		gatherer:      reg,
		topicService:  topic.NewService(topicRepo, groupRepo, registry, embedder, slog.Default()),
		groupService:  topic.NewGroupService(groupRepo, slog.Default()),
	}, nil
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	// configのレート上限はreq/min単位なのでreq/secに変換する
	rlCfg := middleware.DefaultRateLimiterConfig()
	rlCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60)
	rlCfg.GeneralBurst = cfg.RateLimitGeneral
	rlCfg.RunRate = rate.Limit(float64(cfg.RateLimitRun) / 60)
	rlCfg.RunBurst = cfg.RateLimitRun
	rateLimiter := middleware.NewRateLimiter(rlCfg)
	defer rateLimiter.Stop()

	router := handler.NewRouter(handler.RouterDeps{
		TopicHandler: handler.NewTopicHandler(rt.topicService),
		GroupHandler: handler.NewGroupHandler(rt.groupService),
		ExecutionHandler: handler.NewExecutionHandler(
			rt.executionRepo, rt.runner, rt.queue, cfg.SyncRunTimeout,
		),
		ContentHandler: handler.NewContentHandler(rt.contentRepo, rt.bookmarkRepo),
		RSSHandler: handler.NewRSSHandler(
			rt.topicRepo, rt.groupRepo, rt.contentRepo, cfg.BaseURL,
		),

		APIToken:          cfg.APIToken,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Gatherer:          rt.gatherer,
		Logger:            slog.Default(),
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.SyncRunTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

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

// runWorker はワーカーモードで起動する。
// 定期実行スケジューラ・クリーンアップジョブをバックグラウンドで起動し、
// 実行キューコンシューマをメインgoroutineで実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.Duration("scheduler_interval", cfg.SchedulerInterval),
		slog.Int("max_concurrent", cfg.RunMaxConcurrent),
	)

	// 定期実行スケジューラをバックグラウンドで起動
	scheduler := schedule.NewScheduler(rt.topicRepo, rt.queue, slog.Default())
	go scheduler.Start(ctx, cfg.SchedulerInterval)

	// 失敗実行のクリーンアップジョブを日次でバックグラウンド実行
	cleanupJob := cleanup.NewCleanupJob(rt.executionRepo, slog.Default(), cfg.FailedRetention)
	go cleanupJob.Start(ctx, 24*time.Hour)

	// 実行キューコンシューマをメインgoroutineで実行（ブロッキング）
	consumer := runqueue.NewConsumer(rt.queue, rt.runner, rt.collector, slog.Default(), cfg.RunMaxConcurrent)
	consumer.Start(ctx)

	slog.Info("worker stopped gracefully")
	return nil
}

// runOnce は run サブコマンドとして指定トピックの検索実行を1回行う。
// --async指定時はジョブキューへの投入のみを行い、実行はワーカーに任せる。
func runOnce(cfg *config.Config, opts RunOptions) error {
	if opts.TopicID == "" {
		return fmt.Errorf("usage: run <topic-id> [--async]")
	}

	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.SyncRunTimeout)
	defer cancel()

	if opts.Async {
		jobID, err := rt.queue.Enqueue(ctx, opts.TopicID, model.InitiatorCLI)
		if err != nil {
			return fmt.Errorf("enqueue failed: %w", err)
		}
		slog.Info("execution job enqueued",
			slog.String("job_id", jobID),
			slog.String("topic_id", opts.TopicID),
		)
		return nil
	}

	result, err := rt.runner.Run(ctx, opts.TopicID, model.InitiatorCLI)
	if err != nil {
		return err
	}

	slog.Info("execution finished",
		slog.String("execution_id", result.ExecutionID),
		slog.Int("inserted", result.InsertedCount),
		slog.String("first_content_id", result.FirstContentID),
	)
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /healthz エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
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
