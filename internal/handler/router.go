package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/topicradar/internal/metrics"
	"github.com/hitoshi/topicradar/internal/middleware"
)

// RouterDeps はルーター構築に必要な依存をまとめる。
type RouterDeps struct {
	TopicHandler     *TopicHandler
	GroupHandler     *GroupHandler
	ExecutionHandler *ExecutionHandler
	ContentHandler   *ContentHandler
	RSSHandler       *RSSHandler

	APIToken          string
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Gatherer          prometheus.Gatherer
	Logger            *slog.Logger
}

// NewRouter はAPIルーターを構築する。
//
// /healthz と /rss/* は認証なしで公開し、/api/* はBearerトークン認証と
// レート制限の配下に置く。実行トリガーだけは追加で専用のレート制限を通す。
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.SetupMetricsRoute(deps.Gatherer))
	}

	// RSSフィードはフィードリーダーから認証なしで取得できる必要がある
	r.Route("/rss", func(r chi.Router) {
		r.Get("/topics/{id}", deps.RSSHandler.TopicFeed)
		r.Get("/groups/{id}", deps.RSSHandler.GroupFeed)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.APIToken))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Route("/topics", func(r chi.Router) {
			r.Get("/", deps.TopicHandler.ListTopics)
			r.Post("/", deps.TopicHandler.CreateTopic)
			r.Get("/{id}", deps.TopicHandler.GetTopic)
			r.Put("/{id}", deps.TopicHandler.UpdateTopic)
			r.Delete("/{id}", deps.TopicHandler.DeleteTopic)
			r.Get("/{id}/contents", deps.ContentHandler.ListTopicContents)

			// 実行トリガーはプロバイダAPIのコストが掛かるため専用の制限を重ねる
			r.With(deps.RateLimiter.RunMiddleware()).
				Post("/{id}/run", deps.ExecutionHandler.RunTopic)
		})

		r.Route("/groups", func(r chi.Router) {
			r.Get("/", deps.GroupHandler.ListGroups)
			r.Post("/", deps.GroupHandler.CreateGroup)
			r.Get("/{id}", deps.GroupHandler.GetGroup)
			r.Put("/{id}", deps.GroupHandler.UpdateGroup)
			r.Delete("/{id}", deps.GroupHandler.DeleteGroup)
		})

		r.Route("/executions", func(r chi.Router) {
			r.Get("/", deps.ExecutionHandler.ListExecutions)
			r.Get("/{id}", deps.ExecutionHandler.GetExecution)
		})

		r.Route("/contents", func(r chi.Router) {
			r.Get("/{id}", deps.ContentHandler.GetContent)
			r.Delete("/{id}", deps.ContentHandler.DeleteContent)
			r.Post("/{id}/bookmark", deps.ContentHandler.CreateBookmark)
			r.Delete("/{id}/bookmark", deps.ContentHandler.DeleteBookmark)
		})

		r.Get("/bookmarks", deps.ContentHandler.ListBookmarks)
	})

	return r
}
