// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 重複排除ドロップの理由ラベル。
const (
	DropReasonInBatch  = "in_batch"
	DropReasonExisting = "existing"
	DropReasonUnsafe   = "unsafe_url"
)

// MetricsCollector はメトリクス収集のインターフェース。
// オーケストレーターやワーカーから利用する。
type MetricsCollector interface {
	RecordExecution(status string, initiator string)
	RecordProviderLatency(provider string, duration time.Duration)
	RecordContentInserted(count int)
	RecordDedupDropped(reason string, count int)
	RecordQueueDepth(depth int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	executions      *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	contentInserted prometheus.Counter
	dedupDropped    *prometheus.CounterVec
	queueDepth      prometheus.Gauge
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "topicradar_executions_total",
			Help: "終了状態・起動主体別の実行数",
		}, []string{"status", "initiator"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "topicradar_provider_latency_seconds",
			Help:    "検索プロバイダ呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		contentInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "topicradar_content_inserted_total",
			Help: "挿入されたコンテンツの合計数",
		}),
		dedupDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "topicradar_dedup_dropped_total",
			Help: "理由別の重複排除ドロップ数",
		}, []string{"reason"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "topicradar_queue_depth",
			Help: "実行キューの滞留ジョブ数",
		}),
	}

	reg.MustRegister(
		c.executions,
		c.providerLatency,
		c.contentInserted,
		c.dedupDropped,
		c.queueDepth,
	)

	return c
}

// RecordExecution は実行の終了を状態・起動主体のラベル付きで記録する。
func (c *Collector) RecordExecution(status string, initiator string) {
	c.executions.WithLabelValues(status, initiator).Inc()
}

// RecordProviderLatency はプロバイダ呼び出しのレイテンシを記録する。
func (c *Collector) RecordProviderLatency(provider string, duration time.Duration) {
	c.providerLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordContentInserted は挿入されたコンテンツ数を記録する。
func (c *Collector) RecordContentInserted(count int) {
	c.contentInserted.Add(float64(count))
}

// RecordDedupDropped は重複排除で落とした件数を理由ラベル付きで記録する。
func (c *Collector) RecordDedupDropped(reason string, count int) {
	c.dedupDropped.WithLabelValues(reason).Add(float64(count))
}

// RecordQueueDepth は実行キューの滞留ジョブ数を記録する。
func (c *Collector) RecordQueueDepth(depth int) {
	c.queueDepth.Set(float64(depth))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
