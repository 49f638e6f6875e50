// Package runqueue は実行ジョブキューのコンシューマを提供する。
//
// キューからジョブを取り出し、semaphoreパターンで最大並列数を
// 制御しながらトピックの検索実行を行う。
package runqueue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/topicradar/internal/execution"
	"github.com/hitoshi/topicradar/internal/metrics"
	"github.com/hitoshi/topicradar/internal/model"
	"github.com/hitoshi/topicradar/internal/queue"
)

// dequeueTimeout はBRPOPのブロック時間。
// コンテキストのキャンセルを定期的に確認できる程度に短くする。
const dequeueTimeout = 5 * time.Second

// JobSource は実行ジョブの取得インターフェース。
type JobSource interface {
	// Dequeue はキューからジョブを1件取り出す。タイムアウト時は(nil, nil)を返す。
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)

	// Depth はキューに滞留しているジョブ数を返す。
	Depth(ctx context.Context) (int64, error)
}

// ExecutionRunner は検索実行のインターフェース。
type ExecutionRunner interface {
	Run(ctx context.Context, topicID string, initiator model.Initiator) (*execution.RunResult, error)
}

// Consumer は実行ジョブキューのコンシューマ。
type Consumer struct {
	source         JobSource
	runner         ExecutionRunner
	collector      metrics.MetricsCollector
	logger         *slog.Logger
	maxConcurrency int
}

// NewConsumer はConsumerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値4を使用する。
func NewConsumer(
	source JobSource,
	runner ExecutionRunner,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	maxConcurrency int,
) *Consumer {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	return &Consumer{
		source:         source,
		runner:         runner,
		collector:      collector,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Start はコンシューマループを起動する。
// コンテキストがキャンセルされるまでジョブを取り出して実行し続ける。
// 停止時は実行中のジョブの完了を待つ。
func (c *Consumer) Start(ctx context.Context) {
	c.logger.Info("実行キューコンシューマを開始しました",
		slog.Int("max_concurrency", c.maxConcurrency),
	)

	sem := make(chan struct{}, c.maxConcurrency)
	var wg sync.WaitGroup

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			c.logger.Info("実行キューコンシューマを停止しました")
			return
		default:
		}

		job, err := c.source.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error("ジョブの取り出しに失敗しました",
				slog.String("error", err.Error()),
			)
			// 接続断などの一時障害でビジーループにならないように待つ
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
			continue
		}
		if job == nil {
			continue
		}

		if depth, err := c.source.Depth(ctx); err == nil {
			c.collector.RecordQueueDepth(int(depth))
		}

		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(job *queue.Job) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			c.process(ctx, job)
		}(job)
	}
}

// process はジョブを1件実行する。
// 実行の失敗はfailed実行レコードとして記録済みのため、ここではログのみ。
func (c *Consumer) process(ctx context.Context, job *queue.Job) {
	c.logger.Info("実行ジョブを処理します",
		slog.String("job_id", job.ID),
		slog.String("topic_id", job.TopicID),
		slog.String("initiator", string(job.Initiator)),
	)

	result, err := c.runner.Run(ctx, job.TopicID, job.Initiator)
	if err != nil {
		c.logger.Error("実行ジョブが失敗しました",
			slog.String("job_id", job.ID),
			slog.String("topic_id", job.TopicID),
			slog.String("error", err.Error()),
		)
		return
	}

	c.logger.Info("実行ジョブが完了しました",
		slog.String("job_id", job.ID),
		slog.String("execution_id", result.ExecutionID),
		slog.Int("inserted", result.InsertedCount),
	)
}
