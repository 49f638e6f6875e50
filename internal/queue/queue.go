// Package queue はRedisリストを使った実行ジョブキューを提供する。
//
// 非同期実行のリクエストはジョブとしてキューに積まれ、
// ワーカープロセスが取り出して実行する。ジョブはat-most-once配送で、
// ワーカーが処理中に落ちたジョブは再配送されない
// （定期スケジューラが次の周期で拾い直すため）。
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/topicradar/internal/model"
)

// Job は実行キューの1ジョブを表す。
type Job struct {
	ID         string          `json:"id"`
	TopicID    string          `json:"topic_id"`
	Initiator  model.Initiator `json:"initiator"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// redisCommands はキューが使用するRedisコマンドの部分集合。
type redisCommands interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
}

// Queue はRedisリストによる実行ジョブキュー。
type Queue struct {
	client redisCommands
	name   string
	logger *slog.Logger
}

// NewQueue はQueueの新しいインスタンスを生成する。
func NewQueue(client redisCommands, name string, logger *slog.Logger) *Queue {
	return &Queue{
		client: client,
		name:   name,
		logger: logger,
	}
}

// Enqueue は実行ジョブをキューに積み、ジョブIDを返す。
func (q *Queue) Enqueue(ctx context.Context, topicID string, initiator model.Initiator) (string, error) {
	job := Job{
		ID:         uuid.New().String(),
		TopicID:    topicID,
		Initiator:  initiator,
		EnqueuedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("ジョブのエンコードに失敗しました: %w", err)
	}

	if err := q.client.LPush(ctx, q.name, data).Err(); err != nil {
		return "", fmt.Errorf("ジョブの投入に失敗しました: %w", err)
	}

	q.logger.Info("実行ジョブを投入しました",
		slog.String("job_id", job.ID),
		slog.String("topic_id", topicID),
		slog.String("initiator", string(initiator)),
	)

	return job.ID, nil
}

// Dequeue はキューからジョブを1件取り出す。
// timeoutの間ジョブが来なければ(nil, nil)を返す。
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	values, err := q.client.BRPop(ctx, timeout, q.name).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ジョブの取り出しに失敗しました: %w", err)
	}
	// BRPopは[キー名, 値]の2要素を返す
	if len(values) != 2 {
		return nil, fmt.Errorf("BRPOPのレスポンスが不正です: %v", values)
	}

	var job Job
	if err := json.Unmarshal([]byte(values[1]), &job); err != nil {
		return nil, fmt.Errorf("ジョブのデコードに失敗しました: %w", err)
	}
	return &job, nil
}

// Depth はキューに滞留しているジョブ数を返す。
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	depth, err := q.client.LLen(ctx, q.name).Result()
	if err != nil {
		return 0, fmt.Errorf("キュー長の取得に失敗しました: %w", err)
	}
	return depth, nil
}
