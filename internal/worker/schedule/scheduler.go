// Package schedule はトピックの定期実行スケジューラを提供する。
//
// ティッカー間隔ごとに実行対象のトピックを取得し、実行ジョブとして
// キューに積む。実行そのものはキューのコンシューマが行うため、
// スケジューラ自身はプロバイダ呼び出しを一切行わない。
package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/topicradar/internal/model"
	"github.com/hitoshi/topicradar/internal/repository"
)

// Enqueuer は実行ジョブの投入インターフェース。
type Enqueuer interface {
	// Enqueue は実行ジョブをキューに積み、ジョブIDを返す。
	Enqueue(ctx context.Context, topicID string, initiator model.Initiator) (string, error)
}

// Scheduler はトピックの定期実行スケジューラ。
// 対象判定は頻度クラスごとの経過時間に基づく:
// 未フェッチのトピック、day頻度で24時間経過、week頻度で7日経過。
type Scheduler struct {
	topicRepo repository.TopicRepository
	enqueuer  Enqueuer
	logger    *slog.Logger
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(
	topicRepo repository.TopicRepository,
	enqueuer Enqueuer,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		topicRepo: topicRepo,
		enqueuer:  enqueuer,
		logger:    logger,
	}
}

// Start はティッカー間隔でスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("定期実行スケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("スケジュールサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("定期実行スケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("スケジュールサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は実行対象のトピックを1回取得し、ジョブとしてキューへ積む。
// 投入に失敗したトピックはログに残してスキップする（次周期で再試行される）。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	topics, err := s.topicRepo.ListDue(ctx, start.UTC())
	if err != nil {
		return err
	}

	if len(topics) == 0 {
		s.logger.Info("定期実行の対象トピックはありません")
		return nil
	}

	enqueued := 0
	for _, topic := range topics {
		jobID, err := s.enqueuer.Enqueue(ctx, topic.ID, model.InitiatorPeriodic)
		if err != nil {
			s.logger.Error("実行ジョブの投入に失敗しました",
				slog.String("topic_id", topic.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		enqueued++
		s.logger.Debug("定期実行ジョブを投入しました",
			slog.String("topic_id", topic.ID),
			slog.String("job_id", jobID),
		)
	}

	s.logger.Info("スケジュールサイクルが完了しました",
		slog.Int("due_count", len(topics)),
		slog.Int("enqueued", enqueued),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}
