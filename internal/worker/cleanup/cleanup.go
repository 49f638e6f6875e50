// Package cleanup は失敗した実行レコードの自動削除ジョブを提供する。
// 保持期間（デフォルト30日）を超過したfailed実行を日次バッチで削除する。
// completed実行とそのコンテンツは削除しない（履歴・RSSの源泉のため）。
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/topicradar/internal/repository"
)

// defaultRetention はfailed実行の既定の保持期間。
const defaultRetention = 30 * 24 * time.Hour

// CleanupJob は保持期間を超過したfailed実行の自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	executionRepo repository.ExecutionRepository
	logger        *slog.Logger
	Retention     time.Duration // failed実行の保持期間（デフォルト: 30日）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// retentionが0以下の場合はデフォルトの保持期間を使用する。
func NewCleanupJob(executionRepo repository.ExecutionRepository, logger *slog.Logger, retention time.Duration) *CleanupJob {
	if retention <= 0 {
		retention = defaultRetention
	}
	return &CleanupJob{
		executionRepo: executionRepo,
		logger:        logger,
		Retention:     retention,
	}
}

// Run は保持期間を超過したfailed実行を削除する。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	cutoff := start.UTC().Add(-j.Retention)

	deleted, err := j.executionRepo.DeleteFailedBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("失敗実行クリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Duration("retention", j.Retention),
		)
		return err
	}

	j.logger.Info("失敗実行クリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Duration("retention", j.Retention),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// Start は指定間隔でクリーンアップジョブを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("クリーンアップジョブを開始しました",
		slog.Duration("interval", interval),
	)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("クリーンアップサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
