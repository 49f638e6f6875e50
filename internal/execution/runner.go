// Package execution は1回の検索実行のオーケストレーションを提供する。
//
// パイプライン:
//
//	プロバイダ解決 → ペイロード構築・保存 → 検索呼び出し → レスポンス保存
//	→ 抽出 → サニタイズ/URL検証 → 重複排除・挿入 → 完了遷移
//
// リクエストペイロードはネットワーク呼び出しの前に永続化されるため、
// 実行中にプロセスが落ちても何を試みたかの監査記録が残る。
// last_fetched_atの更新は完了遷移の後にのみ行われる。
package execution

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/topicradar/internal/dedup"
	"github.com/hitoshi/topicradar/internal/extract"
	"github.com/hitoshi/topicradar/internal/metrics"
	"github.com/hitoshi/topicradar/internal/model"
	"github.com/hitoshi/topicradar/internal/provider"
	"github.com/hitoshi/topicradar/internal/repository"
	"github.com/hitoshi/topicradar/internal/security"
)

// RunResult は1回の実行の結果。
type RunResult struct {
	ExecutionID    string
	FirstContentID string // 挿入されたコンテンツが無い場合は空文字列
	InsertedCount  int
	OutputText     string
}

// Runner は検索実行のオーケストレーター。
type Runner struct {
	topicRepo     repository.TopicRepository
	executionRepo repository.ExecutionRepository
	registry      *provider.Registry
	deduper       *dedup.Deduplicator
	sanitizer     security.SnippetSanitizerService
	urlGuard      security.URLGuardService
	collector     metrics.MetricsCollector
	logger        *slog.Logger
	limits        provider.Limits
}

// NewRunner はRunnerの新しいインスタンスを生成する。
func NewRunner(
	topicRepo repository.TopicRepository,
	executionRepo repository.ExecutionRepository,
	registry *provider.Registry,
	deduper *dedup.Deduplicator,
	sanitizer security.SnippetSanitizerService,
	urlGuard security.URLGuardService,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	limits provider.Limits,
) *Runner {
	return &Runner{
		topicRepo:     topicRepo,
		executionRepo: executionRepo,
		registry:      registry,
		deduper:       deduper,
		sanitizer:     sanitizer,
		urlGuard:      urlGuard,
		collector:     collector,
		logger:        logger,
		limits:        limits,
	}
}

// Run はトピックに対して検索実行を1回行う。
//
// トピックが存在しない場合は実行レコードを作らずにエラーを返す。
// 実行レコードの作成後に発生したエラー（設定エラーを含む）は
// すべてfailed遷移として記録したうえで呼び出し元へ返す。
// プロバイダへのネットワーク呼び出しは1回の実行につき正確に1回。
func (r *Runner) Run(ctx context.Context, topicID string, initiator model.Initiator) (*RunResult, error) {
	topic, err := r.topicRepo.FindByID(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if topic == nil {
		return nil, model.NewTopicNotFoundError(topicID)
	}

	execution := &model.Execution{
		ID:        uuid.New().String(),
		TopicID:   topic.ID,
		Initiator: initiator,
		Status:    model.ExecutionStatusRunning,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.executionRepo.Create(ctx, execution); err != nil {
		return nil, err
	}

	r.logger.Info("検索実行を開始します",
		slog.String("execution_id", execution.ID),
		slog.String("topic_id", topic.ID),
		slog.String("initiator", string(initiator)),
	)

	result, err := r.runPipeline(ctx, topic, execution)
	if err != nil {
		return nil, r.fail(ctx, execution, err)
	}

	if err := r.executionRepo.MarkCompleted(ctx, execution.ID); err != nil {
		return nil, r.fail(ctx, execution, err)
	}
	r.collector.RecordExecution(string(model.ExecutionStatusCompleted), string(initiator))

	// last_fetched_atは成功時のみ更新する。ここでの失敗は実行自体を
	// 失敗にはせず、次回の定期実行が早まるだけなので警告に留める。
	if err := r.topicRepo.UpdateLastFetchedAt(ctx, topic.ID, time.Now().UTC()); err != nil {
		r.logger.Warn("last_fetched_atの更新に失敗しました",
			slog.String("topic_id", topic.ID),
			slog.String("error", err.Error()),
		)
	}

	r.logger.Info("検索実行が完了しました",
		slog.String("execution_id", execution.ID),
		slog.String("topic_id", topic.ID),
		slog.Int("inserted", result.InsertedCount),
	)

	return result, nil
}

// runPipeline は実行レコード作成後のパイプライン本体。
// エラーは呼び出し元でfailed遷移として記録される。
func (r *Runner) runPipeline(ctx context.Context, topic *model.Topic, execution *model.Execution) (*RunResult, error) {
	p, err := r.registry.Resolve(topic.Provider)
	if err != nil {
		return nil, err
	}

	req, err := provider.FromTopic(topic, r.limits)
	if err != nil {
		return nil, err
	}

	payload, err := p.BuildPayload(req)
	if err != nil {
		return nil, err
	}

	// 監査のため、ネットワーク呼び出しの前にペイロードを永続化する。
	if err := r.executionRepo.UpdateRequestPayload(ctx, execution.ID, payload); err != nil {
		return nil, err
	}

	start := time.Now()
	searchResult, err := p.Search(ctx, payload)
	r.collector.RecordProviderLatency(p.Name(), time.Since(start))
	if err != nil {
		return nil, err
	}

	if err := r.executionRepo.UpdateResponsePayload(ctx, execution.ID, searchResult.Payload); err != nil {
		return nil, err
	}

	extractor, err := extract.ForProvider(p.Name())
	if err != nil {
		return nil, err
	}
	candidates := r.filterCandidates(extractor.Extract(searchResult.Payload))

	dedupResult, err := r.deduper.Process(ctx, topic.ID, execution.ID, candidates)
	if err != nil {
		return nil, err
	}
	r.collector.RecordDedupDropped(metrics.DropReasonInBatch, dedupResult.DroppedInBatch)
	r.collector.RecordDedupDropped(metrics.DropReasonExisting, dedupResult.DroppedExisting)
	r.collector.RecordContentInserted(len(dedupResult.InsertedIDs))

	runResult := &RunResult{
		ExecutionID:   execution.ID,
		InsertedCount: len(dedupResult.InsertedIDs),
		OutputText:    searchResult.OutputText,
	}
	if len(dedupResult.InsertedIDs) > 0 {
		runResult.FirstContentID = dedupResult.InsertedIDs[0]
	}
	return runResult, nil
}

// filterCandidates はスニペットのサニタイズと引用URLの安全性検証を行う。
// 危険なURL（プライベートIPやlocalhost等）を持つ候補は保存せずに落とす。
func (r *Runner) filterCandidates(candidates []extract.CandidateEntry) []extract.CandidateEntry {
	filtered := make([]extract.CandidateEntry, 0, len(candidates))
	dropped := 0
	for _, candidate := range candidates {
		if err := r.urlGuard.ValidateURL(candidate.URL); err != nil {
			dropped++
			r.logger.Warn("危険な引用URLを破棄しました",
				slog.String("url", candidate.URL),
				slog.String("reason", err.Error()),
			)
			continue
		}
		candidate.Snippet = r.sanitizer.Sanitize(candidate.Snippet)
		candidate.Title = r.sanitizer.Sanitize(candidate.Title)
		filtered = append(filtered, candidate)
	}
	if dropped > 0 {
		r.collector.RecordDedupDropped(metrics.DropReasonUnsafe, dropped)
	}
	return filtered
}

// fail は実行をfailedに遷移させ、元のエラーをそのまま返す。
// 遷移自体に失敗した場合も元のエラーを優先する（遷移失敗はログのみ）。
func (r *Runner) fail(ctx context.Context, execution *model.Execution, cause error) error {
	if err := r.executionRepo.MarkFailed(ctx, execution.ID, cause.Error()); err != nil {
		r.logger.Error("実行の失敗遷移に失敗しました",
			slog.String("execution_id", execution.ID),
			slog.String("error", err.Error()),
		)
	}
	r.collector.RecordExecution(string(model.ExecutionStatusFailed), string(execution.Initiator))

	r.logger.Error("検索実行が失敗しました",
		slog.String("execution_id", execution.ID),
		slog.String("topic_id", execution.TopicID),
		slog.String("error", cause.Error()),
	)

	return fmt.Errorf("実行 %s が失敗しました: %w", execution.ID, cause)
}
