// Package dedup は候補コンテンツの重複排除と永続化を行う。
//
// 重複判定はトピック単位の同一性キー（URL + published_at + last_updated_at）。
// 同じURLでもタイムスタンプが異なれば別コンテンツとして扱う（記事の更新追跡）。
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/topicradar/internal/extract"
	"github.com/hitoshi/topicradar/internal/model"
	"github.com/hitoshi/topicradar/internal/repository"
)

// Result は重複排除と挿入の結果。
type Result struct {
	// InsertedIDs は実際に挿入されたコンテンツのID（挿入順）。
	InsertedIDs []string
	// CandidateCount は入力された候補数。
	CandidateCount int
	// DroppedInBatch はバッチ内重複として落とした件数。
	DroppedInBatch int
	// DroppedExisting は永続化済み重複として落とした件数。
	DroppedExisting int
}

// Deduplicator は候補コンテンツをトピックスコープで重複排除して挿入する。
type Deduplicator struct {
	contentRepo repository.ContentRepository
	logger      *slog.Logger
}

// NewDeduplicator はDeduplicatorの新しいインスタンスを生成する。
func NewDeduplicator(contentRepo repository.ContentRepository, logger *slog.Logger) *Deduplicator {
	return &Deduplicator{
		contentRepo: contentRepo,
		logger:      logger,
	}
}

// Process は候補リストを重複排除し、新規コンテンツを1回のバルクINSERTで挿入する。
//
// 手順:
//  1. バッチ内重複を同一性キーで除去する（最初の出現を残す）
//  2. 残った候補のURL集合でトピックの既存キーを1回のバッチ検索で取得する
//  3. 既存キーに一致する候補を除去する
//  4. 残りをON CONFLICT DO NOTHINGで挿入する
//
// 並行実行との競合（検索と挿入の間に別の実行が同じ行を挿入するケース）は
// 手順4の一意制約だけで解決される。挿入をスキップされた行は結果に現れない。
func (d *Deduplicator) Process(ctx context.Context, topicID, executionID string, candidates []extract.CandidateEntry) (*Result, error) {
	result := &Result{CandidateCount: len(candidates)}
	if len(candidates) == 0 {
		return result, nil
	}

	// 手順1: バッチ内重複の除去（出現順を保持）
	seen := make(map[string]struct{}, len(candidates))
	unique := make([]extract.CandidateEntry, 0, len(candidates))
	for _, candidate := range candidates {
		key := model.ContentKey{
			URL:           candidate.URL,
			PublishedAt:   candidate.PublishedAt,
			LastUpdatedAt: candidate.LastUpdatedAt,
		}
		if _, dup := seen[key.String()]; dup {
			result.DroppedInBatch++
			continue
		}
		seen[key.String()] = struct{}{}
		unique = append(unique, candidate)
	}

	// 手順2: 既存キーのバッチ検索
	urls := make([]string, 0, len(unique))
	for _, candidate := range unique {
		urls = append(urls, candidate.URL)
	}
	existingKeys, err := d.contentRepo.ListKeysByTopic(ctx, topicID, urls)
	if err != nil {
		return nil, fmt.Errorf("既存コンテンツキーの検索に失敗しました: %w", err)
	}
	existing := make(map[string]struct{}, len(existingKeys))
	for _, key := range existingKeys {
		existing[key.String()] = struct{}{}
	}

	// 手順3: 永続化済み重複の除去
	now := time.Now().UTC()
	contents := make([]*model.Content, 0, len(unique))
	for _, candidate := range unique {
		key := model.ContentKey{
			URL:           candidate.URL,
			PublishedAt:   candidate.PublishedAt,
			LastUpdatedAt: candidate.LastUpdatedAt,
		}
		if _, dup := existing[key.String()]; dup {
			result.DroppedExisting++
			continue
		}
		contents = append(contents, &model.Content{
			ID:            uuid.New().String(),
			ExecutionID:   executionID,
			TopicID:       topicID,
			URL:           candidate.URL,
			Title:         candidate.Title,
			PublishedAt:   candidate.PublishedAt,
			LastUpdatedAt: candidate.LastUpdatedAt,
			Snippet:       candidate.Snippet,
			CreatedAt:     now,
		})
	}
	if len(contents) == 0 {
		return result, nil
	}

	// 手順4: バルク挿入
	insertedIDs, err := d.contentRepo.BulkInsertIgnoreConflicts(ctx, contents)
	if err != nil {
		return nil, fmt.Errorf("コンテンツのバルク挿入に失敗しました: %w", err)
	}
	result.InsertedIDs = insertedIDs

	d.logger.Info("コンテンツの重複排除が完了しました",
		slog.String("topic_id", topicID),
		slog.String("execution_id", executionID),
		slog.Int("candidates", result.CandidateCount),
		slog.Int("dropped_in_batch", result.DroppedInBatch),
		slog.Int("dropped_existing", result.DroppedExisting),
		slog.Int("inserted", len(insertedIDs)),
	)

	return result, nil
}
