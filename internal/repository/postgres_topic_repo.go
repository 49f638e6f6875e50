package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/topicradar/internal/model"
)

// PostgresTopicRepo はPostgreSQLを使用したトピックリポジトリ。
type PostgresTopicRepo struct {
	db *sql.DB
}

// NewPostgresTopicRepo はPostgresTopicRepoを生成する。
func NewPostgresTopicRepo(db *sql.DB) *PostgresTopicRepo {
	return &PostgresTopicRepo{db: db}
}

const topicColumns = `id, group_id, is_active, queries, provider,
	domain_allowlist, domain_blocklist, language_filter, country, recency_filter,
	after_date, before_date, last_updated_after, last_updated_before,
	update_frequency, embedding, created_at, last_fetched_at`

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTopic は1行分のトピックを読み取る。
func scanTopic(row rowScanner) (*model.Topic, error) {
	topic := &model.Topic{}
	var groupID sql.NullString
	var queriesJSON []byte
	var allowJSON, blockJSON, langJSON []byte
	var afterDate, beforeDate, updAfter, updBefore, lastFetchedAt sql.NullTime
	var embedding pq.Float64Array

	err := row.Scan(
		&topic.ID, &groupID, &topic.IsActive, &queriesJSON, &topic.Provider,
		&allowJSON, &blockJSON, &langJSON, &topic.Country, (*string)(&topic.RecencyFilter),
		&afterDate, &beforeDate, &updAfter, &updBefore,
		(*string)(&topic.UpdateFrequency), &embedding, &topic.CreatedAt, &lastFetchedAt,
	)
	if err != nil {
		return nil, err
	}

	topic.GroupID = nullStringValue(groupID)
	if err := json.Unmarshal(queriesJSON, &topic.Queries); err != nil {
		return nil, fmt.Errorf("クエリ一覧のデコードに失敗しました: %w", err)
	}
	if topic.DomainAllowlist, err = decodeStringList(allowJSON); err != nil {
		return nil, err
	}
	if topic.DomainBlocklist, err = decodeStringList(blockJSON); err != nil {
		return nil, err
	}
	if topic.LanguageFilter, err = decodeStringList(langJSON); err != nil {
		return nil, err
	}
	topic.AfterDate = nullTimeValue(afterDate)
	topic.BeforeDate = nullTimeValue(beforeDate)
	topic.LastUpdatedAfter = nullTimeValue(updAfter)
	topic.LastUpdatedBefore = nullTimeValue(updBefore)
	topic.Embedding = []float64(embedding)
	topic.LastFetchedAt = nullTimeValue(lastFetchedAt)

	return topic, nil
}

// FindByID は指定IDのトピックを取得する。見つからない場合はnilを返す。
func (r *PostgresTopicRepo) FindByID(ctx context.Context, id string) (*model.Topic, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+topicColumns+` FROM topics WHERE id = $1`, id)

	topic, err := scanTopic(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("トピックの取得に失敗しました: %w", err)
	}
	return topic, nil
}

// List は全トピックを作成日時の降順で返す。
func (r *PostgresTopicRepo) List(ctx context.Context) ([]*model.Topic, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+topicColumns+` FROM topics ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("トピック一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectTopics(rows)
}

// ListDue は定期実行の対象トピックを返す。
// アクティブかつ、未フェッチまたは頻度クラスの間隔（day=24時間、week=7日）が
// 経過しているトピックが対象。
func (r *PostgresTopicRepo) ListDue(ctx context.Context, now time.Time) ([]*model.Topic, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+topicColumns+` FROM topics
		 WHERE is_active = TRUE
		   AND (
		     last_fetched_at IS NULL
		     OR (update_frequency = 'day' AND last_fetched_at <= $1)
		     OR (update_frequency = 'week' AND last_fetched_at <= $2)
		   )
		 ORDER BY last_fetched_at ASC NULLS FIRST`,
		now.Add(-24*time.Hour), now.Add(-7*24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("定期実行対象トピックの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectTopics(rows)
}

func collectTopics(rows *sql.Rows) ([]*model.Topic, error) {
	var topics []*model.Topic
	for rows.Next() {
		topic, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("トピック行の読み取りに失敗しました: %w", err)
		}
		topics = append(topics, topic)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("トピック一覧の走査に失敗しました: %w", err)
	}
	return topics, nil
}

// Create はトピックを作成する。
func (r *PostgresTopicRepo) Create(ctx context.Context, topic *model.Topic) error {
	queriesJSON, err := json.Marshal(topic.Queries)
	if err != nil {
		return fmt.Errorf("クエリ一覧のエンコードに失敗しました: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO topics (id, group_id, is_active, queries, provider,
		    domain_allowlist, domain_blocklist, language_filter, country, recency_filter,
		    after_date, before_date, last_updated_after, last_updated_before,
		    update_frequency, embedding, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		topic.ID, nullString(topic.GroupID), topic.IsActive, queriesJSON, topic.Provider,
		encodeStringList(topic.DomainAllowlist), encodeStringList(topic.DomainBlocklist),
		encodeStringList(topic.LanguageFilter), topic.Country, string(topic.RecencyFilter),
		topic.AfterDate, topic.BeforeDate, topic.LastUpdatedAfter, topic.LastUpdatedBefore,
		string(topic.UpdateFrequency), pq.Float64Array(topic.Embedding), topic.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("トピックの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はトピックの設定を更新する。last_fetched_atはここでは更新しない。
func (r *PostgresTopicRepo) Update(ctx context.Context, topic *model.Topic) error {
	queriesJSON, err := json.Marshal(topic.Queries)
	if err != nil {
		return fmt.Errorf("クエリ一覧のエンコードに失敗しました: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE topics SET
		    group_id = $2, is_active = $3, queries = $4, provider = $5,
		    domain_allowlist = $6, domain_blocklist = $7, language_filter = $8,
		    country = $9, recency_filter = $10,
		    after_date = $11, before_date = $12,
		    last_updated_after = $13, last_updated_before = $14,
		    update_frequency = $15, embedding = $16
		 WHERE id = $1`,
		topic.ID, nullString(topic.GroupID), topic.IsActive, queriesJSON, topic.Provider,
		encodeStringList(topic.DomainAllowlist), encodeStringList(topic.DomainBlocklist),
		encodeStringList(topic.LanguageFilter), topic.Country, string(topic.RecencyFilter),
		topic.AfterDate, topic.BeforeDate, topic.LastUpdatedAfter, topic.LastUpdatedBefore,
		string(topic.UpdateFrequency), pq.Float64Array(topic.Embedding),
	)
	if err != nil {
		return fmt.Errorf("トピックの更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDのトピックを削除する。
func (r *PostgresTopicRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM topics WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("トピックの削除に失敗しました: %w", err)
	}
	return nil
}

// UpdateLastFetchedAt はトピックのlast_fetched_atを更新する。
func (r *PostgresTopicRepo) UpdateLastFetchedAt(ctx context.Context, id string, fetchedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE topics SET last_fetched_at = $2 WHERE id = $1`, id, fetchedAt)
	if err != nil {
		return fmt.Errorf("last_fetched_atの更新に失敗しました: %w", err)
	}
	return nil
}

// --- 共通ヘルパー ---

// nullString は空文字列をNULLに変換する。
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullStringValue はNULLを空文字列に変換する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// nullTimeValue はNULLをnilに変換する。
func nullTimeValue(nt sql.NullTime) *time.Time {
	if nt.Valid {
		t := nt.Time
		return &t
	}
	return nil
}

// encodeStringList は文字列リストをJSONB列の値に変換する。空リストはNULLとして保存する。
func encodeStringList(list []string) any {
	if len(list) == 0 {
		return nil
	}
	b, err := json.Marshal(list)
	if err != nil {
		return nil
	}
	return b
}

// decodeStringList はJSONB列の値を文字列リストに変換する。NULLはnilを返す。
func decodeStringList(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("文字列リストのデコードに失敗しました: %w", err)
	}
	return list, nil
}

// compile-time interface check
var _ TopicRepository = (*PostgresTopicRepo)(nil)
