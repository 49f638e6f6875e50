package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/hitoshi/topicradar/internal/model"
)

// PostgresContentRepo はPostgreSQLを使用したコンテンツリポジトリ。
type PostgresContentRepo struct {
	db *sql.DB
}

// NewPostgresContentRepo はPostgresContentRepoを生成する。
func NewPostgresContentRepo(db *sql.DB) *PostgresContentRepo {
	return &PostgresContentRepo{db: db}
}

const contentColumns = `id, execution_id, topic_id, url, title,
	published_at, last_updated_at, snippet, created_at`

func scanContent(row rowScanner) (*model.Content, error) {
	content := &model.Content{}
	var publishedAt, lastUpdatedAt sql.NullTime

	err := row.Scan(
		&content.ID, &content.ExecutionID, &content.TopicID, &content.URL,
		&content.Title, &publishedAt, &lastUpdatedAt, &content.Snippet,
		&content.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	content.PublishedAt = nullTimeValue(publishedAt)
	content.LastUpdatedAt = nullTimeValue(lastUpdatedAt)
	return content, nil
}

// FindByID は指定IDのコンテンツを取得する。見つからない場合はnilを返す。
func (r *PostgresContentRepo) FindByID(ctx context.Context, id string) (*model.Content, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+contentColumns+` FROM contents WHERE id = $1`, id)

	content, err := scanContent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("コンテンツの取得に失敗しました: %w", err)
	}
	return content, nil
}

// ListByTopic はトピックのコンテンツ一覧を作成日時の降順で返す。
func (r *PostgresContentRepo) ListByTopic(ctx context.Context, topicID string, limit, offset int) ([]*model.Content, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contentColumns+` FROM contents
		 WHERE topic_id = $1
		 ORDER BY created_at DESC, id
		 LIMIT $2 OFFSET $3`,
		topicID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("コンテンツ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectContents(rows)
}

// ListByGroup はグループ所属トピック全体のコンテンツ一覧を作成日時の降順で返す。
func (r *PostgresContentRepo) ListByGroup(ctx context.Context, groupID string, limit, offset int) ([]*model.Content, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.execution_id, c.topic_id, c.url, c.title,
		        c.published_at, c.last_updated_at, c.snippet, c.created_at
		 FROM contents c
		 JOIN topics t ON t.id = c.topic_id
		 WHERE t.group_id = $1
		 ORDER BY c.created_at DESC, c.id
		 LIMIT $2 OFFSET $3`,
		groupID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("グループのコンテンツ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return collectContents(rows)
}

func collectContents(rows *sql.Rows) ([]*model.Content, error) {
	var contents []*model.Content
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("コンテンツ行の読み取りに失敗しました: %w", err)
		}
		contents = append(contents, content)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("コンテンツ一覧の走査に失敗しました: %w", err)
	}
	return contents, nil
}

// ListKeysByTopic はトピックスコープで永続化済みの同一性キーを1回のバッチ検索で返す。
func (r *PostgresContentRepo) ListKeysByTopic(ctx context.Context, topicID string, urls []string) ([]model.ContentKey, error) {
	if len(urls) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT url, published_at, last_updated_at
		 FROM contents
		 WHERE topic_id = $1 AND url = ANY($2)`,
		topicID, pq.Array(urls))
	if err != nil {
		return nil, fmt.Errorf("永続化済みキーの検索に失敗しました: %w", err)
	}
	defer rows.Close()

	var keys []model.ContentKey
	for rows.Next() {
		var key model.ContentKey
		var publishedAt, lastUpdatedAt sql.NullTime
		if err := rows.Scan(&key.URL, &publishedAt, &lastUpdatedAt); err != nil {
			return nil, fmt.Errorf("キー行の読み取りに失敗しました: %w", err)
		}
		key.PublishedAt = nullTimeValue(publishedAt)
		key.LastUpdatedAt = nullTimeValue(lastUpdatedAt)
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("永続化済みキーの走査に失敗しました: %w", err)
	}

	return keys, nil
}

// BulkInsertIgnoreConflicts はコンテンツを1回のバルクINSERTで挿入する。
// 一意制約に衝突した行はON CONFLICT DO NOTHINGで無視し、
// 実際に挿入された行のIDを挿入順で返す。
// 同一トピックの並行実行との競合はこの挿入時無視だけで解決する
// （insert-then-checkではなくinsert-or-ignore）。
func (r *PostgresContentRepo) BulkInsertIgnoreConflicts(ctx context.Context, contents []*model.Content) ([]string, error) {
	if len(contents) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO contents
		(id, execution_id, topic_id, url, title, published_at, last_updated_at, snippet, created_at)
	 VALUES `)

	args := make([]any, 0, len(contents)*9)
	for i, c := range contents {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 9
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9))
		args = append(args,
			c.ID, c.ExecutionID, c.TopicID, c.URL, c.Title,
			c.PublishedAt, c.LastUpdatedAt, c.Snippet, c.CreatedAt,
		)
	}

	sb.WriteString(" ON CONFLICT DO NOTHING RETURNING id")

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("コンテンツのバルク挿入に失敗しました: %w", err)
	}
	defer rows.Close()

	var inserted []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("挿入結果の読み取りに失敗しました: %w", err)
		}
		inserted = append(inserted, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("挿入結果の走査に失敗しました: %w", err)
	}

	return inserted, nil
}

// Delete は指定IDのコンテンツを削除する。パイプラインからは呼び出さない。
func (r *PostgresContentRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM contents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("コンテンツの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ContentRepository = (*PostgresContentRepo)(nil)
