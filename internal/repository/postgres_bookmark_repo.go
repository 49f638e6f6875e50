package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/topicradar/internal/model"
)

// PostgresBookmarkRepo はPostgreSQLを使用したブックマークリポジトリ。
type PostgresBookmarkRepo struct {
	db *sql.DB
}

// NewPostgresBookmarkRepo はPostgresBookmarkRepoを生成する。
func NewPostgresBookmarkRepo(db *sql.DB) *PostgresBookmarkRepo {
	return &PostgresBookmarkRepo{db: db}
}

// GetOrCreate はコンテンツのブックマークを冪等に作成する。
// ON CONFLICT DO NOTHINGで挿入し、衝突した場合は既存行を取得して返す。
func (r *PostgresBookmarkRepo) GetOrCreate(ctx context.Context, contentID string) (*model.Bookmark, bool, error) {
	bookmark := &model.Bookmark{
		ID:        uuid.New().String(),
		ContentID: contentID,
		CreatedAt: time.Now(),
	}

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO bookmarks (id, content_id, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (content_id) DO NOTHING`,
		bookmark.ID, bookmark.ContentID, bookmark.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("ブックマークの作成に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("挿入結果の取得に失敗しました: %w", err)
	}
	if affected > 0 {
		return bookmark, true, nil
	}

	// 既存行を返す
	existing := &model.Bookmark{}
	err = r.db.QueryRowContext(ctx,
		`SELECT id, content_id, created_at FROM bookmarks WHERE content_id = $1`,
		contentID,
	).Scan(&existing.ID, &existing.ContentID, &existing.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("既存ブックマークの取得に失敗しました: %w", err)
	}

	return existing, false, nil
}

// ListWithContent は全ブックマークをコンテンツ・トピック情報付きで
// 作成日時の降順で返す。
func (r *PostgresBookmarkRepo) ListWithContent(ctx context.Context) ([]model.BookmarkWithContent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT b.id, b.content_id, b.created_at,
		        c.url, c.title, c.topic_id, t.queries
		 FROM bookmarks b
		 JOIN contents c ON c.id = b.content_id
		 JOIN topics t ON t.id = c.topic_id
		 ORDER BY b.created_at DESC, b.id`)
	if err != nil {
		return nil, fmt.Errorf("ブックマーク一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var bookmarks []model.BookmarkWithContent
	for rows.Next() {
		var b model.BookmarkWithContent
		var queriesJSON []byte
		if err := rows.Scan(
			&b.ID, &b.ContentID, &b.CreatedAt,
			&b.URL, &b.Title, &b.TopicID, &queriesJSON,
		); err != nil {
			return nil, fmt.Errorf("ブックマーク行の読み取りに失敗しました: %w", err)
		}
		if err := json.Unmarshal(queriesJSON, &b.TopicQueries); err != nil {
			return nil, fmt.Errorf("トピッククエリのデコードに失敗しました: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ブックマーク一覧の走査に失敗しました: %w", err)
	}

	return bookmarks, nil
}

// DeleteByContentID はコンテンツのブックマークを削除する。
func (r *PostgresBookmarkRepo) DeleteByContentID(ctx context.Context, contentID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM bookmarks WHERE content_id = $1`, contentID)
	if err != nil {
		return false, fmt.Errorf("ブックマークの削除に失敗しました: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除結果の取得に失敗しました: %w", err)
	}
	return affected > 0, nil
}

// compile-time interface check
var _ BookmarkRepository = (*PostgresBookmarkRepo)(nil)
