package model

import "time"

// Content は実行中に発見された重複除去済みのコンテンツを表す。
// トピックスコープで (URL, 公開日時, 最終更新日時) の組が一意になる。
// 同一URLでも最終更新日時が異なれば別レコードとして扱う（鮮度の追跡）。
// パイプラインはコンテンツを削除しない。削除はユーザー/管理者の操作。
type Content struct {
	ID          string
	ExecutionID string
	// TopicID は重複除去のスコープキー。executionの所属トピックと常に一致する。
	TopicID string

	URL           string
	Title         string
	PublishedAt   *time.Time
	LastUpdatedAt *time.Time
	Snippet       string

	CreatedAt time.Time
}

// ContentKey はコンテンツの同一性判定キーを表す。
// 正規化済みURLと公開日時・最終更新日時の3要素からなる（トリプルキー方式）。
type ContentKey struct {
	URL           string
	PublishedAt   *time.Time
	LastUpdatedAt *time.Time
}

// String はキーの正準表現を返す。マップのキーとして使用する。
// タイムスタンプ未設定はepochと同一視する（ストレージの一意インデックスと同じ畳み方）。
func (k ContentKey) String() string {
	return k.URL + "|" + keyTime(k.PublishedAt) + "|" + keyTime(k.LastUpdatedAt)
}

func keyTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Key はコンテンツの同一性判定キーを返す。
func (c *Content) Key() ContentKey {
	return ContentKey{
		URL:           c.URL,
		PublishedAt:   c.PublishedAt,
		LastUpdatedAt: c.LastUpdatedAt,
	}
}

// Bookmark はコンテンツのピン留めを表す。コンテンツごとに一意。
type Bookmark struct {
	ID        string
	ContentID string
	CreatedAt time.Time
}

// BookmarkWithContent はブックマーク一覧用にコンテンツ情報を結合した構造体。
type BookmarkWithContent struct {
	Bookmark
	URL          string
	Title        string
	TopicID      string
	TopicQueries []string
}
