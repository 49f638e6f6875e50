// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/topicradar/internal/model"
)

// TopicRepository はトピックデータの永続化インターフェース。
type TopicRepository interface {
	// FindByID は指定IDのトピックを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Topic, error)

	// List は全トピックを作成日時の降順で返す。
	List(ctx context.Context) ([]*model.Topic, error)

	// Create はトピックを作成する。
	Create(ctx context.Context, topic *model.Topic) error

	// Update はトピックの設定を更新する。last_fetched_atはここでは更新しない。
	Update(ctx context.Context, topic *model.Topic) error

	// Delete は指定IDのトピックを削除する。関連する実行・コンテンツはCASCADE削除される。
	Delete(ctx context.Context, id string) error

	// UpdateLastFetchedAt はトピックのlast_fetched_atを更新する。
	// 実行成功時にオーケストレーターのみが呼び出す。
	UpdateLastFetchedAt(ctx context.Context, id string, fetchedAt time.Time) error

	// ListDue は定期実行の対象トピックを返す。
	// アクティブかつ、未フェッチまたは頻度クラスの間隔が経過しているトピックが対象。
	ListDue(ctx context.Context, now time.Time) ([]*model.Topic, error)
}

// TopicGroupRepository はトピックグループの永続化インターフェース。
type TopicGroupRepository interface {
	// FindByID は指定IDのグループを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.TopicGroup, error)

	// FindByName は指定名のグループを取得する。見つからない場合はnilを返す。
	FindByName(ctx context.Context, name string) (*model.TopicGroup, error)

	// List は全グループを名前順で返す。
	List(ctx context.Context) ([]*model.TopicGroup, error)

	// Create はグループを作成する。
	Create(ctx context.Context, group *model.TopicGroup) error

	// Update はグループを更新する。
	Update(ctx context.Context, group *model.TopicGroup) error

	// Delete は指定IDのグループを削除する。所属トピックのgroup_idはNULLになる。
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository は実行レコードの永続化インターフェース。
// 状態遷移は running → completed | failed の一度きり。
type ExecutionRepository interface {
	// Create は実行レコードをrunning状態で作成する。
	Create(ctx context.Context, execution *model.Execution) error

	// FindByID は指定IDの実行を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Execution, error)

	// UpdateRequestPayload は送信予定のリクエストペイロードを保存する。
	// ネットワーク呼び出しの前に呼び出すこと（クラッシュ時の監査記録のため）。
	UpdateRequestPayload(ctx context.Context, id string, payload map[string]any) error

	// UpdateResponsePayload は受信した生レスポンスを保存する。
	UpdateResponsePayload(ctx context.Context, id string, payload map[string]any) error

	// MarkCompleted は実行をcompletedに遷移させ、エラーメッセージをクリアする。
	MarkCompleted(ctx context.Context, id string) error

	// MarkFailed は実行をfailedに遷移させ、エラーメッセージを記録する。
	// 既に保存済みのリクエストペイロードは保持される。
	MarkFailed(ctx context.Context, id string, errorMessage string) error

	// List は実行の要約一覧を作成日時の降順で返す。
	// 各要約には最初のコンテンツID（存在する場合）を付加する。
	List(ctx context.Context, filter model.ExecutionFilter, limit, offset int) ([]model.ExecutionSummary, error)

	// DeleteFailedBefore は指定日時より古いfailed実行を削除し、削除件数を返す。
	DeleteFailedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ContentRepository はコンテンツデータの永続化インターフェース。
type ContentRepository interface {
	// FindByID は指定IDのコンテンツを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Content, error)

	// ListByTopic はトピックのコンテンツ一覧を作成日時の降順で返す。
	ListByTopic(ctx context.Context, topicID string, limit, offset int) ([]*model.Content, error)

	// ListByGroup はグループ所属トピック全体のコンテンツ一覧を作成日時の降順で返す。
	ListByGroup(ctx context.Context, groupID string, limit, offset int) ([]*model.Content, error)

	// ListKeysByTopic はトピックスコープで永続化済みの同一性キーを1回のバッチ検索で返す。
	// urlsに含まれるURLを持つ行だけが対象となる。
	ListKeysByTopic(ctx context.Context, topicID string, urls []string) ([]model.ContentKey, error)

	// BulkInsertIgnoreConflicts はコンテンツを1回のバルクINSERTで挿入する。
	// 一意制約に衝突した行は黙って無視され（ON CONFLICT DO NOTHING）、
	// 実際に挿入された行のIDを挿入順で返す。
	// 同一トピックの並行実行との競合はこの仕組みだけで解決する。
	BulkInsertIgnoreConflicts(ctx context.Context, contents []*model.Content) ([]string, error)

	// Delete は指定IDのコンテンツを削除する。パイプラインからは呼び出さない。
	Delete(ctx context.Context, id string) error
}

// BookmarkRepository はブックマークの永続化インターフェース。
type BookmarkRepository interface {
	// GetOrCreate はコンテンツのブックマークを冪等に作成する。
	// 既に存在する場合は既存のブックマークとcreated=falseを返す。
	GetOrCreate(ctx context.Context, contentID string) (*model.Bookmark, bool, error)

	// ListWithContent は全ブックマークをコンテンツ・トピック情報付きで返す。
	ListWithContent(ctx context.Context) ([]model.BookmarkWithContent, error)

	// DeleteByContentID はコンテンツのブックマークを削除する。
	// 削除した場合はtrue、存在しなかった場合はfalseを返す。
	DeleteByContentID(ctx context.Context, contentID string) (bool, error)
}
