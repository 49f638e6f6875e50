package repository

import (
	"testing"
	"time"

	"github.com/hitoshi/topicradar/internal/model"
)

// 各Postgresリポジトリがインターフェースをみたすことをコンパイル時に検証
func TestPostgresRepos_ImplementInterfaces(t *testing.T) {
	var _ TopicRepository = (*PostgresTopicRepo)(nil)
	var _ TopicGroupRepository = (*PostgresTopicGroupRepo)(nil)
	var _ ExecutionRepository = (*PostgresExecutionRepo)(nil)
	var _ ContentRepository = (*PostgresContentRepo)(nil)
	var _ BookmarkRepository = (*PostgresBookmarkRepo)(nil)
}

func TestNewPostgresRepos_Initialize(t *testing.T) {
	if NewPostgresTopicRepo(nil) == nil {
		t.Error("expected non-nil topic repo")
	}
	if NewPostgresTopicGroupRepo(nil) == nil {
		t.Error("expected non-nil group repo")
	}
	if NewPostgresExecutionRepo(nil) == nil {
		t.Error("expected non-nil execution repo")
	}
	if NewPostgresContentRepo(nil) == nil {
		t.Error("expected non-nil content repo")
	}
	if NewPostgresBookmarkRepo(nil) == nil {
		t.Error("expected non-nil bookmark repo")
	}
}

// ContentKeyの正準表現がストレージの一意インデックスと同じ畳み方であることを検証
func TestContentKey_CanonicalForm(t *testing.T) {
	publishedAt := time.Date(2026, 4, 20, 9, 0, 0, 0, time.UTC)

	withTimestamps := model.ContentKey{
		URL:         "https://a.example/1",
		PublishedAt: &publishedAt,
	}
	if got := withTimestamps.String(); got != "https://a.example/1|2026-04-20T09:00:00Z|" {
		t.Errorf("String() = %q", got)
	}

	// タイムスタンプ未設定はepoch同一視（空文字列表現）
	bare := model.ContentKey{URL: "https://a.example/1"}
	if got := bare.String(); got != "https://a.example/1||" {
		t.Errorf("String() = %q", got)
	}

	if withTimestamps.String() == bare.String() {
		t.Error("公開日時の有無は別キーとして扱うはず")
	}
}
