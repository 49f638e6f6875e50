package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/topicradar/internal/model"
)

// mockFeedTopicStore はFeedTopicStoreInterfaceのモック実装。
type mockFeedTopicStore struct {
	findByIDFunc func(ctx context.Context, id string) (*model.Topic, error)
}

func (m *mockFeedTopicStore) FindByID(ctx context.Context, id string) (*model.Topic, error) {
	return m.findByIDFunc(ctx, id)
}

// mockFeedGroupStore はFeedGroupStoreInterfaceのモック実装。
type mockFeedGroupStore struct {
	findByIDFunc func(ctx context.Context, id string) (*model.TopicGroup, error)
}

func (m *mockFeedGroupStore) FindByID(ctx context.Context, id string) (*model.TopicGroup, error) {
	return m.findByIDFunc(ctx, id)
}

// mockFeedContentStore はFeedContentStoreInterfaceのモック実装。
type mockFeedContentStore struct {
	listByTopicFunc func(ctx context.Context, topicID string, limit, offset int) ([]*model.Content, error)
	listByGroupFunc func(ctx context.Context, groupID string, limit, offset int) ([]*model.Content, error)
}

func (m *mockFeedContentStore) ListByTopic(ctx context.Context, topicID string, limit, offset int) ([]*model.Content, error) {
	return m.listByTopicFunc(ctx, topicID, limit, offset)
}

func (m *mockFeedContentStore) ListByGroup(ctx context.Context, groupID string, limit, offset int) ([]*model.Content, error) {
	return m.listByGroupFunc(ctx, groupID, limit, offset)
}

func newRSSTestRouter(topics FeedTopicStoreInterface, groups FeedGroupStoreInterface, contents FeedContentStoreInterface) http.Handler {
	h := NewRSSHandler(topics, groups, contents, "https://topicradar.example")
	r := chi.NewRouter()
	r.Get("/rss/topics/{id}", h.TopicFeed)
	r.Get("/rss/groups/{id}", h.GroupFeed)
	return r
}

func feedContents() []*model.Content {
	publishedAt := time.Date(2026, 4, 20, 9, 0, 0, 0, time.UTC)
	return []*model.Content{
		{
			ID:          "content-1",
			TopicID:     "topic-1",
			URL:         "https://a.example/article",
			Title:       "Goの新機能まとめ",
			PublishedAt: &publishedAt,
			Snippet:     "概要テキスト",
			CreatedAt:   time.Date(2026, 4, 21, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:        "content-2",
			TopicID:   "topic-1",
			URL:       "https://b.example/untitled",
			CreatedAt: time.Date(2026, 4, 22, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestRSSHandler_TopicFeed(t *testing.T) {
	topics := &mockFeedTopicStore{
		findByIDFunc: func(ctx context.Context, id string) (*model.Topic, error) {
			return &model.Topic{ID: id, Queries: []string{"go generics", "go iterators"}}, nil
		},
	}
	contents := &mockFeedContentStore{
		listByTopicFunc: func(ctx context.Context, topicID string, limit, offset int) ([]*model.Content, error) {
			if limit != defaultFeedLimit {
				t.Errorf("limit = %d, want %d", limit, defaultFeedLimit)
			}
			return feedContents(), nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/rss/topics/topic-1", nil)
	w := httptest.NewRecorder()
	newRSSTestRouter(topics, nil, contents).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/rss+xml; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}

	// 生成したフィードをパーサーで読み戻して内容を検証する
	feed, err := gofeed.NewParser().ParseString(w.Body.String())
	if err != nil {
		t.Fatalf("フィードのパースに失敗: %v", err)
	}
	if feed.Title != "go generics" {
		t.Errorf("タイトルは先頭クエリのはず: %q", feed.Title)
	}
	if len(feed.Items) != 2 {
		t.Fatalf("アイテム数 = %d, want 2", len(feed.Items))
	}
	if feed.Items[0].Link != "https://a.example/article" {
		t.Errorf("Link = %q", feed.Items[0].Link)
	}
	if feed.Items[1].Title != "https://b.example/untitled" {
		t.Errorf("タイトル無しのアイテムはURLで代替するはず: %q", feed.Items[1].Title)
	}
}

func TestRSSHandler_TopicFeed_NotFound(t *testing.T) {
	topics := &mockFeedTopicStore{
		findByIDFunc: func(ctx context.Context, id string) (*model.Topic, error) {
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/rss/topics/missing", nil)
	w := httptest.NewRecorder()
	newRSSTestRouter(topics, nil, nil).ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestRSSHandler_GroupFeed(t *testing.T) {
	groups := &mockFeedGroupStore{
		findByIDFunc: func(ctx context.Context, id string) (*model.TopicGroup, error) {
			return &model.TopicGroup{ID: id, Name: "AI動向"}, nil
		},
	}
	var gotGroupID string
	contents := &mockFeedContentStore{
		listByGroupFunc: func(ctx context.Context, groupID string, limit, offset int) ([]*model.Content, error) {
			gotGroupID = groupID
			return feedContents(), nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/rss/groups/group-1?limit=5", nil)
	w := httptest.NewRecorder()
	newRSSTestRouter(nil, groups, contents).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotGroupID != "group-1" {
		t.Errorf("groupID = %q", gotGroupID)
	}

	feed, err := gofeed.NewParser().ParseString(w.Body.String())
	if err != nil {
		t.Fatalf("フィードのパースに失敗: %v", err)
	}
	if feed.Title != "AI動向" {
		t.Errorf("タイトルはグループ名のはず: %q", feed.Title)
	}
}
