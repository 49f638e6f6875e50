package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/feeds"

	"github.com/hitoshi/topicradar/internal/model"
)

const (
	defaultFeedLimit = 50
	maxFeedLimit     = 200
)

// FeedTopicStoreInterface はRSSハンドラーが必要とするトピック読み取りインターフェース。
type FeedTopicStoreInterface interface {
	FindByID(ctx context.Context, id string) (*model.Topic, error)
}

// FeedGroupStoreInterface はRSSハンドラーが必要とするグループ読み取りインターフェース。
type FeedGroupStoreInterface interface {
	FindByID(ctx context.Context, id string) (*model.TopicGroup, error)
}

// FeedContentStoreInterface はRSSハンドラーが必要とするコンテンツ読み取りインターフェース。
type FeedContentStoreInterface interface {
	ListByTopic(ctx context.Context, topicID string, limit, offset int) ([]*model.Content, error)
	ListByGroup(ctx context.Context, groupID string, limit, offset int) ([]*model.Content, error)
}

// RSSHandler はトピック・グループのRSS 2.0フィードを配信するHTTPハンドラー。
type RSSHandler struct {
	topics   FeedTopicStoreInterface
	groups   FeedGroupStoreInterface
	contents FeedContentStoreInterface
	baseURL  string
}

// NewRSSHandler はRSSHandlerを生成する。
func NewRSSHandler(
	topics FeedTopicStoreInterface,
	groups FeedGroupStoreInterface,
	contents FeedContentStoreInterface,
	baseURL string,
) *RSSHandler {
	return &RSSHandler{
		topics:   topics,
		groups:   groups,
		contents: contents,
		baseURL:  baseURL,
	}
}

// TopicFeed はトピックの新着コンテンツをRSSで配信する。
// GET /rss/topics/:id?limit=
func (h *RSSHandler) TopicFeed(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	topic, err := h.topics.FindByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if topic == nil {
		handleServiceError(w, model.NewTopicNotFoundError(id))
		return
	}

	limit, _ := parsePagination(r, defaultFeedLimit, maxFeedLimit)
	contents, err := h.contents.ListByTopic(r.Context(), topic.ID, limit, 0)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	feed := h.buildFeed(
		topic.PrimaryQuery(),
		h.baseURL+"/rss/topics/"+topic.ID,
		"トピック「"+topic.PrimaryQuery()+"」の新着コンテンツ",
		contents,
	)
	h.writeFeed(w, feed)
}

// GroupFeed はグループ所属トピック全体の新着コンテンツをRSSで配信する。
// GET /rss/groups/:id?limit=
func (h *RSSHandler) GroupFeed(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	group, err := h.groups.FindByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if group == nil {
		handleServiceError(w, model.NewGroupNotFoundError(id))
		return
	}

	limit, _ := parsePagination(r, defaultFeedLimit, maxFeedLimit)
	contents, err := h.contents.ListByGroup(r.Context(), group.ID, limit, 0)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	feed := h.buildFeed(
		group.Name,
		h.baseURL+"/rss/groups/"+group.ID,
		"グループ「"+group.Name+"」の新着コンテンツ",
		contents,
	)
	h.writeFeed(w, feed)
}

// buildFeed はコンテンツ一覧からRSSフィードを構築する。
func (h *RSSHandler) buildFeed(title, link, description string, contents []*model.Content) *feeds.Feed {
	feed := &feeds.Feed{
		Title:       title,
		Link:        &feeds.Link{Href: link},
		Description: description,
		Created:     time.Now().UTC(),
	}

	for _, c := range contents {
		item := &feeds.Item{
			Id:          c.ID,
			Title:       c.Title,
			Link:        &feeds.Link{Href: c.URL},
			Description: c.Snippet,
			Created:     c.CreatedAt,
		}
		if item.Title == "" {
			item.Title = c.URL
		}
		if c.PublishedAt != nil {
			item.Created = *c.PublishedAt
		}
		if c.LastUpdatedAt != nil {
			item.Updated = *c.LastUpdatedAt
		}
		feed.Items = append(feed.Items, item)
	}
	return feed
}

// writeFeed はRSS 2.0形式でフィードを書き込む。
func (h *RSSHandler) writeFeed(w http.ResponseWriter, feed *feeds.Feed) {
	rss, err := feed.ToRss()
	if err != nil {
		handleServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(rss))
}
