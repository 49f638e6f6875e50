package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/topicradar/internal/model"
)

const (
	defaultContentLimit = 50
	maxContentLimit     = 200
)

// ContentStoreInterface はコンテンツハンドラーが必要とする読み取りインターフェース。
type ContentStoreInterface interface {
	FindByID(ctx context.Context, id string) (*model.Content, error)
	ListByTopic(ctx context.Context, topicID string, limit, offset int) ([]*model.Content, error)
	Delete(ctx context.Context, id string) error
}

// BookmarkStoreInterface はブックマークの永続化インターフェース。
type BookmarkStoreInterface interface {
	GetOrCreate(ctx context.Context, contentID string) (*model.Bookmark, bool, error)
	ListWithContent(ctx context.Context) ([]model.BookmarkWithContent, error)
	DeleteByContentID(ctx context.Context, contentID string) (bool, error)
}

// ContentHandler はコンテンツとブックマークのHTTPハンドラー。
type ContentHandler struct {
	contents  ContentStoreInterface
	bookmarks BookmarkStoreInterface
}

// NewContentHandler はContentHandlerを生成する。
func NewContentHandler(contents ContentStoreInterface, bookmarks BookmarkStoreInterface) *ContentHandler {
	return &ContentHandler{contents: contents, bookmarks: bookmarks}
}

// contentResponse はコンテンツ情報のAPIレスポンス。
type contentResponse struct {
	ID            string `json:"id"`
	ExecutionID   string `json:"execution_id"`
	TopicID       string `json:"topic_id"`
	URL           string `json:"url"`
	Title         string `json:"title,omitempty"`
	PublishedAt   string `json:"published_at,omitempty"`
	LastUpdatedAt string `json:"last_updated_at,omitempty"`
	Snippet       string `json:"snippet,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// toContentResponse はmodel.ContentからAPIレスポンスに変換する。
func toContentResponse(c *model.Content) contentResponse {
	createdAt := c.CreatedAt
	return contentResponse{
		ID:            c.ID,
		ExecutionID:   c.ExecutionID,
		TopicID:       c.TopicID,
		URL:           c.URL,
		Title:         c.Title,
		PublishedAt:   formatTime(c.PublishedAt),
		LastUpdatedAt: formatTime(c.LastUpdatedAt),
		Snippet:       c.Snippet,
		CreatedAt:     formatTime(&createdAt),
	}
}

// bookmarkResponse はブックマーク操作のAPIレスポンス。
type bookmarkResponse struct {
	ID        string `json:"id"`
	ContentID string `json:"content_id"`
	CreatedAt string `json:"created_at"`
}

// bookmarkWithContentResponse はブックマーク一覧のAPIレスポンス。
type bookmarkWithContentResponse struct {
	ID           string   `json:"id"`
	ContentID    string   `json:"content_id"`
	URL          string   `json:"url"`
	Title        string   `json:"title,omitempty"`
	TopicID      string   `json:"topic_id"`
	TopicQueries []string `json:"topic_queries,omitempty"`
	CreatedAt    string   `json:"created_at"`
}

// ListTopicContents はトピックのコンテンツ一覧を取得する。
// GET /api/topics/:id/contents?limit=&offset=
func (h *ContentHandler) ListTopicContents(w http.ResponseWriter, r *http.Request) {
	topicID := chi.URLParam(r, "id")
	limit, offset := parsePagination(r, defaultContentLimit, maxContentLimit)

	contents, err := h.contents.ListByTopic(r.Context(), topicID, limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]contentResponse, 0, len(contents))
	for _, c := range contents {
		responses = append(responses, toContentResponse(c))
	}
	writeJSON(w, http.StatusOK, responses)
}

// GetContent はコンテンツ詳細を取得する。
// GET /api/contents/:id
func (h *ContentHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.contents.FindByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if c == nil {
		handleServiceError(w, model.NewContentNotFoundError(id))
		return
	}
	writeJSON(w, http.StatusOK, toContentResponse(c))
}

// DeleteContent はコンテンツを削除する。
// DELETE /api/contents/:id
func (h *ContentHandler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.contents.FindByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if c == nil {
		handleServiceError(w, model.NewContentNotFoundError(id))
		return
	}
	if err := h.contents.Delete(r.Context(), id); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateBookmark はコンテンツをブックマークする。冪等で、
// 新規作成時は201、既存の場合は200で既存ブックマークを返す。
// POST /api/contents/:id/bookmark
func (h *ContentHandler) CreateBookmark(w http.ResponseWriter, r *http.Request) {
	contentID := chi.URLParam(r, "id")
	c, err := h.contents.FindByID(r.Context(), contentID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if c == nil {
		handleServiceError(w, model.NewContentNotFoundError(contentID))
		return
	}

	bookmark, created, err := h.bookmarks.GetOrCreate(r.Context(), contentID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	statusCode := http.StatusOK
	if created {
		statusCode = http.StatusCreated
	}
	createdAt := bookmark.CreatedAt
	writeJSON(w, statusCode, bookmarkResponse{
		ID:        bookmark.ID,
		ContentID: bookmark.ContentID,
		CreatedAt: formatTime(&createdAt),
	})
}

// DeleteBookmark はコンテンツのブックマークを解除する。
// DELETE /api/contents/:id/bookmark
func (h *ContentHandler) DeleteBookmark(w http.ResponseWriter, r *http.Request) {
	contentID := chi.URLParam(r, "id")
	deleted, err := h.bookmarks.DeleteByContentID(r.Context(), contentID)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if !deleted {
		handleServiceError(w, model.NewBookmarkNotFoundError(contentID))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListBookmarks は全ブックマークをコンテンツ情報付きで取得する。
// GET /api/bookmarks
func (h *ContentHandler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	bookmarks, err := h.bookmarks.ListWithContent(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]bookmarkWithContentResponse, 0, len(bookmarks))
	for _, b := range bookmarks {
		createdAt := b.CreatedAt
		responses = append(responses, bookmarkWithContentResponse{
			ID:           b.ID,
			ContentID:    b.ContentID,
			URL:          b.URL,
			Title:        b.Title,
			TopicID:      b.TopicID,
			TopicQueries: b.TopicQueries,
			CreatedAt:    formatTime(&createdAt),
		})
	}
	writeJSON(w, http.StatusOK, responses)
}
