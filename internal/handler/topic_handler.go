package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/topicradar/internal/model"
	"github.com/hitoshi/topicradar/internal/topic"
)

// TopicServiceInterface はトピックハンドラーが必要とするサービスインターフェース。
type TopicServiceInterface interface {
	Get(ctx context.Context, id string) (*model.Topic, error)
	List(ctx context.Context) ([]*model.Topic, error)
	Create(ctx context.Context, input topic.Input) (*model.Topic, error)
	Update(ctx context.Context, id string, input topic.Input) (*model.Topic, error)
	Delete(ctx context.Context, id string) error
}

// TopicHandler はトピック管理のHTTPハンドラー。
type TopicHandler struct {
	service TopicServiceInterface
}

// NewTopicHandler はTopicHandlerを生成する。
func NewTopicHandler(service TopicServiceInterface) *TopicHandler {
	return &TopicHandler{service: service}
}

// topicRequest はトピック作成・更新リクエストのボディ。
type topicRequest struct {
	GroupID           string   `json:"group_id"`
	Queries           []string `json:"queries"`
	Provider          string   `json:"provider"`
	DomainAllowlist   []string `json:"domain_allowlist"`
	DomainBlocklist   []string `json:"domain_blocklist"`
	LanguageFilter    []string `json:"language_filter"`
	Country           string   `json:"country"`
	RecencyFilter     string   `json:"recency_filter"`
	AfterDate         string   `json:"after_date"`
	BeforeDate        string   `json:"before_date"`
	LastUpdatedAfter  string   `json:"last_updated_after"`
	LastUpdatedBefore string   `json:"last_updated_before"`
	UpdateFrequency   string   `json:"update_frequency"`
	IsActive          *bool    `json:"is_active"`
}

// topicResponse はトピック情報のAPIレスポンス。
type topicResponse struct {
	ID                string   `json:"id"`
	GroupID           string   `json:"group_id,omitempty"`
	IsActive          bool     `json:"is_active"`
	Queries           []string `json:"queries"`
	Provider          string   `json:"provider,omitempty"`
	DomainAllowlist   []string `json:"domain_allowlist,omitempty"`
	DomainBlocklist   []string `json:"domain_blocklist,omitempty"`
	LanguageFilter    []string `json:"language_filter,omitempty"`
	Country           string   `json:"country,omitempty"`
	RecencyFilter     string   `json:"recency_filter,omitempty"`
	AfterDate         string   `json:"after_date,omitempty"`
	BeforeDate        string   `json:"before_date,omitempty"`
	LastUpdatedAfter  string   `json:"last_updated_after,omitempty"`
	LastUpdatedBefore string   `json:"last_updated_before,omitempty"`
	UpdateFrequency   string   `json:"update_frequency"`
	CreatedAt         string   `json:"created_at"`
	LastFetchedAt     string   `json:"last_fetched_at,omitempty"`
}

// toTopicResponse はmodel.TopicからAPIレスポンスに変換する。
func toTopicResponse(t *model.Topic) topicResponse {
	createdAt := t.CreatedAt
	return topicResponse{
		ID:                t.ID,
		GroupID:           t.GroupID,
		IsActive:          t.IsActive,
		Queries:           t.Queries,
		Provider:          t.Provider,
		DomainAllowlist:   t.DomainAllowlist,
		DomainBlocklist:   t.DomainBlocklist,
		LanguageFilter:    t.LanguageFilter,
		Country:           t.Country,
		RecencyFilter:     string(t.RecencyFilter),
		AfterDate:         formatDate(t.AfterDate),
		BeforeDate:        formatDate(t.BeforeDate),
		LastUpdatedAfter:  formatDate(t.LastUpdatedAfter),
		LastUpdatedBefore: formatDate(t.LastUpdatedBefore),
		UpdateFrequency:   string(t.UpdateFrequency),
		CreatedAt:         formatTime(&createdAt),
		LastFetchedAt:     formatTime(t.LastFetchedAt),
	}
}

// toTopicInput はリクエストボディをサービス入力へ変換する。
func toTopicInput(req topicRequest) (topic.Input, error) {
	afterDate, err := parseDate(req.AfterDate)
	if err != nil {
		return topic.Input{}, err
	}
	beforeDate, err := parseDate(req.BeforeDate)
	if err != nil {
		return topic.Input{}, err
	}
	lastUpdatedAfter, err := parseDate(req.LastUpdatedAfter)
	if err != nil {
		return topic.Input{}, err
	}
	lastUpdatedBefore, err := parseDate(req.LastUpdatedBefore)
	if err != nil {
		return topic.Input{}, err
	}

	return topic.Input{
		GroupID:           req.GroupID,
		Queries:           req.Queries,
		Provider:          req.Provider,
		DomainAllowlist:   req.DomainAllowlist,
		DomainBlocklist:   req.DomainBlocklist,
		LanguageFilter:    req.LanguageFilter,
		Country:           req.Country,
		RecencyFilter:     req.RecencyFilter,
		AfterDate:         afterDate,
		BeforeDate:        beforeDate,
		LastUpdatedAfter:  lastUpdatedAfter,
		LastUpdatedBefore: lastUpdatedBefore,
		UpdateFrequency:   req.UpdateFrequency,
		IsActive:          req.IsActive,
	}, nil
}

// ListTopics はトピック一覧を取得する。
// GET /api/topics
func (h *TopicHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]topicResponse, 0, len(topics))
	for _, t := range topics {
		responses = append(responses, toTopicResponse(t))
	}
	writeJSON(w, http.StatusOK, responses)
}

// GetTopic はトピック詳細を取得する。
// GET /api/topics/:id
func (h *TopicHandler) GetTopic(w http.ResponseWriter, r *http.Request) {
	t, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTopicResponse(t))
}

// CreateTopic はトピックを作成する。
// POST /api/topics
func (h *TopicHandler) CreateTopic(w http.ResponseWriter, r *http.Request) {
	var req topicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	input, err := toTopicInput(req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	t, err := h.service.Create(r.Context(), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTopicResponse(t))
}

// UpdateTopic はトピックを更新する。
// PUT /api/topics/:id
func (h *TopicHandler) UpdateTopic(w http.ResponseWriter, r *http.Request) {
	var req topicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	input, err := toTopicInput(req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	t, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTopicResponse(t))
}

// DeleteTopic はトピックを削除する。
// DELETE /api/topics/:id
func (h *TopicHandler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
