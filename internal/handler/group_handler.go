package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/topicradar/internal/model"
	"github.com/hitoshi/topicradar/internal/topic"
)

// GroupServiceInterface はグループハンドラーが必要とするサービスインターフェース。
type GroupServiceInterface interface {
	Get(ctx context.Context, id string) (*model.TopicGroup, error)
	List(ctx context.Context) ([]*model.TopicGroup, error)
	Create(ctx context.Context, input topic.GroupInput) (*model.TopicGroup, error)
	Update(ctx context.Context, id string, input topic.GroupInput) (*model.TopicGroup, error)
	Delete(ctx context.Context, id string) error
}

// GroupHandler はトピックグループ管理のHTTPハンドラー。
type GroupHandler struct {
	service GroupServiceInterface
}

// NewGroupHandler はGroupHandlerを生成する。
func NewGroupHandler(service GroupServiceInterface) *GroupHandler {
	return &GroupHandler{service: service}
}

// groupRequest はグループ作成・更新リクエストのボディ。
type groupRequest struct {
	Name                   string   `json:"name"`
	Description            string   `json:"description"`
	IsPublic               bool     `json:"is_public"`
	DefaultDomainAllowlist []string `json:"default_domain_allowlist"`
	DefaultDomainBlocklist []string `json:"default_domain_blocklist"`
	DefaultLanguageFilter  []string `json:"default_language_filter"`
	DefaultCountry         string   `json:"default_country"`
	DefaultRecencyFilter   string   `json:"default_recency_filter"`
}

// groupResponse はグループ情報のAPIレスポンス。
type groupResponse struct {
	ID                     string   `json:"id"`
	Name                   string   `json:"name"`
	Description            string   `json:"description,omitempty"`
	IsPublic               bool     `json:"is_public"`
	DefaultDomainAllowlist []string `json:"default_domain_allowlist,omitempty"`
	DefaultDomainBlocklist []string `json:"default_domain_blocklist,omitempty"`
	DefaultLanguageFilter  []string `json:"default_language_filter,omitempty"`
	DefaultCountry         string   `json:"default_country,omitempty"`
	DefaultRecencyFilter   string   `json:"default_recency_filter,omitempty"`
	CreatedAt              string   `json:"created_at"`
	UpdatedAt              string   `json:"updated_at"`
}

// toGroupResponse はmodel.TopicGroupからAPIレスポンスに変換する。
func toGroupResponse(g *model.TopicGroup) groupResponse {
	createdAt := g.CreatedAt
	updatedAt := g.UpdatedAt
	return groupResponse{
		ID:                     g.ID,
		Name:                   g.Name,
		Description:            g.Description,
		IsPublic:               g.IsPublic,
		DefaultDomainAllowlist: g.DefaultDomainAllowlist,
		DefaultDomainBlocklist: g.DefaultDomainBlocklist,
		DefaultLanguageFilter:  g.DefaultLanguageFilter,
		DefaultCountry:         g.DefaultCountry,
		DefaultRecencyFilter:   string(g.DefaultRecencyFilter),
		CreatedAt:              formatTime(&createdAt),
		UpdatedAt:              formatTime(&updatedAt),
	}
}

// toGroupInput はリクエストボディをサービス入力へ変換する。
func toGroupInput(req groupRequest) topic.GroupInput {
	return topic.GroupInput{
		Name:                   req.Name,
		Description:            req.Description,
		IsPublic:               req.IsPublic,
		DefaultDomainAllowlist: req.DefaultDomainAllowlist,
		DefaultDomainBlocklist: req.DefaultDomainBlocklist,
		DefaultLanguageFilter:  req.DefaultLanguageFilter,
		DefaultCountry:         req.DefaultCountry,
		DefaultRecencyFilter:   req.DefaultRecencyFilter,
	}
}

// ListGroups はグループ一覧を取得する。
// GET /api/groups
func (h *GroupHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]groupResponse, 0, len(groups))
	for _, g := range groups {
		responses = append(responses, toGroupResponse(g))
	}
	writeJSON(w, http.StatusOK, responses)
}

// GetGroup はグループ詳細を取得する。
// GET /api/groups/:id
func (h *GroupHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	g, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(g))
}

// CreateGroup はグループを作成する。
// POST /api/groups
func (h *GroupHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	g, err := h.service.Create(r.Context(), toGroupInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupResponse(g))
}

// UpdateGroup はグループを更新する。
// PUT /api/groups/:id
func (h *GroupHandler) UpdateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}

	g, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), toGroupInput(req))
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(g))
}

// DeleteGroup はグループを削除する。所属トピックは未所属になる。
// DELETE /api/groups/:id
func (h *GroupHandler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
