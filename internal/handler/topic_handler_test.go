package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/topicradar/internal/model"
	"github.com/hitoshi/topicradar/internal/topic"
)

// mockTopicService はTopicServiceInterfaceのモック実装。
type mockTopicService struct {
	getFunc    func(ctx context.Context, id string) (*model.Topic, error)
	listFunc   func(ctx context.Context) ([]*model.Topic, error)
	createFunc func(ctx context.Context, input topic.Input) (*model.Topic, error)
	updateFunc func(ctx context.Context, id string, input topic.Input) (*model.Topic, error)
	deleteFunc func(ctx context.Context, id string) error
}

func (m *mockTopicService) Get(ctx context.Context, id string) (*model.Topic, error) {
	return m.getFunc(ctx, id)
}

func (m *mockTopicService) List(ctx context.Context) ([]*model.Topic, error) {
	return m.listFunc(ctx)
}

func (m *mockTopicService) Create(ctx context.Context, input topic.Input) (*model.Topic, error) {
	return m.createFunc(ctx, input)
}

func (m *mockTopicService) Update(ctx context.Context, id string, input topic.Input) (*model.Topic, error) {
	return m.updateFunc(ctx, id, input)
}

func (m *mockTopicService) Delete(ctx context.Context, id string) error {
	return m.deleteFunc(ctx, id)
}

func newTopicTestRouter(service TopicServiceInterface) http.Handler {
	h := NewTopicHandler(service)
	r := chi.NewRouter()
	r.Get("/api/topics", h.ListTopics)
	r.Post("/api/topics", h.CreateTopic)
	r.Get("/api/topics/{id}", h.GetTopic)
	r.Put("/api/topics/{id}", h.UpdateTopic)
	r.Delete("/api/topics/{id}", h.DeleteTopic)
	return r
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) apiErrorResponse {
	t.Helper()
	var body apiErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("エラーレスポンスのパースに失敗: %v", err)
	}
	return body
}

func TestTopicHandler_ListTopics(t *testing.T) {
	createdAt := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	service := &mockTopicService{
		listFunc: func(ctx context.Context) ([]*model.Topic, error) {
			return []*model.Topic{
				{
					ID:              "topic-1",
					IsActive:        true,
					Queries:         []string{"go generics"},
					UpdateFrequency: model.UpdateFrequencyDay,
					CreatedAt:       createdAt,
				},
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/topics", nil)
	w := httptest.NewRecorder()
	newTopicTestRouter(service).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body []topicResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if len(body) != 1 {
		t.Fatalf("件数 = %d, want 1", len(body))
	}
	if body[0].ID != "topic-1" {
		t.Errorf("ID = %q, want topic-1", body[0].ID)
	}
	if body[0].CreatedAt != "2026-05-01T12:00:00Z" {
		t.Errorf("CreatedAt = %q", body[0].CreatedAt)
	}
	if body[0].LastFetchedAt != "" {
		t.Errorf("未フェッチのLastFetchedAtは空のはず: %q", body[0].LastFetchedAt)
	}
}

func TestTopicHandler_GetTopic_NotFound(t *testing.T) {
	service := &mockTopicService{
		getFunc: func(ctx context.Context, id string) (*model.Topic, error) {
			return nil, model.NewTopicNotFoundError(id)
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/topics/missing", nil)
	w := httptest.NewRecorder()
	newTopicTestRouter(service).ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if body := decodeErrorBody(t, w); body.Code != model.ErrCodeTopicNotFound {
		t.Errorf("Code = %q, want %q", body.Code, model.ErrCodeTopicNotFound)
	}
}

func TestTopicHandler_CreateTopic(t *testing.T) {
	var gotInput topic.Input
	service := &mockTopicService{
		createFunc: func(ctx context.Context, input topic.Input) (*model.Topic, error) {
			gotInput = input
			return &model.Topic{
				ID:              "topic-new",
				IsActive:        true,
				Queries:         input.Queries,
				UpdateFrequency: model.UpdateFrequencyDay,
				CreatedAt:       time.Now().UTC(),
			}, nil
		},
	}

	payload := `{"queries":["rust async"],"after_date":"2026-01-15","update_frequency":"day"}`
	req := httptest.NewRequest(http.MethodPost, "/api/topics", strings.NewReader(payload))
	w := httptest.NewRecorder()
	newTopicTestRouter(service).ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}
	if len(gotInput.Queries) != 1 || gotInput.Queries[0] != "rust async" {
		t.Errorf("Queries = %v", gotInput.Queries)
	}
	if gotInput.AfterDate == nil || !gotInput.AfterDate.Equal(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("AfterDate = %v, want 2026-01-15", gotInput.AfterDate)
	}
}

func TestTopicHandler_CreateTopic_InvalidDate(t *testing.T) {
	service := &mockTopicService{
		createFunc: func(ctx context.Context, input topic.Input) (*model.Topic, error) {
			t.Fatal("無効な日付ではサービスを呼び出さないはず")
			return nil, nil
		},
	}

	payload := `{"queries":["go"],"after_date":"01/15/2026"}`
	req := httptest.NewRequest(http.MethodPost, "/api/topics", strings.NewReader(payload))
	w := httptest.NewRecorder()
	newTopicTestRouter(service).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if body := decodeErrorBody(t, w); body.Code != model.ErrCodeInvalidFilter {
		t.Errorf("Code = %q, want %q", body.Code, model.ErrCodeInvalidFilter)
	}
}

func TestTopicHandler_CreateTopic_InvalidJSON(t *testing.T) {
	service := &mockTopicService{}

	req := httptest.NewRequest(http.MethodPost, "/api/topics", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	newTopicTestRouter(service).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if body := decodeErrorBody(t, w); body.Code != "INVALID_REQUEST" {
		t.Errorf("Code = %q, want INVALID_REQUEST", body.Code)
	}
}

func TestTopicHandler_UpdateTopic_ValidationError(t *testing.T) {
	service := &mockTopicService{
		updateFunc: func(ctx context.Context, id string, input topic.Input) (*model.Topic, error) {
			return nil, model.NewFilterConflictError()
		},
	}

	payload := `{"queries":["go"],"domain_allowlist":["a.example"],"domain_blocklist":["b.example"]}`
	req := httptest.NewRequest(http.MethodPut, "/api/topics/topic-1", strings.NewReader(payload))
	w := httptest.NewRecorder()
	newTopicTestRouter(service).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if body := decodeErrorBody(t, w); body.Code != model.ErrCodeFilterConflict {
		t.Errorf("Code = %q, want %q", body.Code, model.ErrCodeFilterConflict)
	}
}

func TestTopicHandler_DeleteTopic(t *testing.T) {
	var deletedID string
	service := &mockTopicService{
		deleteFunc: func(ctx context.Context, id string) error {
			deletedID = id
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/topics/topic-1", nil)
	w := httptest.NewRecorder()
	newTopicTestRouter(service).ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}
	if deletedID != "topic-1" {
		t.Errorf("削除ID = %q, want topic-1", deletedID)
	}
}
