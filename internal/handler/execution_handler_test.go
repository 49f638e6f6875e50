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

	"github.com/hitoshi/topicradar/internal/execution"
	"github.com/hitoshi/topicradar/internal/model"
)

// mockExecutionStore はExecutionStoreInterfaceのモック実装。
type mockExecutionStore struct {
	findByIDFunc func(ctx context.Context, id string) (*model.Execution, error)
	listFunc     func(ctx context.Context, filter model.ExecutionFilter, limit, offset int) ([]model.ExecutionSummary, error)
}

func (m *mockExecutionStore) FindByID(ctx context.Context, id string) (*model.Execution, error) {
	return m.findByIDFunc(ctx, id)
}

func (m *mockExecutionStore) List(ctx context.Context, filter model.ExecutionFilter, limit, offset int) ([]model.ExecutionSummary, error) {
	return m.listFunc(ctx, filter, limit, offset)
}

// mockRunner はExecutionRunnerInterfaceのモック実装。
type mockRunner struct {
	runFunc func(ctx context.Context, topicID string, initiator model.Initiator) (*execution.RunResult, error)
}

func (m *mockRunner) Run(ctx context.Context, topicID string, initiator model.Initiator) (*execution.RunResult, error) {
	return m.runFunc(ctx, topicID, initiator)
}

// mockEnqueuer はExecutionEnqueuerInterfaceのモック実装。
type mockEnqueuer struct {
	enqueueFunc func(ctx context.Context, topicID string, initiator model.Initiator) (string, error)
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, topicID string, initiator model.Initiator) (string, error) {
	return m.enqueueFunc(ctx, topicID, initiator)
}

func newExecutionTestRouter(store ExecutionStoreInterface, runner ExecutionRunnerInterface, enqueuer ExecutionEnqueuerInterface) http.Handler {
	h := NewExecutionHandler(store, runner, enqueuer, 150*time.Second)
	r := chi.NewRouter()
	r.Get("/api/executions", h.ListExecutions)
	r.Get("/api/executions/{id}", h.GetExecution)
	r.Post("/api/topics/{id}/run", h.RunTopic)
	return r
}

func TestExecutionHandler_ListExecutions_FilterPassthrough(t *testing.T) {
	var gotFilter model.ExecutionFilter
	var gotLimit, gotOffset int
	store := &mockExecutionStore{
		listFunc: func(ctx context.Context, filter model.ExecutionFilter, limit, offset int) ([]model.ExecutionSummary, error) {
			gotFilter = filter
			gotLimit = limit
			gotOffset = offset
			return []model.ExecutionSummary{
				{
					ID:             "exec-1",
					TopicID:        "topic-1",
					Status:         model.ExecutionStatusCompleted,
					Initiator:      model.InitiatorPeriodic,
					FirstContentID: "content-1",
					CreatedAt:      time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
				},
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/executions?topic_id=topic-1&status=completed&initiator=periodic&limit=10&offset=5", nil)
	w := httptest.NewRecorder()
	newExecutionTestRouter(store, nil, nil).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotFilter.TopicID != "topic-1" || gotFilter.Status != "completed" || gotFilter.Initiator != "periodic" {
		t.Errorf("filter = %+v", gotFilter)
	}
	if gotLimit != 10 || gotOffset != 5 {
		t.Errorf("limit = %d, offset = %d", gotLimit, gotOffset)
	}

	var body []executionSummaryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if len(body) != 1 || body[0].FirstContentID != "content-1" {
		t.Errorf("body = %+v", body)
	}
}

func TestExecutionHandler_ListExecutions_InvalidStatus(t *testing.T) {
	store := &mockExecutionStore{
		listFunc: func(ctx context.Context, filter model.ExecutionFilter, limit, offset int) ([]model.ExecutionSummary, error) {
			t.Fatal("無効なステータスでは一覧を呼び出さないはず")
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/executions?status=done", nil)
	w := httptest.NewRecorder()
	newExecutionTestRouter(store, nil, nil).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if body := decodeErrorBody(t, w); body.Code != model.ErrCodeInvalidStatus {
		t.Errorf("Code = %q, want %q", body.Code, model.ErrCodeInvalidStatus)
	}
}

func TestExecutionHandler_ListExecutions_InvalidInitiator(t *testing.T) {
	store := &mockExecutionStore{
		listFunc: func(ctx context.Context, filter model.ExecutionFilter, limit, offset int) ([]model.ExecutionSummary, error) {
			t.Fatal("無効なinitiatorでは一覧を呼び出さないはず")
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/executions?initiator=robot", nil)
	w := httptest.NewRecorder()
	newExecutionTestRouter(store, nil, nil).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if body := decodeErrorBody(t, w); body.Code != model.ErrCodeInvalidInitiator {
		t.Errorf("Code = %q, want %q", body.Code, model.ErrCodeInvalidInitiator)
	}
}

func TestExecutionHandler_GetExecution_WithPayloads(t *testing.T) {
	store := &mockExecutionStore{
		findByIDFunc: func(ctx context.Context, id string) (*model.Execution, error) {
			return &model.Execution{
				ID:              id,
				TopicID:         "topic-1",
				Initiator:       model.InitiatorUser,
				Status:          model.ExecutionStatusCompleted,
				RequestPayload:  map[string]any{"model": "gpt-5"},
				ResponsePayload: map[string]any{"output": []any{}},
				CreatedAt:       time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/executions/exec-1", nil)
	w := httptest.NewRecorder()
	newExecutionTestRouter(store, nil, nil).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var body executionDetailResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if body.RequestPayload["model"] != "gpt-5" {
		t.Errorf("RequestPayload = %v", body.RequestPayload)
	}
	if body.ResponsePayload == nil {
		t.Error("ResponsePayloadがありません")
	}
}

func TestExecutionHandler_GetExecution_NotFound(t *testing.T) {
	store := &mockExecutionStore{
		findByIDFunc: func(ctx context.Context, id string) (*model.Execution, error) {
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/executions/missing", nil)
	w := httptest.NewRecorder()
	newExecutionTestRouter(store, nil, nil).ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if body := decodeErrorBody(t, w); body.Code != model.ErrCodeExecutionNotFound {
		t.Errorf("Code = %q, want %q", body.Code, model.ErrCodeExecutionNotFound)
	}
}

func TestExecutionHandler_RunTopic_Sync(t *testing.T) {
	var gotInitiator model.Initiator
	runner := &mockRunner{
		runFunc: func(ctx context.Context, topicID string, initiator model.Initiator) (*execution.RunResult, error) {
			gotInitiator = initiator
			if _, ok := ctx.Deadline(); !ok {
				t.Error("同期実行にはタイムアウトが設定されるはず")
			}
			return &execution.RunResult{
				ExecutionID:    "exec-1",
				FirstContentID: "content-1",
				InsertedCount:  3,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/topics/topic-1/run", nil)
	w := httptest.NewRecorder()
	newExecutionTestRouter(nil, runner, nil).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	if gotInitiator != model.InitiatorUser {
		t.Errorf("initiator = %q, want user", gotInitiator)
	}

	var body runSyncResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if body.ExecutionID != "exec-1" || body.InsertedCount != 3 {
		t.Errorf("body = %+v", body)
	}
}

func TestExecutionHandler_RunTopic_SyncFailure(t *testing.T) {
	runner := &mockRunner{
		runFunc: func(ctx context.Context, topicID string, initiator model.Initiator) (*execution.RunResult, error) {
			return nil, model.NewTopicNotFoundError(topicID)
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/topics/missing/run", nil)
	w := httptest.NewRecorder()
	newExecutionTestRouter(nil, runner, nil).ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestExecutionHandler_RunTopic_AsyncQueryParam(t *testing.T) {
	enqueuer := &mockEnqueuer{
		enqueueFunc: func(ctx context.Context, topicID string, initiator model.Initiator) (string, error) {
			if topicID != "topic-1" {
				t.Errorf("topicID = %q", topicID)
			}
			if initiator != model.InitiatorUser {
				t.Errorf("initiator = %q", initiator)
			}
			return "job-1", nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/topics/topic-1/run?async=true", nil)
	w := httptest.NewRecorder()
	newExecutionTestRouter(nil, nil, enqueuer).ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}

	var body runAsyncResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if body.JobID != "job-1" || body.Status != "queued" {
		t.Errorf("body = %+v", body)
	}
}

func TestExecutionHandler_RunTopic_AsyncBodyFlag(t *testing.T) {
	enqueuer := &mockEnqueuer{
		enqueueFunc: func(ctx context.Context, topicID string, initiator model.Initiator) (string, error) {
			return "job-2", nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/topics/topic-1/run", strings.NewReader(`{"async":true}`))
	w := httptest.NewRecorder()
	newExecutionTestRouter(nil, nil, enqueuer).ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}
}
