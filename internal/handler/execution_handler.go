package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/topicradar/internal/execution"
	"github.com/hitoshi/topicradar/internal/model"
)

const (
	defaultExecutionLimit = 50
	maxExecutionLimit     = 200
)

// ExecutionRunnerInterface は同期実行のインターフェース。
type ExecutionRunnerInterface interface {
	Run(ctx context.Context, topicID string, initiator model.Initiator) (*execution.RunResult, error)
}

// ExecutionEnqueuerInterface は非同期実行のジョブ投入インターフェース。
type ExecutionEnqueuerInterface interface {
	Enqueue(ctx context.Context, topicID string, initiator model.Initiator) (string, error)
}

// ExecutionStoreInterface は実行ハンドラーが必要とする読み取りインターフェース。
type ExecutionStoreInterface interface {
	FindByID(ctx context.Context, id string) (*model.Execution, error)
	List(ctx context.Context, filter model.ExecutionFilter, limit, offset int) ([]model.ExecutionSummary, error)
}

// ExecutionHandler は実行の一覧・詳細・手動トリガーのHTTPハンドラー。
type ExecutionHandler struct {
	store      ExecutionStoreInterface
	runner     ExecutionRunnerInterface
	enqueuer   ExecutionEnqueuerInterface
	runTimeout time.Duration
}

// NewExecutionHandler はExecutionHandlerを生成する。
// runTimeoutは同期実行1回あたりの上限時間。
func NewExecutionHandler(
	store ExecutionStoreInterface,
	runner ExecutionRunnerInterface,
	enqueuer ExecutionEnqueuerInterface,
	runTimeout time.Duration,
) *ExecutionHandler {
	return &ExecutionHandler{
		store:      store,
		runner:     runner,
		enqueuer:   enqueuer,
		runTimeout: runTimeout,
	}
}

// executionSummaryResponse は実行一覧のAPIレスポンス。
type executionSummaryResponse struct {
	ID             string `json:"id"`
	TopicID        string `json:"topic_id"`
	Status         string `json:"status"`
	Initiator      string `json:"initiator"`
	ErrorMessage   string `json:"error_message,omitempty"`
	FirstContentID string `json:"first_content_id,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// executionDetailResponse は実行詳細のAPIレスポンス。
// 監査用のリクエスト/レスポンスペイロードを含む。
type executionDetailResponse struct {
	ID              string         `json:"id"`
	TopicID         string         `json:"topic_id"`
	Status          string         `json:"status"`
	Initiator       string         `json:"initiator"`
	RequestPayload  map[string]any `json:"request_payload,omitempty"`
	ResponsePayload map[string]any `json:"response_payload,omitempty"`
	ErrorMessage    string         `json:"error_message,omitempty"`
	CreatedAt       string         `json:"created_at"`
}

// runRequest は手動実行リクエストのボディ。ボディ省略も許容する。
type runRequest struct {
	Async bool `json:"async"`
}

// runSyncResponse は同期実行のレスポンス。
type runSyncResponse struct {
	ExecutionID    string `json:"execution_id"`
	FirstContentID string `json:"first_content_id,omitempty"`
	InsertedCount  int    `json:"inserted_count"`
	OutputText     string `json:"output_text,omitempty"`
}

// runAsyncResponse は非同期実行のレスポンス。
type runAsyncResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// ListExecutions は実行の要約一覧を取得する。
// GET /api/executions?topic_id=&status=&initiator=&limit=&offset=
func (h *ExecutionHandler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := model.ExecutionFilter{
		TopicID:   query.Get("topic_id"),
		Status:    query.Get("status"),
		Initiator: query.Get("initiator"),
	}
	if filter.Status != "" && !model.ValidExecutionStatus(filter.Status) {
		handleServiceError(w, model.NewInvalidStatusError(filter.Status))
		return
	}
	if filter.Initiator != "" && !model.ValidInitiator(filter.Initiator) {
		handleServiceError(w, model.NewInvalidInitiatorError(filter.Initiator))
		return
	}

	limit, offset := parsePagination(r, defaultExecutionLimit, maxExecutionLimit)
	summaries, err := h.store.List(r.Context(), filter, limit, offset)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]executionSummaryResponse, 0, len(summaries))
	for _, s := range summaries {
		createdAt := s.CreatedAt
		responses = append(responses, executionSummaryResponse{
			ID:             s.ID,
			TopicID:        s.TopicID,
			Status:         string(s.Status),
			Initiator:      string(s.Initiator),
			ErrorMessage:   s.ErrorMessage,
			FirstContentID: s.FirstContentID,
			CreatedAt:      formatTime(&createdAt),
		})
	}
	writeJSON(w, http.StatusOK, responses)
}

// GetExecution は実行詳細をペイロード付きで取得する。
// GET /api/executions/:id
func (h *ExecutionHandler) GetExecution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	exec, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if exec == nil {
		handleServiceError(w, model.NewExecutionNotFoundError(id))
		return
	}

	createdAt := exec.CreatedAt
	writeJSON(w, http.StatusOK, executionDetailResponse{
		ID:              exec.ID,
		TopicID:         exec.TopicID,
		Status:          string(exec.Status),
		Initiator:       string(exec.Initiator),
		RequestPayload:  exec.RequestPayload,
		ResponsePayload: exec.ResponsePayload,
		ErrorMessage:    exec.ErrorMessage,
		CreatedAt:       formatTime(&createdAt),
	})
}

// RunTopic はトピックの検索実行を手動でトリガーする。
// POST /api/topics/:id/run
//
// デフォルトは同期実行で、完了後に結果を返す。
// ?async=true またはボディの async:true でジョブキューに投入し202を返す。
func (h *ExecutionHandler) RunTopic(w http.ResponseWriter, r *http.Request) {
	topicID := chi.URLParam(r, "id")

	async := r.URL.Query().Get("async") == "true"
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeAPIErrorResponse(w, http.StatusBadRequest, newInvalidRequestError())
		return
	}
	if req.Async {
		async = true
	}

	if async {
		jobID, err := h.enqueuer.Enqueue(r.Context(), topicID, model.InitiatorUser)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, runAsyncResponse{
			JobID:  jobID,
			Status: "queued",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.runTimeout)
	defer cancel()

	result, err := h.runner.Run(ctx, topicID, model.InitiatorUser)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runSyncResponse{
		ExecutionID:    result.ExecutionID,
		FirstContentID: result.FirstContentID,
		InsertedCount:  result.InsertedCount,
		OutputText:     result.OutputText,
	})
}
