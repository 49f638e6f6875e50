// Package handler はREST APIのHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/topicradar/internal/model"
)

// dateFormat は日付フィールドのAPI書式。
const dateFormat = "2006-01-02"

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// newInvalidRequestError はリクエストボディの解析失敗エラーを生成する。
func newInvalidRequestError() *model.APIError {
	return &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeTopicNotFound,
		model.ErrCodeGroupNotFound,
		model.ErrCodeExecutionNotFound,
		model.ErrCodeContentNotFound,
		model.ErrCodeBookmarkNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidProvider,
		model.ErrCodeInvalidQuery,
		model.ErrCodeFilterConflict,
		model.ErrCodeInvalidFilter,
		model.ErrCodeInvalidInitiator,
		model.ErrCodeInvalidStatus,
		model.ErrCodeInvalidFrequency:
		return http.StatusBadRequest
	case model.ErrCodeDuplicateGroup:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// parsePagination はlimit/offsetクエリパラメータを解釈する。
// limitは1..maxLimitにクランプし、未指定はdefaultLimitを使用する。
func parsePagination(r *http.Request, defaultLimit, maxLimit int) (limit, offset int) {
	limit = defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			limit = v
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			offset = v
		}
	}
	return limit, offset
}

// parseDate は日付文字列（YYYY-MM-DD）を解釈する。空文字列はnilを返す。
func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateFormat, raw)
	if err != nil {
		return nil, model.NewInvalidFilterError("日付はYYYY-MM-DD形式で指定してください: " + raw)
	}
	t = t.UTC()
	return &t, nil
}

// formatDate は日付フィールドをAPI書式の文字列へ変換する。nilは空文字列を返す。
func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateFormat)
}

// formatTime は日時フィールドをRFC3339文字列へ変換する。nilは空文字列を返す。
func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
