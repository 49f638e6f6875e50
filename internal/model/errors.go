// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, config, search, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeTopicNotFound     = "TOPIC_NOT_FOUND"
	ErrCodeGroupNotFound     = "GROUP_NOT_FOUND"
	ErrCodeExecutionNotFound = "EXECUTION_NOT_FOUND"
	ErrCodeContentNotFound   = "CONTENT_NOT_FOUND"
	ErrCodeBookmarkNotFound  = "BOOKMARK_NOT_FOUND"
	ErrCodeInvalidProvider   = "INVALID_PROVIDER"
	ErrCodeInvalidQuery      = "INVALID_QUERY"
	ErrCodeFilterConflict    = "FILTER_CONFLICT"
	ErrCodeInvalidFilter     = "INVALID_FILTER"
	ErrCodeInvalidInitiator  = "INVALID_INITIATOR"
	ErrCodeInvalidStatus     = "INVALID_STATUS"
	ErrCodeInvalidFrequency  = "INVALID_FREQUENCY"
	ErrCodeDuplicateGroup    = "DUPLICATE_GROUP"
	ErrCodeRateLimited       = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// NewTopicNotFoundError はトピック未検出エラーを生成する。
// 実行レコードを作成する前に呼び出し元へ返される。
func NewTopicNotFoundError(topicID string) *APIError {
	return &APIError{
		Code:     ErrCodeTopicNotFound,
		Message:  fmt.Sprintf("指定されたトピックが見つかりません: %s", topicID),
		Category: "search",
		Action:   "トピックIDを確認してください。",
	}
}

// NewGroupNotFoundError はトピックグループ未検出エラーを生成する。
func NewGroupNotFoundError(groupID string) *APIError {
	return &APIError{
		Code:     ErrCodeGroupNotFound,
		Message:  fmt.Sprintf("指定されたトピックグループが見つかりません: %s", groupID),
		Category: "search",
		Action:   "グループIDを確認してください。",
	}
}

// NewExecutionNotFoundError は実行レコード未検出エラーを生成する。
func NewExecutionNotFoundError(executionID string) *APIError {
	return &APIError{
		Code:     ErrCodeExecutionNotFound,
		Message:  fmt.Sprintf("指定された実行が見つかりません: %s", executionID),
		Category: "search",
		Action:   "実行IDを確認してください。",
	}
}

// NewContentNotFoundError はコンテンツ未検出エラーを生成する。
func NewContentNotFoundError(contentID string) *APIError {
	return &APIError{
		Code:     ErrCodeContentNotFound,
		Message:  fmt.Sprintf("指定されたコンテンツが見つかりません: %s", contentID),
		Category: "search",
		Action:   "コンテンツIDを確認してください。",
	}
}

// NewBookmarkNotFoundError はブックマーク未検出エラーを生成する。
func NewBookmarkNotFoundError(contentID string) *APIError {
	return &APIError{
		Code:     ErrCodeBookmarkNotFound,
		Message:  fmt.Sprintf("指定されたコンテンツのブックマークが見つかりません: %s", contentID),
		Category: "search",
		Action:   "ブックマーク済みのコンテンツIDを指定してください。",
	}
}

// NewInvalidProviderError は未サポートのプロバイダ指定エラーを生成する。
// ネットワーク呼び出しを試みる前に返される。
func NewInvalidProviderError(provider string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidProvider,
		Message:  fmt.Sprintf("サポートされていない検索プロバイダです: %s", provider),
		Category: "config",
		Action:   "openai または perplexity のいずれかを指定してください。",
	}
}

// NewInvalidQueryError は無効なクエリ一覧エラーを生成する。
func NewInvalidQueryError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidQuery,
		Message:  fmt.Sprintf("無効なクエリ指定です: %s", reason),
		Category: "validation",
		Action:   "空白のみではないクエリ文字列を1件以上指定してください。",
	}
}

// NewFilterConflictError はドメイン許可リストと拒否リストの同時指定エラーを生成する。
func NewFilterConflictError() *APIError {
	return &APIError{
		Code:     ErrCodeFilterConflict,
		Message:  "ドメイン許可リストと拒否リストは同時に指定できません。",
		Category: "validation",
		Action:   "どちらか一方のリストをクリアしてから更新してください。",
	}
}

// NewInvalidFilterError は無効なフィルタ設定エラーを生成する。
func NewInvalidFilterError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFilter,
		Message:  fmt.Sprintf("無効なフィルタ設定です: %s", reason),
		Category: "validation",
		Action:   "フィルタの設定値を確認してください。",
	}
}

// NewInvalidInitiatorError は無効なinitiator指定エラーを生成する。
func NewInvalidInitiatorError(initiator string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidInitiator,
		Message:  fmt.Sprintf("無効なinitiatorです: %s", initiator),
		Category: "validation",
		Action:   "periodic、user、admin、cli のいずれかを指定してください。",
	}
}

// NewInvalidStatusError は無効なステータス指定エラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("無効なステータスです: %s", status),
		Category: "validation",
		Action:   "running、completed、failed のいずれかを指定してください。",
	}
}

// NewInvalidFrequencyError は無効な更新頻度指定エラーを生成する。
func NewInvalidFrequencyError(frequency string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFrequency,
		Message:  fmt.Sprintf("無効な更新頻度です: %s", frequency),
		Category: "validation",
		Action:   "day または week を指定してください。",
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "リクエスト数が上限を超えました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewInternalError は内部サーバーエラーを生成する。
// 詳細はログにのみ記録し、レスポンスには一般的なメッセージだけを含める。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewDuplicateGroupError はグループ名の重複エラーを生成する。
func NewDuplicateGroupError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateGroup,
		Message:  fmt.Sprintf("同名のトピックグループが既に存在します: %s", name),
		Category: "validation",
		Action:   "別のグループ名を指定してください。",
	}
}
