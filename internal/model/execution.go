package model

import "time"

// ExecutionStatus は実行レコードの状態を表す。
// running から completed または failed へ一度だけ遷移し、以後は不変。
type ExecutionStatus string

const (
	// ExecutionStatusRunning はプロバイダ呼び出し前〜実行中の状態。
	ExecutionStatusRunning ExecutionStatus = "running"
	// ExecutionStatusCompleted は正常終了した終端状態。
	ExecutionStatusCompleted ExecutionStatus = "completed"
	// ExecutionStatusFailed は失敗した終端状態。
	ExecutionStatusFailed ExecutionStatus = "failed"
)

// Initiator は実行を起動した主体の種別を表す。
type Initiator string

const (
	InitiatorPeriodic Initiator = "periodic"
	InitiatorUser     Initiator = "user"
	InitiatorAdmin    Initiator = "admin"
	InitiatorCLI      Initiator = "cli"
)

// ValidInitiator は文字列が定義済みのInitiatorかどうかを返す。
func ValidInitiator(s string) bool {
	switch Initiator(s) {
	case InitiatorPeriodic, InitiatorUser, InitiatorAdmin, InitiatorCLI:
		return true
	}
	return false
}

// ValidExecutionStatus は文字列が定義済みのExecutionStatusかどうかを返す。
func ValidExecutionStatus(s string) bool {
	switch ExecutionStatus(s) {
	case ExecutionStatusRunning, ExecutionStatusCompleted, ExecutionStatusFailed:
		return true
	}
	return false
}

// Execution はトピックに対する1回の検索実行を表す。
// リクエスト/レスポンスのペイロードは監査のために保存される。
// リクエストペイロードはネットワーク呼び出しの前に永続化されるため、
// 実行中にクラッシュしても何を試みたかの記録が残る。
type Execution struct {
	ID        string
	TopicID   string
	Initiator Initiator
	Status    ExecutionStatus

	// RequestPayload はプロバイダに送信したリクエストの内容。
	RequestPayload map[string]any
	// ResponsePayload はプロバイダから受信した生レスポンス。
	ResponsePayload map[string]any

	// ErrorMessage は失敗時のみ設定される。
	ErrorMessage string

	CreatedAt time.Time
}

// ExecutionSummary は実行一覧用の要約。最初のコンテンツIDを付加する。
type ExecutionSummary struct {
	ID             string
	TopicID        string
	Status         ExecutionStatus
	Initiator      Initiator
	ErrorMessage   string
	FirstContentID string // コンテンツが無い場合は空文字列
	CreatedAt      time.Time
}

// ExecutionFilter は実行一覧の絞り込み条件。空文字列のフィールドは条件に含めない。
type ExecutionFilter struct {
	TopicID   string
	Status    string
	Initiator string
}
