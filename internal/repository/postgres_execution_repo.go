package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hitoshi/topicradar/internal/model"
)

// PostgresExecutionRepo はPostgreSQLを使用した実行リポジトリ。
type PostgresExecutionRepo struct {
	db *sql.DB
}

// NewPostgresExecutionRepo はPostgresExecutionRepoを生成する。
func NewPostgresExecutionRepo(db *sql.DB) *PostgresExecutionRepo {
	return &PostgresExecutionRepo{db: db}
}

// Create は実行レコードをrunning状態で作成する。
func (r *PostgresExecutionRepo) Create(ctx context.Context, execution *model.Execution) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO executions (id, topic_id, initiator, status, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		execution.ID, execution.TopicID, string(execution.Initiator),
		string(execution.Status), execution.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("実行レコードの作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDの実行を取得する。見つからない場合はnilを返す。
func (r *PostgresExecutionRepo) FindByID(ctx context.Context, id string) (*model.Execution, error) {
	execution := &model.Execution{}
	var requestJSON, responseJSON []byte
	var errorMessage sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, topic_id, initiator, status, request_payload, response_payload,
		        error_message, created_at
		 FROM executions WHERE id = $1`,
		id,
	).Scan(
		&execution.ID, &execution.TopicID, (*string)(&execution.Initiator),
		(*string)(&execution.Status), &requestJSON, &responseJSON,
		&errorMessage, &execution.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("実行レコードの取得に失敗しました: %w", err)
	}

	execution.ErrorMessage = nullStringValue(errorMessage)
	if execution.RequestPayload, err = decodePayload(requestJSON); err != nil {
		return nil, err
	}
	if execution.ResponsePayload, err = decodePayload(responseJSON); err != nil {
		return nil, err
	}

	return execution, nil
}

// UpdateRequestPayload は送信予定のリクエストペイロードを保存する。
// ネットワーク呼び出しの前に呼び出すこと。
func (r *PostgresExecutionRepo) UpdateRequestPayload(ctx context.Context, id string, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("リクエストペイロードのエンコードに失敗しました: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE executions SET request_payload = $2 WHERE id = $1`, id, data)
	if err != nil {
		return fmt.Errorf("リクエストペイロードの保存に失敗しました: %w", err)
	}
	return nil
}

// UpdateResponsePayload は受信した生レスポンスを保存する。
func (r *PostgresExecutionRepo) UpdateResponsePayload(ctx context.Context, id string, payload map[string]any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("レスポンスペイロードのエンコードに失敗しました: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE executions SET response_payload = $2 WHERE id = $1`, id, data)
	if err != nil {
		return fmt.Errorf("レスポンスペイロードの保存に失敗しました: %w", err)
	}
	return nil
}

// MarkCompleted は実行をcompletedに遷移させ、エラーメッセージをクリアする。
// 遷移はrunning状態からのみ行う（終端状態は不変）。
func (r *PostgresExecutionRepo) MarkCompleted(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE executions SET status = $2, error_message = NULL
		 WHERE id = $1 AND status = $3`,
		id, string(model.ExecutionStatusCompleted), string(model.ExecutionStatusRunning))
	if err != nil {
		return fmt.Errorf("実行の完了遷移に失敗しました: %w", err)
	}
	return nil
}

// MarkFailed は実行をfailedに遷移させ、エラーメッセージを記録する。
// 保存済みのリクエストペイロードには触れない。
func (r *PostgresExecutionRepo) MarkFailed(ctx context.Context, id string, errorMessage string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE executions SET status = $2, error_message = $3
		 WHERE id = $1 AND status = $4`,
		id, string(model.ExecutionStatusFailed), errorMessage,
		string(model.ExecutionStatusRunning))
	if err != nil {
		return fmt.Errorf("実行の失敗遷移に失敗しました: %w", err)
	}
	return nil
}

// List は実行の要約一覧を作成日時の降順で返す。
// 各要約には最初のコンテンツID（挿入順の先頭）を付加する。
func (r *PostgresExecutionRepo) List(ctx context.Context, filter model.ExecutionFilter, limit, offset int) ([]model.ExecutionSummary, error) {
	query := `
		SELECT e.id, e.topic_id, e.status, e.initiator, e.error_message, e.created_at,
		       COALESCE((
		           SELECT c.id FROM contents c
		           WHERE c.execution_id = e.id
		           ORDER BY c.created_at, c.id
		           LIMIT 1
		       ), '') AS first_content_id
		FROM executions e
		WHERE 1=1`

	args := []any{}
	argIndex := 1

	if filter.TopicID != "" {
		query += fmt.Sprintf(" AND e.topic_id = $%d", argIndex)
		args = append(args, filter.TopicID)
		argIndex++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND e.status = $%d", argIndex)
		args = append(args, filter.Status)
		argIndex++
	}
	if filter.Initiator != "" {
		query += fmt.Sprintf(" AND e.initiator = $%d", argIndex)
		args = append(args, filter.Initiator)
		argIndex++
	}

	query += fmt.Sprintf(" ORDER BY e.created_at DESC, e.id LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("実行一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var summaries []model.ExecutionSummary
	for rows.Next() {
		var s model.ExecutionSummary
		var errorMessage sql.NullString
		if err := rows.Scan(
			&s.ID, &s.TopicID, (*string)(&s.Status), (*string)(&s.Initiator),
			&errorMessage, &s.CreatedAt, &s.FirstContentID,
		); err != nil {
			return nil, fmt.Errorf("実行行の読み取りに失敗しました: %w", err)
		}
		s.ErrorMessage = nullStringValue(errorMessage)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("実行一覧の走査に失敗しました: %w", err)
	}

	return summaries, nil
}

// DeleteFailedBefore は指定日時より古いfailed実行を削除し、削除件数を返す。
func (r *PostgresExecutionRepo) DeleteFailedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM executions WHERE status = $1 AND created_at < $2`,
		string(model.ExecutionStatusFailed), cutoff)
	if err != nil {
		return 0, fmt.Errorf("失敗実行の削除に失敗しました: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return deleted, nil
}

// decodePayload はJSONBペイロード列をデコードする。NULLはnilを返す。
func decodePayload(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("ペイロードのデコードに失敗しました: %w", err)
	}
	return payload, nil
}

// compile-time interface check
var _ ExecutionRepository = (*PostgresExecutionRepo)(nil)
