package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/topicradar/internal/model"
)

// PostgresTopicGroupRepo はPostgreSQLを使用したトピックグループリポジトリ。
type PostgresTopicGroupRepo struct {
	db *sql.DB
}

// NewPostgresTopicGroupRepo はPostgresTopicGroupRepoを生成する。
func NewPostgresTopicGroupRepo(db *sql.DB) *PostgresTopicGroupRepo {
	return &PostgresTopicGroupRepo{db: db}
}

const groupColumns = `id, name, description, is_public,
	default_domain_allowlist, default_domain_blocklist, default_language_filter,
	default_country, default_recency_filter, created_at, updated_at`

func scanGroup(row rowScanner) (*model.TopicGroup, error) {
	group := &model.TopicGroup{}
	var allowJSON, blockJSON, langJSON []byte

	err := row.Scan(
		&group.ID, &group.Name, &group.Description, &group.IsPublic,
		&allowJSON, &blockJSON, &langJSON,
		&group.DefaultCountry, (*string)(&group.DefaultRecencyFilter),
		&group.CreatedAt, &group.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if group.DefaultDomainAllowlist, err = decodeStringList(allowJSON); err != nil {
		return nil, err
	}
	if group.DefaultDomainBlocklist, err = decodeStringList(blockJSON); err != nil {
		return nil, err
	}
	if group.DefaultLanguageFilter, err = decodeStringList(langJSON); err != nil {
		return nil, err
	}
	return group, nil
}

// FindByID は指定IDのグループを取得する。見つからない場合はnilを返す。
func (r *PostgresTopicGroupRepo) FindByID(ctx context.Context, id string) (*model.TopicGroup, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM topic_groups WHERE id = $1`, id)

	group, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("トピックグループの取得に失敗しました: %w", err)
	}
	return group, nil
}

// FindByName は指定名のグループを取得する。見つからない場合はnilを返す。
func (r *PostgresTopicGroupRepo) FindByName(ctx context.Context, name string) (*model.TopicGroup, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM topic_groups WHERE name = $1`, name)

	group, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("トピックグループの名前検索に失敗しました: %w", err)
	}
	return group, nil
}

// List は全グループを名前順で返す。
func (r *PostgresTopicGroupRepo) List(ctx context.Context) ([]*model.TopicGroup, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM topic_groups ORDER BY name, created_at`)
	if err != nil {
		return nil, fmt.Errorf("トピックグループ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var groups []*model.TopicGroup
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("トピックグループ行の読み取りに失敗しました: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("トピックグループ一覧の走査に失敗しました: %w", err)
	}
	return groups, nil
}

// Create はグループを作成する。
func (r *PostgresTopicGroupRepo) Create(ctx context.Context, group *model.TopicGroup) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO topic_groups (id, name, description, is_public,
		    default_domain_allowlist, default_domain_blocklist, default_language_filter,
		    default_country, default_recency_filter, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		group.ID, group.Name, group.Description, group.IsPublic,
		encodeStringList(group.DefaultDomainAllowlist),
		encodeStringList(group.DefaultDomainBlocklist),
		encodeStringList(group.DefaultLanguageFilter),
		group.DefaultCountry, string(group.DefaultRecencyFilter),
		group.CreatedAt, group.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("トピックグループの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はグループを更新する。
func (r *PostgresTopicGroupRepo) Update(ctx context.Context, group *model.TopicGroup) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE topic_groups SET
		    name = $2, description = $3, is_public = $4,
		    default_domain_allowlist = $5, default_domain_blocklist = $6,
		    default_language_filter = $7, default_country = $8,
		    default_recency_filter = $9, updated_at = $10
		 WHERE id = $1`,
		group.ID, group.Name, group.Description, group.IsPublic,
		encodeStringList(group.DefaultDomainAllowlist),
		encodeStringList(group.DefaultDomainBlocklist),
		encodeStringList(group.DefaultLanguageFilter),
		group.DefaultCountry, string(group.DefaultRecencyFilter),
		group.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("トピックグループの更新に失敗しました: %w", err)
	}
	return nil
}

// Delete は指定IDのグループを削除する。
func (r *PostgresTopicGroupRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM topic_groups WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("トピックグループの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ TopicGroupRepository = (*PostgresTopicGroupRepo)(nil)
