package topic

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/topicradar/internal/model"
	"github.com/hitoshi/topicradar/internal/repository"
)

// GroupInput はトピックグループの作成・更新リクエスト。
type GroupInput struct {
	Name        string
	Description string
	IsPublic    bool

	DefaultDomainAllowlist []string
	DefaultDomainBlocklist []string
	DefaultLanguageFilter  []string
	DefaultCountry         string
	DefaultRecencyFilter   string
}

// GroupService はトピックグループ管理サービス。
type GroupService struct {
	groupRepo repository.TopicGroupRepository
	logger    *slog.Logger
}

// NewGroupService はGroupServiceの新しいインスタンスを生成する。
func NewGroupService(groupRepo repository.TopicGroupRepository, logger *slog.Logger) *GroupService {
	return &GroupService{
		groupRepo: groupRepo,
		logger:    logger,
	}
}

// Get は指定IDのグループを取得する。
func (s *GroupService) Get(ctx context.Context, id string) (*model.TopicGroup, error) {
	group, err := s.groupRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, model.NewGroupNotFoundError(id)
	}
	return group, nil
}

// List は全グループを返す。
func (s *GroupService) List(ctx context.Context) ([]*model.TopicGroup, error) {
	return s.groupRepo.List(ctx)
}

// Create はグループを検証して作成する。グループ名は一意であること。
func (s *GroupService) Create(ctx context.Context, input GroupInput) (*model.TopicGroup, error) {
	group := &model.TopicGroup{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := s.applyInput(group, input); err != nil {
		return nil, err
	}

	existing, err := s.groupRepo.FindByName(ctx, group.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, model.NewDuplicateGroupError(group.Name)
	}

	if err := s.groupRepo.Create(ctx, group); err != nil {
		return nil, err
	}

	s.logger.Info("トピックグループを作成しました",
		slog.String("group_id", group.ID),
		slog.String("name", group.Name),
	)

	return group, nil
}

// Update はグループを検証して更新する。
func (s *GroupService) Update(ctx context.Context, id string, input GroupInput) (*model.TopicGroup, error) {
	group, err := s.groupRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if group == nil {
		return nil, model.NewGroupNotFoundError(id)
	}

	previousName := group.Name
	if err := s.applyInput(group, input); err != nil {
		return nil, err
	}

	if group.Name != previousName {
		existing, err := s.groupRepo.FindByName(ctx, group.Name)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != id {
			return nil, model.NewDuplicateGroupError(group.Name)
		}
	}

	group.UpdatedAt = time.Now().UTC()
	if err := s.groupRepo.Update(ctx, group); err != nil {
		return nil, err
	}

	s.logger.Info("トピックグループを更新しました", slog.String("group_id", id))

	return group, nil
}

// Delete は指定IDのグループを削除する。
// 所属トピックは削除されず、未所属の状態になる。
func (s *GroupService) Delete(ctx context.Context, id string) error {
	group, err := s.groupRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if group == nil {
		return model.NewGroupNotFoundError(id)
	}
	if err := s.groupRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("トピックグループを削除しました", slog.String("group_id", id))
	return nil
}

// applyInput は入力を検証・正規化してグループへ反映する。
// デフォルトフィルタにもトピックのフィルタと同じ検証を適用する。
func (s *GroupService) applyInput(group *model.TopicGroup, input GroupInput) error {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return model.NewInvalidFilterError("グループ名が指定されていません")
	}
	group.Name = name
	group.Description = strings.TrimSpace(input.Description)
	group.IsPublic = input.IsPublic

	if len(input.DefaultDomainAllowlist) > 0 && len(input.DefaultDomainBlocklist) > 0 {
		return model.NewFilterConflictError()
	}
	allowlist, err := NormalizeDomainList(input.DefaultDomainAllowlist)
	if err != nil {
		return err
	}
	blocklist, err := NormalizeDomainList(input.DefaultDomainBlocklist)
	if err != nil {
		return err
	}
	group.DefaultDomainAllowlist = allowlist
	group.DefaultDomainBlocklist = blocklist

	group.DefaultLanguageFilter = input.DefaultLanguageFilter

	if input.DefaultCountry != "" && !validCountryCode(input.DefaultCountry) {
		return model.NewInvalidFilterError("国コードは2文字のアルファベットで指定してください: " + input.DefaultCountry)
	}
	group.DefaultCountry = input.DefaultCountry

	if !model.ValidRecencyFilter(input.DefaultRecencyFilter) {
		return model.NewInvalidFilterError("不正な期間フィルタです: " + input.DefaultRecencyFilter)
	}
	group.DefaultRecencyFilter = model.RecencyFilter(input.DefaultRecencyFilter)

	return nil
}
