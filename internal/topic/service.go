// Package topic はトピックとトピックグループの管理サービスを提供する。
//
// 書き込み時の検証と正規化をここで完結させ、パイプライン側は
// 保存済みのトピックを信頼して使う。ただしプロバイダ名だけは
// デフォルト設定の変更で保存後に無効になりうるため、実行時にも検証される。
package topic

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/topicradar/internal/embedding"
	"github.com/hitoshi/topicradar/internal/model"
	"github.com/hitoshi/topicradar/internal/provider"
	"github.com/hitoshi/topicradar/internal/repository"
)

// Input はトピックの作成・更新リクエスト。
// ポインタでないスライス・文字列フィールドは全置換のセマンティクスを持つ。
type Input struct {
	GroupID           string
	Queries           []string
	Provider          string
	DomainAllowlist   []string
	DomainBlocklist   []string
	LanguageFilter    []string
	Country           string
	RecencyFilter     string
	AfterDate         *time.Time
	BeforeDate        *time.Time
	LastUpdatedAfter  *time.Time
	LastUpdatedBefore *time.Time
	UpdateFrequency   string
	IsActive          *bool // nilの場合: 作成時はtrue、更新時は現状維持
}

// Service はトピック管理サービス。
type Service struct {
	topicRepo repository.TopicRepository
	groupRepo repository.TopicGroupRepository
	registry  *provider.Registry
	embedder  embedding.Generator
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	topicRepo repository.TopicRepository,
	groupRepo repository.TopicGroupRepository,
	registry *provider.Registry,
	embedder embedding.Generator,
	logger *slog.Logger,
) *Service {
	return &Service{
		topicRepo: topicRepo,
		groupRepo: groupRepo,
		registry:  registry,
		embedder:  embedder,
		logger:    logger,
	}
}

// Get は指定IDのトピックを取得する。
func (s *Service) Get(ctx context.Context, id string) (*model.Topic, error) {
	topic, err := s.topicRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if topic == nil {
		return nil, model.NewTopicNotFoundError(id)
	}
	return topic, nil
}

// List は全トピックを返す。
func (s *Service) List(ctx context.Context) ([]*model.Topic, error) {
	return s.topicRepo.List(ctx)
}

// Create はトピックを検証・正規化して作成する。
// グループ所属の場合、未設定のフィルタにはグループのデフォルト値を引き継ぐ。
func (s *Service) Create(ctx context.Context, input Input) (*model.Topic, error) {
	topic := &model.Topic{
		ID:        uuid.New().String(),
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}
	if input.IsActive != nil {
		topic.IsActive = *input.IsActive
	}

	if input.GroupID != "" {
		group, err := s.groupRepo.FindByID(ctx, input.GroupID)
		if err != nil {
			return nil, err
		}
		if group == nil {
			return nil, model.NewGroupNotFoundError(input.GroupID)
		}
		topic.GroupID = group.ID
		seedGroupDefaults(&input, group)
	}

	if err := s.applyInput(topic, input); err != nil {
		return nil, err
	}

	s.generateEmbedding(ctx, topic)

	if err := s.topicRepo.Create(ctx, topic); err != nil {
		return nil, err
	}

	s.logger.Info("トピックを作成しました",
		slog.String("topic_id", topic.ID),
		slog.Int("queries", len(topic.Queries)),
	)

	return topic, nil
}

// Update はトピックを検証・正規化して更新する。
// 埋め込みベクトルはクエリテキストが変わった場合のみ再生成する。
func (s *Service) Update(ctx context.Context, id string, input Input) (*model.Topic, error) {
	topic, err := s.topicRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if topic == nil {
		return nil, model.NewTopicNotFoundError(id)
	}

	if input.GroupID != "" && input.GroupID != topic.GroupID {
		group, err := s.groupRepo.FindByID(ctx, input.GroupID)
		if err != nil {
			return nil, err
		}
		if group == nil {
			return nil, model.NewGroupNotFoundError(input.GroupID)
		}
	}
	topic.GroupID = input.GroupID

	if input.IsActive != nil {
		topic.IsActive = *input.IsActive
	}

	previousQuery := topic.AggregateQuery()
	if err := s.applyInput(topic, input); err != nil {
		return nil, err
	}
	if topic.AggregateQuery() != previousQuery {
		s.generateEmbedding(ctx, topic)
	}

	if err := s.topicRepo.Update(ctx, topic); err != nil {
		return nil, err
	}

	s.logger.Info("トピックを更新しました", slog.String("topic_id", topic.ID))

	return topic, nil
}

// Delete は指定IDのトピックを削除する。
// 関連する実行・コンテンツ・ブックマークはデータベース側でCASCADE削除される。
func (s *Service) Delete(ctx context.Context, id string) error {
	topic, err := s.topicRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if topic == nil {
		return model.NewTopicNotFoundError(id)
	}
	if err := s.topicRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("トピックを削除しました", slog.String("topic_id", id))
	return nil
}

// applyInput は入力を検証・正規化してトピックへ反映する。
func (s *Service) applyInput(topic *model.Topic, input Input) error {
	queries := NormalizeQueries(input.Queries)
	if len(queries) == 0 {
		return model.NewInvalidQueryError("クエリが指定されていません")
	}
	if len(queries) > provider.MaxQueries {
		return model.NewInvalidQueryError(
			fmt.Sprintf("クエリは最大%d件までです", provider.MaxQueries))
	}
	topic.Queries = queries

	if input.Provider != "" {
		if _, err := s.registry.Resolve(input.Provider); err != nil {
			return err
		}
	}
	topic.Provider = input.Provider

	if len(input.DomainAllowlist) > 0 && len(input.DomainBlocklist) > 0 {
		return model.NewFilterConflictError()
	}
	allowlist, err := NormalizeDomainList(input.DomainAllowlist)
	if err != nil {
		return err
	}
	blocklist, err := NormalizeDomainList(input.DomainBlocklist)
	if err != nil {
		return err
	}
	if len(allowlist) > provider.MaxDomainFilters || len(blocklist) > provider.MaxDomainFilters {
		return model.NewInvalidFilterError(
			fmt.Sprintf("ドメインフィルタは最大%d件までです", provider.MaxDomainFilters))
	}
	topic.DomainAllowlist = allowlist
	topic.DomainBlocklist = blocklist

	if len(input.LanguageFilter) > provider.MaxLanguageFilters {
		return model.NewInvalidFilterError(
			fmt.Sprintf("言語フィルタは最大%d件までです", provider.MaxLanguageFilters))
	}
	topic.LanguageFilter = input.LanguageFilter

	if input.Country != "" && !validCountryCode(input.Country) {
		return model.NewInvalidFilterError("国コードは2文字のアルファベットで指定してください: " + input.Country)
	}
	topic.Country = input.Country

	if !model.ValidRecencyFilter(input.RecencyFilter) {
		return model.NewInvalidFilterError("不正な期間フィルタです: " + input.RecencyFilter)
	}
	topic.RecencyFilter = model.RecencyFilter(input.RecencyFilter)

	if input.AfterDate != nil && input.BeforeDate != nil && input.AfterDate.After(*input.BeforeDate) {
		return model.NewInvalidFilterError("検索期間の開始日が終了日より後になっています")
	}
	topic.AfterDate = input.AfterDate
	topic.BeforeDate = input.BeforeDate
	topic.LastUpdatedAfter = input.LastUpdatedAfter
	topic.LastUpdatedBefore = input.LastUpdatedBefore

	frequency := input.UpdateFrequency
	if frequency == "" {
		frequency = string(model.UpdateFrequencyDay)
	}
	if !model.ValidUpdateFrequency(frequency) {
		return model.NewInvalidFrequencyError(frequency)
	}
	topic.UpdateFrequency = model.UpdateFrequency(frequency)

	return nil
}

// generateEmbedding はクエリテキストから埋め込みベクトルを生成する。
// 生成失敗はトピックの保存を妨げない（ベクトルはnilのまま保存される）。
func (s *Service) generateEmbedding(ctx context.Context, topic *model.Topic) {
	vector, err := s.embedder.Generate(ctx, topic.AggregateQuery())
	if err != nil {
		s.logger.Warn("埋め込みベクトルの生成に失敗しました",
			slog.String("topic_id", topic.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	topic.Embedding = vector
}

// seedGroupDefaults は未設定のフィルタへグループのデフォルト値を引き継ぐ。
// ドメインフィルタは許可・拒否のどちらも未設定の場合にのみ引き継ぐ
// （相互排他の違反を作らないため）。
func seedGroupDefaults(input *Input, group *model.TopicGroup) {
	if len(input.DomainAllowlist) == 0 && len(input.DomainBlocklist) == 0 {
		input.DomainAllowlist = group.DefaultDomainAllowlist
		input.DomainBlocklist = group.DefaultDomainBlocklist
	}
	if len(input.LanguageFilter) == 0 {
		input.LanguageFilter = group.DefaultLanguageFilter
	}
	if input.Country == "" {
		input.Country = group.DefaultCountry
	}
	if input.RecencyFilter == "" {
		input.RecencyFilter = string(group.DefaultRecencyFilter)
	}
}

// validCountryCode は2文字のアルファベットかどうかを検証する。
func validCountryCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, c := range code {
		if (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') {
			return false
		}
	}
	return true
}
