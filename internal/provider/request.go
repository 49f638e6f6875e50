// Package provider は検索プロバイダのアダプタを提供する。
// 内部の検索リクエストをプロバイダ固有のAPI呼び出しへ変換し、
// 生レスポンスをプロバイダ非依存の結果へ正規化する。
package provider

import (
	"time"

	"github.com/hitoshi/topicradar/internal/model"
)

const (
	// MaxQueries は1リクエストで送信できるクエリ数の上限。
	MaxQueries = 5
	// MaxLanguageFilters は言語フィルタの最大件数。
	MaxLanguageFilters = 10
	// MaxDomainFilters はドメインフィルタの最大件数。
	MaxDomainFilters = 20
)

// Filters は検索リクエストのフィルタ設定。
// DomainAllowlistとDomainBlocklistは相互排他。
type Filters struct {
	DomainAllowlist   []string
	DomainBlocklist   []string
	LanguageFilter    []string
	Country           string
	Recency           model.RecencyFilter
	AfterDate         *time.Time
	BeforeDate        *time.Time
	LastUpdatedAfter  *time.Time
	LastUpdatedBefore *time.Time
}

// Limits は検索リクエストの数値上限。
// グローバル設定からではなく呼び出し時に明示的に渡す。
type Limits struct {
	MaxResults       int
	MaxTokens        int
	MaxTokensPerPage int
}

// SearchRequest はプロバイダ非依存の検索リクエスト。
type SearchRequest struct {
	Queries []string
	Filters Filters
	Limits  Limits
}

// NewSearchRequest は検証済みのSearchRequestを生成する。
// クエリは1件以上MaxQueries件以下、フィルタは各上限以内であること。
func NewSearchRequest(queries []string, filters Filters, limits Limits) (*SearchRequest, error) {
	if len(queries) == 0 {
		return nil, model.NewInvalidQueryError("クエリが指定されていません")
	}
	if len(queries) > MaxQueries {
		return nil, model.NewInvalidQueryError("クエリは最大5件までです")
	}
	for _, q := range queries {
		if q == "" {
			return nil, model.NewInvalidQueryError("空のクエリが含まれています")
		}
	}
	if len(filters.DomainAllowlist) > 0 && len(filters.DomainBlocklist) > 0 {
		return nil, model.NewFilterConflictError()
	}
	if len(filters.DomainAllowlist) > MaxDomainFilters || len(filters.DomainBlocklist) > MaxDomainFilters {
		return nil, model.NewInvalidFilterError("ドメインフィルタは最大20件までです")
	}
	if len(filters.LanguageFilter) > MaxLanguageFilters {
		return nil, model.NewInvalidFilterError("言語フィルタは最大10件までです")
	}

	return &SearchRequest{
		Queries: queries,
		Filters: filters,
		Limits:  limits,
	}, nil
}

// FromTopic はトピックの設定からSearchRequestを構築する。
func FromTopic(topic *model.Topic, limits Limits) (*SearchRequest, error) {
	return NewSearchRequest(topic.Queries, Filters{
		DomainAllowlist:   topic.DomainAllowlist,
		DomainBlocklist:   topic.DomainBlocklist,
		LanguageFilter:    topic.LanguageFilter,
		Country:           topic.Country,
		Recency:           topic.RecencyFilter,
		AfterDate:         topic.AfterDate,
		BeforeDate:        topic.BeforeDate,
		LastUpdatedAfter:  topic.LastUpdatedAfter,
		LastUpdatedBefore: topic.LastUpdatedBefore,
	}, limits)
}
