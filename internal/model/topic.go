// Package model はドメインモデルを定義する。
package model

import "time"

// UpdateFrequency はトピックの定期実行の頻度クラスを表す。
type UpdateFrequency string

const (
	// UpdateFrequencyDay は24時間間隔の頻度クラス。
	UpdateFrequencyDay UpdateFrequency = "day"
	// UpdateFrequencyWeek は7日間隔の頻度クラス。
	UpdateFrequencyWeek UpdateFrequency = "week"
)

// RecencyFilter は検索対象期間のフィルタを表す。
type RecencyFilter string

const (
	RecencyFilterDay   RecencyFilter = "day"
	RecencyFilterWeek  RecencyFilter = "week"
	RecencyFilterMonth RecencyFilter = "month"
	RecencyFilterYear  RecencyFilter = "year"
)

// ValidUpdateFrequency は文字列が定義済みのUpdateFrequencyかどうかを返す。
func ValidUpdateFrequency(s string) bool {
	switch UpdateFrequency(s) {
	case UpdateFrequencyDay, UpdateFrequencyWeek:
		return true
	}
	return false
}

// ValidRecencyFilter は文字列が定義済みのRecencyFilterかどうかを返す。
// 空文字列（フィルタなし）も許容する。
func ValidRecencyFilter(s string) bool {
	switch RecencyFilter(s) {
	case "", RecencyFilterDay, RecencyFilterWeek, RecencyFilterMonth, RecencyFilterYear:
		return true
	}
	return false
}

// Topic は追跡対象の検索トピック（キーワード）を表す。
// 1つ以上の正規化済みクエリ文字列と検索フィルタ設定を持つ。
// LastFetchedAtはオーケストレーターが実行成功時にのみ更新する。
type Topic struct {
	ID       string
	GroupID  string // 所属グループ。未所属の場合は空文字列
	IsActive bool

	// Queries は正規化済み（空白圧縮・重複除去済み）のクエリ一覧。
	// 必ず1件以上の非空文字列を含む。
	Queries []string

	// Provider は検索プロバイダの上書き指定。空の場合はデフォルトを使用する。
	Provider string

	// 検索フィルタ設定。
	// DomainAllowlistとDomainBlocklistは相互排他（書き込み時に検証する）。
	DomainAllowlist []string
	DomainBlocklist []string
	LanguageFilter  []string // 言語コード。最大10件
	Country         string   // 2文字の国コード
	RecencyFilter   RecencyFilter

	// 絶対日付による検索範囲の境界。
	AfterDate  *time.Time
	BeforeDate *time.Time

	// コンテンツの最終更新日時に対する境界。
	LastUpdatedAfter  *time.Time
	LastUpdatedBefore *time.Time

	UpdateFrequency UpdateFrequency

	// Embedding は正規化済みクエリテキストから生成した埋め込みベクトル。
	// クエリテキストの変更時に埋め込み生成コラボレーターが再計算する。
	Embedding []float64

	CreatedAt     time.Time
	LastFetchedAt *time.Time
}

// PrimaryQuery は先頭のクエリ文字列を返す。クエリが無い場合は空文字列を返す。
func (t *Topic) PrimaryQuery() string {
	if len(t.Queries) > 0 {
		return t.Queries[0]
	}
	return ""
}

// AggregateQuery は全クエリを", "で連結した文字列を返す。
// 埋め込みベクトル生成の入力として使用する。
func (t *Topic) AggregateQuery() string {
	out := ""
	for i, q := range t.Queries {
		if i > 0 {
			out += ", "
		}
		out += q
	}
	return out
}

// TopicGroup はトピックのグループを表す。
// グループのフィルタデフォルト値は、新規トピック作成時に未設定のフィルタへ引き継がれる。
type TopicGroup struct {
	ID          string
	Name        string
	Description string
	IsPublic    bool

	// 新規トピックへ引き継ぐフィルタのデフォルト値。
	DefaultDomainAllowlist []string
	DefaultDomainBlocklist []string
	DefaultLanguageFilter  []string
	DefaultCountry         string
	DefaultRecencyFilter   RecencyFilter

	CreatedAt time.Time
	UpdatedAt time.Time
}
