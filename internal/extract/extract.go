// Package extract は検索プロバイダの生レスポンスから候補コンテンツを抽出する。
//
// 抽出ロジックはプロバイダ固有（引用の格納形が異なる）だが、
// 出力のCandidateEntryはプロバイダ非依存であり、
// 下流のコンポーネントはプロバイダのレスポンス形を一切見ない。
package extract

import (
	"time"

	"github.com/hitoshi/topicradar/internal/model"
)

// CandidateEntry は抽出された候補コンテンツを表す。
// 出力リストの順序はレスポンス中の出現順（引用順/ランク順）を保持する。
type CandidateEntry struct {
	URL           string
	Title         string
	PublishedAt   *time.Time
	LastUpdatedAt *time.Time
	Snippet       string
}

// Extractor はプロバイダのレスポンスから候補コンテンツを抽出するインターフェース。
// URLを持たないエントリは黙って捨てる（プロバイダは引用以外のコンテンツも
// 頻繁に返すため、エラーにはしない）。
type Extractor interface {
	// Extract は生レスポンスから候補コンテンツを出現順に抽出する。
	Extract(payload map[string]any) []CandidateEntry
}

// ForProvider はプロバイダ識別子に対応するExtractorを返す。
// プロバイダの追加は新しいExtractor実装の追加だけで済む。
func ForProvider(providerName string) (Extractor, error) {
	switch providerName {
	case "openai":
		return &OpenAIExtractor{}, nil
	case "perplexity":
		return &PerplexityExtractor{}, nil
	default:
		return nil, model.NewInvalidProviderError(providerName)
	}
}

// 論理フィールドごとの候補キー名。この順序で探索し、最初に解釈できた値を使う。
var (
	publishedAtKeys   = []string{"published_date", "published_at", "date", "published"}
	lastUpdatedAtKeys = []string{"last_updated", "last_updated_at", "updated_at", "updated", "last_modified"}
	snippetKeys       = []string{"snippet", "summary", "description", "text"}
	titleKeys         = []string{"title", "name"}
)

// timeLayouts はタイムスタンプ文字列の解釈に試すレイアウト。
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
}

// probeString はエントリからキー候補を順に探索し、最初の非空文字列を返す。
func probeString(entry map[string]any, keys []string) string {
	for _, key := range keys {
		if v, ok := entry[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// probeTime はエントリからキー候補を順に探索し、最初に解釈できた日時を返す。
// どのキーも解釈できない場合はnilを返す（エラーにはしない）。
func probeTime(entry map[string]any, keys []string) *time.Time {
	for _, key := range keys {
		v, ok := entry[key].(string)
		if !ok || v == "" {
			continue
		}
		if t := parseTime(v); t != nil {
			return t
		}
	}
	return nil
}

// parseTime は複数のレイアウトを順に試して日時文字列を解釈する。
func parseTime(s string) *time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
