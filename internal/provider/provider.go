package provider

import (
	"context"

	"github.com/hitoshi/topicradar/internal/model"
)

// プロバイダ識別子。サポートするプロバイダは明示的な閉じた集合。
const (
	NameOpenAI     = "openai"
	NamePerplexity = "perplexity"
)

// Result はプロバイダ非依存の検索結果。
// Payloadはプロバイダの生レスポンス（監査用にそのまま保存される）、
// OutputTextはプロバイダが返した可読テキスト（無い場合は空文字列）。
type Result struct {
	Payload    map[string]any
	OutputText string
}

// Provider は検索プロバイダのアダプタインターフェース。
//
// BuildPayloadはネットワーク呼び出しを行わずに送信予定のペイロードを構築する。
// 呼び出し元はこのペイロードを永続化してからSearchに渡すことで、
// 実行中にクラッシュしても何を試みたかの監査記録が残る。
//
// Searchは1回の呼び出しにつき外部へのネットワーク呼び出しを正確に1回行う。
// アダプタ内ではリトライしない（リトライの管理は呼び出し側の責務）。
// トランスポート・認証・プロバイダ側のエラーは変換せずそのまま返す。
type Provider interface {
	// Name はプロバイダ識別子を返す。
	Name() string

	// BuildPayload は検索リクエストからプロバイダ固有のペイロードを構築する。
	BuildPayload(req *SearchRequest) (map[string]any, error)

	// Search はペイロードをプロバイダへ送信し、正規化済みの結果を返す。
	Search(ctx context.Context, payload map[string]any) (*Result, error)
}

// Registry はサポート対象プロバイダの閉じたレジストリ。
// 未サポートのプロバイダ指定はネットワーク呼び出しの前に設定エラーとして失敗する。
type Registry struct {
	providers   map[string]Provider
	defaultName string
}

// NewRegistry はレジストリを生成する。defaultNameは登録済みである必要がある。
func NewRegistry(defaultName string, providers ...Provider) (*Registry, error) {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	if _, ok := m[defaultName]; !ok {
		return nil, model.NewInvalidProviderError(defaultName)
	}
	return &Registry{providers: m, defaultName: defaultName}, nil
}

// Resolve はプロバイダ識別子からアダプタを解決する。
// 空文字列はデフォルトプロバイダを返す。未サポートの識別子は設定エラー。
func (r *Registry) Resolve(name string) (Provider, error) {
	if name == "" {
		name = r.defaultName
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, model.NewInvalidProviderError(name)
	}
	return p, nil
}

// Supported はサポート対象のプロバイダ識別子を返す。
func (r *Registry) Supported() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	return names
}
