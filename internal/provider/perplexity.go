package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// defaultPerplexityModel はウェブ検索付きの既定のモデル。
const defaultPerplexityModel = "sonar"

// perplexityDateFormat は日付フィルタのAPI書式（m/d/Y）。
const perplexityDateFormat = "1/2/2006"

// PerplexityConfig はPerplexityプロバイダの接続設定。
type PerplexityConfig struct {
	APIKey  string
	BaseURL string // 例: "https://api.perplexity.ai"
	Model   string // 空の場合はdefaultPerplexityModelを使用
}

// PerplexityProvider はPerplexity Chat Completions APIを使用するアダプタ。
// ドメインフィルタ・期間フィルタを構造化パラメータとしてサポートする。
type PerplexityProvider struct {
	httpClient *http.Client
	logger     *slog.Logger
	config     PerplexityConfig
}

// NewPerplexityProvider はPerplexityProviderの新しいインスタンスを生成する。
func NewPerplexityProvider(httpClient *http.Client, logger *slog.Logger, config PerplexityConfig) *PerplexityProvider {
	if config.Model == "" {
		config.Model = defaultPerplexityModel
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &PerplexityProvider{
		httpClient: httpClient,
		logger:     logger,
		config:     config,
	}
}

// Name はプロバイダ識別子を返す。
func (p *PerplexityProvider) Name() string {
	return NamePerplexity
}

// BuildPayload は検索リクエストからChat Completions APIのペイロードを構築する。
// ドメインフィルタはsearch_domain_filterへ変換する
// （拒否リストは "-" プレフィックス付きのエントリとして表現する）。
func (p *PerplexityProvider) BuildPayload(req *SearchRequest) (map[string]any, error) {
	payload := map[string]any{
		"model": p.config.Model,
		"messages": []any{
			map[string]any{
				"role":    "user",
				"content": buildPrompt(req),
			},
		},
	}

	if req.Limits.MaxTokens > 0 {
		payload["max_tokens"] = req.Limits.MaxTokens
	}

	if len(req.Filters.DomainAllowlist) > 0 {
		payload["search_domain_filter"] = toAnySlice(req.Filters.DomainAllowlist)
	} else if len(req.Filters.DomainBlocklist) > 0 {
		blocked := make([]any, 0, len(req.Filters.DomainBlocklist))
		for _, domain := range req.Filters.DomainBlocklist {
			blocked = append(blocked, "-"+domain)
		}
		payload["search_domain_filter"] = blocked
	}

	if req.Filters.Recency != "" {
		payload["search_recency_filter"] = string(req.Filters.Recency)
	}
	if req.Filters.AfterDate != nil {
		payload["search_after_date_filter"] = req.Filters.AfterDate.Format(perplexityDateFormat)
	}
	if req.Filters.BeforeDate != nil {
		payload["search_before_date_filter"] = req.Filters.BeforeDate.Format(perplexityDateFormat)
	}
	if req.Filters.LastUpdatedAfter != nil {
		payload["last_updated_after_filter"] = req.Filters.LastUpdatedAfter.Format(perplexityDateFormat)
	}
	if req.Filters.LastUpdatedBefore != nil {
		payload["last_updated_before_filter"] = req.Filters.LastUpdatedBefore.Format(perplexityDateFormat)
	}

	return payload, nil
}

// Search はペイロードをChat Completions APIへ送信する。
// 外部へのネットワーク呼び出しは正確に1回。リトライはしない。
// エラーは変換せずそのまま呼び出し元へ返す。
func (p *PerplexityProvider) Search(ctx context.Context, payload map[string]any) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("リクエストペイロードのエンコードに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("perplexity APIがステータス %d を返しました: %s",
			resp.StatusCode, truncateBody(respBody))
	}

	var result map[string]any
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	p.logger.Info("perplexity検索呼び出しが完了しました",
		slog.Int("http_status", resp.StatusCode),
	)

	return &Result{
		Payload:    result,
		OutputText: perplexityOutputText(result),
	}, nil
}

// perplexityOutputText はChat Completionsレスポンスから可読テキストを取り出す。
func perplexityOutputText(payload map[string]any) string {
	choices, ok := payload["choices"].([]any)
	if !ok || len(choices) == 0 {
		return ""
	}
	choice, ok := choices[0].(map[string]any)
	if !ok {
		return ""
	}
	message, ok := choice["message"].(map[string]any)
	if !ok {
		return ""
	}
	text, _ := message["content"].(string)
	return text
}

// toAnySlice は[]stringをJSONエンコード用の[]anyへ変換する。
func toAnySlice(list []string) []any {
	out := make([]any, 0, len(list))
	for _, v := range list {
		out = append(out, v)
	}
	return out
}

// compile-time interface check
var _ Provider = (*PerplexityProvider)(nil)
