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

// defaultOpenAIModel はweb_searchツールを使用する既定のモデル。
const defaultOpenAIModel = "gpt-5"

// OpenAIConfig はOpenAIプロバイダの接続設定。
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // 例: "https://api.openai.com/v1"
	Model   string // 空の場合はdefaultOpenAIModelを使用
}

// OpenAIProvider はOpenAI Responses APIのweb_searchツールを使用するアダプタ。
type OpenAIProvider struct {
	httpClient *http.Client
	logger     *slog.Logger
	config     OpenAIConfig
}

// NewOpenAIProvider はOpenAIProviderの新しいインスタンスを生成する。
func NewOpenAIProvider(httpClient *http.Client, logger *slog.Logger, config OpenAIConfig) *OpenAIProvider {
	if config.Model == "" {
		config.Model = defaultOpenAIModel
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &OpenAIProvider{
		httpClient: httpClient,
		logger:     logger,
		config:     config,
	}
}

// Name はプロバイダ識別子を返す。
func (p *OpenAIProvider) Name() string {
	return NameOpenAI
}

// BuildPayload は検索リクエストからResponses APIのペイロードを構築する。
// ドメイン許可リストと国コードはweb_searchツールの構造化パラメータへ、
// 拒否リストや日付境界など構造化パラメータの無いフィルタは指示文へ畳み込む。
func (p *OpenAIProvider) BuildPayload(req *SearchRequest) (map[string]any, error) {
	prompt := buildPrompt(req)
	if len(req.Filters.DomainBlocklist) > 0 {
		prompt += fmt.Sprintf(" Exclude results from these domains: %s.",
			strings.Join(req.Filters.DomainBlocklist, ", "))
	}

	tool := map[string]any{
		"type": "web_search",
	}
	if len(req.Filters.DomainAllowlist) > 0 {
		tool["filters"] = map[string]any{
			"allowed_domains": req.Filters.DomainAllowlist,
		}
	}
	if req.Filters.Country != "" {
		tool["user_location"] = map[string]any{
			"type":    "approximate",
			"country": strings.ToUpper(req.Filters.Country),
		}
	}

	payload := map[string]any{
		"model": p.config.Model,
		"input": prompt,
		"tools": []any{tool},
	}
	if req.Limits.MaxTokens > 0 {
		payload["max_output_tokens"] = req.Limits.MaxTokens
	}

	return payload, nil
}

// Search はペイロードをResponses APIへ送信する。
// 外部へのネットワーク呼び出しは正確に1回。リトライはしない。
// エラーは変換せずそのまま呼び出し元へ返す。
func (p *OpenAIProvider) Search(ctx context.Context, payload map[string]any) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("リクエストペイロードのエンコードに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.config.BaseURL+"/responses", bytes.NewReader(body))
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
		return nil, fmt.Errorf("openai APIがステータス %d を返しました: %s",
			resp.StatusCode, truncateBody(respBody))
	}

	var result map[string]any
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	p.logger.Info("openai検索呼び出しが完了しました",
		slog.Int("http_status", resp.StatusCode),
	)

	return &Result{
		Payload:    result,
		OutputText: openAIOutputText(result),
	}, nil
}

// openAIOutputText はResponses APIのレスポンスから可読テキストを取り出す。
// output[]のmessage項目に含まれるoutput_textを出現順に連結する。
func openAIOutputText(payload map[string]any) string {
	output, ok := payload["output"].([]any)
	if !ok {
		return ""
	}

	var parts []string
	for _, item := range output {
		message, ok := item.(map[string]any)
		if !ok || message["type"] != "message" {
			continue
		}
		contents, ok := message["content"].([]any)
		if !ok {
			continue
		}
		for _, c := range contents {
			block, ok := c.(map[string]any)
			if !ok || block["type"] != "output_text" {
				continue
			}
			if text, ok := block["text"].(string); ok && text != "" {
				parts = append(parts, text)
			}
		}
	}

	return strings.Join(parts, "\n")
}

// truncateBody はエラーメッセージに含めるレスポンスボディを短縮する。
func truncateBody(body []byte) string {
	const maxLen = 512
	s := string(body)
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

// compile-time interface check
var _ Provider = (*OpenAIProvider)(nil)
