// Package embedding はトピッククエリの埋め込みベクトル生成を提供する。
//
// 埋め込みはトピックの意味的な類似検索の基盤データとして保存される。
// クエリテキストが変わった時だけ再生成され、フィルタ設定の変更では
// 再生成しない（コストのかかる外部呼び出しのため）。
package embedding

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

// defaultModel は既定の埋め込みモデル。
const defaultModel = "text-embedding-3-small"

// Generator は埋め込みベクトル生成のインターフェース。
type Generator interface {
	// Generate はテキストから埋め込みベクトルを生成する。
	Generate(ctx context.Context, text string) ([]float64, error)
}

// OpenAIConfig はOpenAI埋め込みクライアントの接続設定。
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // 例: "https://api.openai.com/v1"
	Model   string // 空の場合はdefaultModelを使用
}

// OpenAIGenerator はOpenAI Embeddings APIを使用するGenerator実装。
type OpenAIGenerator struct {
	httpClient *http.Client
	logger     *slog.Logger
	config     OpenAIConfig
}

// NewOpenAIGenerator はOpenAIGeneratorの新しいインスタンスを生成する。
func NewOpenAIGenerator(httpClient *http.Client, logger *slog.Logger, config OpenAIConfig) *OpenAIGenerator {
	if config.Model == "" {
		config.Model = defaultModel
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &OpenAIGenerator{
		httpClient: httpClient,
		logger:     logger,
		config:     config,
	}
}

// Generate はテキストから埋め込みベクトルを生成する。
func (g *OpenAIGenerator) Generate(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(map[string]any{
		"model": g.config.Model,
		"input": text,
	})
	if err != nil {
		return nil, fmt.Errorf("埋め込みリクエストのエンコードに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.config.BaseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embeddings APIがステータス %d を返しました", resp.StatusCode)
	}

	var parsed struct {
		Data []struct {
			Embedding []float64 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("embeddings APIのレスポンスにデータが含まれていません")
	}

	g.logger.Debug("埋め込みベクトルを生成しました",
		slog.Int("dimensions", len(parsed.Data[0].Embedding)),
	)

	return parsed.Data[0].Embedding, nil
}

// NoopGenerator は埋め込み生成が無効化されている場合のGenerator実装。
// 常にnilベクトルを返す。
type NoopGenerator struct{}

// Generate は常にnilを返す。
func (NoopGenerator) Generate(ctx context.Context, text string) ([]float64, error) {
	return nil, nil
}

// compile-time interface checks
var (
	_ Generator = (*OpenAIGenerator)(nil)
	_ Generator = NoopGenerator{}
)
