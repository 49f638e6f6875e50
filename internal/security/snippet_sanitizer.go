// Package security はアプリケーションのセキュリティ機能を提供する。
//
// SnippetSanitizerService は検索プロバイダが返すスニペット/要約テキストを
// サニタイズし、XSS攻撃などのセキュリティリスクからユーザーを保護する。
// プロバイダのレスポンスは外部由来の信頼できないテキストであり、
// HTMLフラグメントが混入することがあるため、保存前に必ず通す。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// SnippetSanitizerService はスニペットのサニタイズ機能のインターフェースを定義する。
// コンテンツ保存前に使用される。
type SnippetSanitizerService interface {
	// Sanitize はスニペットをサニタイズして安全なテキストを返す。
	// 最小限のインライン装飾タグ（strong, em, b, i, code）のみを通過させ、
	// script等のタグおよびすべての属性を除去する。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// snippetSanitizer はSnippetSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type snippetSanitizer struct {
	policy *bluemonday.Policy
}

// NewSnippetSanitizer はSnippetSanitizerServiceの新しいインスタンスを生成する。
// ポリシーの内容:
//   - 許可タグ: strong, em, b, i, code（属性なし）
//   - その他のタグ（script, iframe, a, img等）はすべて除去
func NewSnippetSanitizer() *snippetSanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements("strong", "em", "b", "i", "code")

	return &snippetSanitizer{
		policy: p,
	}
}

// Sanitize はスニペットをサニタイズして安全なテキストを返す。
// タグ除去後の前後空白も取り除く。
func (s *snippetSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}
