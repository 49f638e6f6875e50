package security

import (
	"strings"
	"testing"
)

func TestSnippetSanitizer_ImplementsInterface(t *testing.T) {
	var _ SnippetSanitizerService = (*snippetSanitizer)(nil)
}

func TestSnippetSanitizer_Sanitize(t *testing.T) {
	s := NewSnippetSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "プレーンテキストはそのまま",
			input: "Goの新しいイテレータ機能の解説",
			want:  "Goの新しいイテレータ機能の解説",
		},
		{
			name:  "scriptタグは中身ごと除去",
			input: `概要<script>alert("xss")</script>テキスト`,
			want:  "概要テキスト",
		},
		{
			name:  "インライン装飾タグは許可",
			input: "<strong>重要</strong>な<em>更新</em>と<code>go vet</code>",
			want:  "<strong>重要</strong>な<em>更新</em>と<code>go vet</code>",
		},
		{
			name:  "リンクはテキストだけ残す",
			input: `詳細は<a href="https://evil.example">こちら</a>`,
			want:  "詳細はこちら",
		},
		{
			name:  "イベント属性付きタグは除去",
			input: `<b onclick="alert(1)">太字</b>`,
			want:  "<b>太字</b>",
		},
		{
			name:  "前後の空白を除去",
			input: "  <p>要約</p>  ",
			want:  "要約",
		},
		{
			name:  "空文字列は空文字列",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSnippetSanitizer_Idempotent(t *testing.T) {
	s := NewSnippetSanitizer()

	input := `概要<script>alert(1)</script><strong>重要</strong>`
	once := s.Sanitize(input)
	twice := s.Sanitize(once)
	if once != twice {
		t.Errorf("サニタイズは冪等のはず: 1回目=%q 2回目=%q", once, twice)
	}
	if strings.Contains(once, "script") {
		t.Errorf("scriptが残っています: %q", once)
	}
}
