package provider

import (
	"fmt"
	"strings"
)

// buildPrompt は検索リクエストからプロバイダへ送る指示文を組み立てる。
// ペイロードの構造化パラメータで表現できないフィルタは指示文に畳み込む。
func buildPrompt(req *SearchRequest) string {
	var sb strings.Builder

	sb.WriteString("Use web search to find the latest, up-to-date information for the following topics: ")
	sb.WriteString(strings.Join(req.Queries, ", "))
	sb.WriteString(".")

	if req.Limits.MaxResults > 0 {
		fmt.Fprintf(&sb, " Cite at most %d distinct sources.", req.Limits.MaxResults)
	}
	// ページ単位のトークン上限はどのプロバイダにも構造化パラメータが無いため
	// 指示文で表現する
	if req.Limits.MaxTokensPerPage > 0 {
		fmt.Fprintf(&sb, " Read at most %d tokens of content from any single page.", req.Limits.MaxTokensPerPage)
	}
	if req.Filters.Recency != "" {
		fmt.Fprintf(&sb, " Focus on information from the last %s.", req.Filters.Recency)
	}
	if req.Filters.AfterDate != nil {
		fmt.Fprintf(&sb, " Only include results published after %s.",
			req.Filters.AfterDate.Format("2006-01-02"))
	}
	if req.Filters.BeforeDate != nil {
		fmt.Fprintf(&sb, " Only include results published before %s.",
			req.Filters.BeforeDate.Format("2006-01-02"))
	}
	if len(req.Filters.LanguageFilter) > 0 {
		fmt.Fprintf(&sb, " Prefer sources written in: %s.",
			strings.Join(req.Filters.LanguageFilter, ", "))
	}

	return sb.String()
}
