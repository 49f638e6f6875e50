package extract

// PerplexityExtractor はChat Completionsレスポンスから候補コンテンツを抽出する。
// トップレベルのsearch_results[]を優先し、無い場合はcitations[]
// （URL文字列のみの配列）へフォールバックする。
type PerplexityExtractor struct{}

// Extract は検索結果をランク順に抽出する。
func (e *PerplexityExtractor) Extract(payload map[string]any) []CandidateEntry {
	if results, ok := payload["search_results"].([]any); ok && len(results) > 0 {
		var entries []CandidateEntry
		for _, r := range results {
			result, ok := r.(map[string]any)
			if !ok {
				continue
			}
			rawURL, _ := result["url"].(string)
			if rawURL == "" {
				continue
			}
			entries = append(entries, CandidateEntry{
				URL:           NormalizeURL(rawURL),
				Title:         probeString(result, titleKeys),
				PublishedAt:   probeTime(result, publishedAtKeys),
				LastUpdatedAt: probeTime(result, lastUpdatedAtKeys),
				Snippet:       probeString(result, snippetKeys),
			})
		}
		return entries
	}

	// citations[]はURLのみでメタデータを持たない。
	citations, ok := payload["citations"].([]any)
	if !ok {
		return nil
	}
	var entries []CandidateEntry
	for _, c := range citations {
		rawURL, ok := c.(string)
		if !ok || rawURL == "" {
			continue
		}
		entries = append(entries, CandidateEntry{URL: NormalizeURL(rawURL)})
	}
	return entries
}

// compile-time interface check
var _ Extractor = (*PerplexityExtractor)(nil)
