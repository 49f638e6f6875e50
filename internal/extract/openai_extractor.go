package extract

// OpenAIExtractor はResponses APIのレスポンスから候補コンテンツを抽出する。
// output[]のmessage項目のcontent[]に含まれるurl_citationアノテーションを
// 出現順に収集する。
type OpenAIExtractor struct{}

// Extract はurl_citationアノテーションを出現順に抽出する。
func (e *OpenAIExtractor) Extract(payload map[string]any) []CandidateEntry {
	output, ok := payload["output"].([]any)
	if !ok {
		return nil
	}

	var entries []CandidateEntry
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
			if !ok {
				continue
			}
			annotations, ok := block["annotations"].([]any)
			if !ok {
				continue
			}
			for _, a := range annotations {
				annotation, ok := a.(map[string]any)
				if !ok || annotation["type"] != "url_citation" {
					continue
				}
				rawURL, _ := annotation["url"].(string)
				if rawURL == "" {
					continue
				}
				entries = append(entries, CandidateEntry{
					URL:           NormalizeURL(rawURL),
					Title:         probeString(annotation, titleKeys),
					PublishedAt:   probeTime(annotation, publishedAtKeys),
					LastUpdatedAt: probeTime(annotation, lastUpdatedAtKeys),
					Snippet:       probeString(annotation, snippetKeys),
				})
			}
		}
	}

	return entries
}

// compile-time interface check
var _ Extractor = (*OpenAIExtractor)(nil)
