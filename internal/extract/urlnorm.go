package extract

import (
	"net/url"
	"strings"
)

// NormalizeURL はURLからトラッキング用クエリパラメータ（utm_*）を取り除く。
// それ以外のクエリパラメータ・パス・フラグメントは順序も含めて変更しない。
// 解釈できないURLは変更せずそのまま返す。
func NormalizeURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if parsed.RawQuery == "" {
		return raw
	}

	// url.Values経由の再構築はパラメータの順序を保たないため、
	// クエリ文字列を手で分割してフィルタする。
	params := strings.Split(parsed.RawQuery, "&")
	kept := make([]string, 0, len(params))
	for _, param := range params {
		key := param
		if i := strings.Index(param, "="); i >= 0 {
			key = param[:i]
		}
		if strings.HasPrefix(strings.ToLower(key), "utm_") {
			continue
		}
		kept = append(kept, param)
	}

	parsed.RawQuery = strings.Join(kept, "&")
	return parsed.String()
}
