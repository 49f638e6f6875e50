package topic

import (
	"strings"

	"golang.org/x/net/idna"

	"github.com/hitoshi/topicradar/internal/model"
)

// NormalizeQueries はクエリ一覧を正規化する。
// 各クエリの前後空白を除去し、連続する空白を1つに圧縮し、
// 空になったクエリを落とし、重複を出現順を保って除去する。
func NormalizeQueries(queries []string) []string {
	seen := make(map[string]struct{}, len(queries))
	normalized := make([]string, 0, len(queries))
	for _, q := range queries {
		q = strings.Join(strings.Fields(q), " ")
		if q == "" {
			continue
		}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		normalized = append(normalized, q)
	}
	return normalized
}

// NormalizeDomain はドメインフィルタの値を正規化する。
// スキーム・パス・ポート・先頭の"www."を取り除き、小文字化したうえで
// 国際化ドメイン名をpunycodeへ変換する。
// 正規化の結果が有効なドメインにならない場合はエラーを返す。
func NormalizeDomain(raw string) (string, error) {
	domain := strings.TrimSpace(strings.ToLower(raw))

	// スキームの除去
	if i := strings.Index(domain, "://"); i >= 0 {
		domain = domain[i+3:]
	}
	// パス・クエリの除去
	if i := strings.IndexAny(domain, "/?#"); i >= 0 {
		domain = domain[:i]
	}
	// ポートの除去
	if i := strings.LastIndex(domain, ":"); i >= 0 {
		domain = domain[:i]
	}
	domain = strings.TrimPrefix(domain, "www.")
	domain = strings.TrimSuffix(domain, ".")

	if domain == "" {
		return "", model.NewInvalidFilterError("空のドメインは指定できません")
	}
	if strings.ContainsAny(domain, " \t") {
		return "", model.NewInvalidFilterError("ドメインに空白は含められません: " + raw)
	}
	if !strings.Contains(domain, ".") {
		return "", model.NewInvalidFilterError("有効なドメインではありません: " + raw)
	}

	ascii, err := idna.Lookup.ToASCII(domain)
	if err != nil {
		return "", model.NewInvalidFilterError("有効なドメインではありません: " + raw)
	}
	return ascii, nil
}

// NormalizeDomainList はドメインフィルタ一覧を正規化する。
// 重複は出現順を保って除去する。
func NormalizeDomainList(domains []string) ([]string, error) {
	seen := make(map[string]struct{}, len(domains))
	normalized := make([]string, 0, len(domains))
	for _, d := range domains {
		nd, err := NormalizeDomain(d)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[nd]; dup {
			continue
		}
		seen[nd] = struct{}{}
		normalized = append(normalized, nd)
	}
	return normalized, nil
}
