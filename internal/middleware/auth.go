// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// NewAuthMiddleware はBearerトークンによるAPI認証ミドルウェアを返す。
// AuthorizationヘッダーのトークンをAPIトークンと定数時間比較で検証する。
// 未認証リクエストには401 Unauthorizedを返す。
func NewAuthMiddleware(apiToken string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			if subtle.ConstantTimeCompare([]byte(token), []byte(apiToken)) != 1 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
