package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/topicradar/internal/model"
)

func testRateLimiterConfig(generalBurst, runBurst int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001), // 補充をほぼ止めてバーストだけで検証
		GeneralBurst:    generalBurst,
		RunRate:         rate.Limit(0.001),
		RunBurst:        runBurst,
		CleanupInterval: time.Minute,
	}
}

func doRequest(handler http.Handler, remoteAddr string) int {
	req := httptest.NewRequest(http.MethodGet, "/api/topics", nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimiter_GeneralMiddleware_AllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(3, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		if code := doRequest(handler, "10.1.1.1:1234"); code != http.StatusOK {
			t.Fatalf("%d回目: status = %d, want 200", i+1, code)
		}
	}
	if code := doRequest(handler, "10.1.1.1:1234"); code != http.StatusTooManyRequests {
		t.Errorf("バースト超過: status = %d, want 429", code)
	}
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	if code := doRequest(handler, "10.1.1.1:1234"); code != http.StatusOK {
		t.Fatalf("クライアントA 1回目: status = %d", code)
	}
	if code := doRequest(handler, "10.1.1.1:5678"); code != http.StatusTooManyRequests {
		t.Errorf("同一IP別ポートは同一クライアント扱い: status = %d, want 429", code)
	}
	if code := doRequest(handler, "10.2.2.2:1234"); code != http.StatusOK {
		t.Errorf("別クライアントは独立: status = %d, want 200", code)
	}
}

func TestRateLimiter_RunMiddleware_IndependentFromGeneral(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(10, 1))
	defer rl.Stop()

	general := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	run := rl.RunMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	// 実行トリガーの制限はAPI全般と独立
	if code := doRequest(run, "10.1.1.1:1"); code != http.StatusAccepted {
		t.Fatalf("実行トリガー1回目: status = %d", code)
	}
	if code := doRequest(run, "10.1.1.1:1"); code != http.StatusTooManyRequests {
		t.Errorf("実行トリガー2回目: status = %d, want 429", code)
	}
	if code := doRequest(general, "10.1.1.1:1"); code != http.StatusOK {
		t.Errorf("API全般は実行トリガー制限の影響を受けない: status = %d", code)
	}
}

func TestRateLimiter_429ResponseFormat(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	doRequest(handler, "10.1.1.1:1")

	req := httptest.NewRequest(http.MethodGet, "/api/topics", nil)
	req.RemoteAddr = "10.1.1.1:1"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-Afterヘッダーがありません")
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	// ボディは統一エラーフォーマット
	var body ErrorResponseBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスのパースに失敗: %v", err)
	}
	if body.Code != model.ErrCodeRateLimited {
		t.Errorf("Code = %q, want %q", body.Code, model.ErrCodeRateLimited)
	}
}

func TestRateLimiter_LimiterCounts(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(10, 10))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	doRequest(handler, "10.1.1.1:1")
	doRequest(handler, "10.2.2.2:1")

	if count := rl.GeneralLimiterCount(); count != 2 {
		t.Errorf("GeneralLimiterCount = %d, want 2", count)
	}
	if count := rl.RunLimiterCount(); count != 0 {
		t.Errorf("RunLimiterCount = %d, want 0", count)
	}
}
