package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func testRateLimiterConfig(generalBurst, writeBurst int) RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001), // テスト中の補充を事実上無効化
		GeneralBurst:    generalBurst,
		WriteRate:       rate.Limit(0.001),
		WriteBurst:      writeBurst,
		CleanupInterval: time.Hour,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestFrom(addr, method string) *http.Request {
	r := httptest.NewRequest(method, "/api/persons", nil)
	r.RemoteAddr = addr
	return r
}

func TestRateLimiter_GeneralAllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(3, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, requestFrom("10.0.0.1:1234", http.MethodGet))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("10.0.0.1:1234", http.MethodGet))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("4th request: status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header not set")
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("429 body is not JSON: %v", err)
	}
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
}

func TestRateLimiter_ClientsAreIndependent(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(1, 1))
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("10.0.0.1:1234", http.MethodGet))
	if rec.Code != http.StatusOK {
		t.Fatalf("first client: status = %d", rec.Code)
	}

	// 最初のクライアントは枯渇
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("10.0.0.1:1234", http.MethodGet))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("first client 2nd request: status = %d, want 429", rec.Code)
	}

	// 別クライアントは影響を受けない
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("10.0.0.2:1234", http.MethodGet))
	if rec.Code != http.StatusOK {
		t.Errorf("second client: status = %d, want 200", rec.Code)
	}

	if got := rl.GeneralLimiterCount(); got != 2 {
		t.Errorf("GeneralLimiterCount() = %d, want 2", got)
	}
}

func TestRateLimiter_WriteLimiterIsSeparate(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig(10, 1))
	defer rl.Stop()

	general := rl.GeneralMiddleware()(okHandler())
	write := rl.WriteMiddleware()(okHandler())

	rec := httptest.NewRecorder()
	write.ServeHTTP(rec, requestFrom("10.0.0.1:1234", http.MethodPost))
	if rec.Code != http.StatusOK {
		t.Fatalf("first write: status = %d", rec.Code)
	}

	// 書き込み制限は枯渇するが、全般制限は影響を受けない
	rec = httptest.NewRecorder()
	write.ServeHTTP(rec, requestFrom("10.0.0.1:1234", http.MethodPost))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second write: status = %d, want 429", rec.Code)
	}

	rec = httptest.NewRecorder()
	general.ServeHTTP(rec, requestFrom("10.0.0.1:1234", http.MethodGet))
	if rec.Code != http.StatusOK {
		t.Errorf("general after write exhaustion: status = %d, want 200", rec.Code)
	}
}

func TestNewRateLimiterConfig_FromPerMinuteValues(t *testing.T) {
	cfg := NewRateLimiterConfig(120, 30)

	if cfg.GeneralBurst != 120 {
		t.Errorf("GeneralBurst = %d, want 120", cfg.GeneralBurst)
	}
	if cfg.WriteBurst != 30 {
		t.Errorf("WriteBurst = %d, want 30", cfg.WriteBurst)
	}
	if cfg.GeneralRate != rate.Limit(2.0) {
		t.Errorf("GeneralRate = %v, want 2", cfg.GeneralRate)
	}
	if cfg.WriteRate != rate.Limit(0.5) {
		t.Errorf("WriteRate = %v, want 0.5", cfg.WriteRate)
	}
}

func TestClientKey_StripsPort(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.168.1.10:54321"
	if got := clientKey(r); got != "192.168.1.10" {
		t.Errorf("clientKey() = %q, want 192.168.1.10", got)
	}

	r.RemoteAddr = "unparseable"
	if got := clientKey(r); got != "unparseable" {
		t.Errorf("clientKey() = %q, want raw value", got)
	}
}
