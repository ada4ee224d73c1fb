package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/personbook/internal/event"
	"github.com/hitoshi/personbook/internal/middleware"
	"github.com/hitoshi/personbook/internal/model"
)

// newTestRouter はテスト用の依存を組み立てたルーターとRateLimiterを返す。
func newTestRouter(t *testing.T, service PersonServiceInterface) http.Handler {
	t.Helper()

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(1000),
		GeneralBurst:    1000,
		WriteRate:       rate.Limit(1000),
		WriteBurst:      1000,
		CleanupInterval: time.Hour,
	})
	t.Cleanup(rl.Stop)

	return NewRouter(&RouterDeps{
		CORSAllowedOrigin: "http://localhost:4200",
		RateLimiter:       rl,
		Logger:            slog.New(slog.NewJSONHandler(io.Discard, nil)),
		PersonService:     service,
		Broadcaster:       event.NewBroadcaster(),
		HealthChecker:     nil,
	})
}

func staticListService(persons []*model.Person) *mockPersonService {
	return &mockPersonService{
		listFn: func(ctx context.Context) ([]*model.Person, error) {
			return persons, nil
		},
		getFn: func(ctx context.Context, id int64) (*model.Person, error) {
			for _, p := range persons {
				if p.ID == id {
					return p, nil
				}
			}
			return nil, model.NewPersonNotFoundError()
		},
	}
}

func TestRouter_PersonsAndPersonasAreAliases(t *testing.T) {
	router := newTestRouter(t, staticListService([]*model.Person{testPerson(1)}))

	var bodies []string
	for _, path := range []string{"/api/persons", "/api/personas"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: status = %d, want 200", path, rec.Code)
		}
		bodies = append(bodies, rec.Body.String())
	}

	if bodies[0] != bodies[1] {
		t.Errorf("alias responses differ:\n%s\n%s", bodies[0], bodies[1])
	}
}

func TestRouter_PersonasAliasSupportsItemRoutes(t *testing.T) {
	router := newTestRouter(t, staticListService([]*model.Person{testPerson(4)}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/personas/4", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/personas/4: status = %d, want 200", rec.Code)
	}
}

func TestRouter_TestEndpoint(t *testing.T) {
	router := newTestRouter(t, staticListService(nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/test", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body["status"] != "success" {
		t.Errorf("status = %v, want success", body["status"])
	}
	if body["message"] == "" {
		t.Error("message is empty")
	}
	if _, ok := body["timestamp"]; !ok {
		t.Error("timestamp missing")
	}
}

func TestRouter_HealthWithoutChecker(t *testing.T) {
	router := newTestRouter(t, staticListService(nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestRouter_SetsRequestIDAndSecurityHeaders(t *testing.T) {
	router := newTestRouter(t, staticListService(nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/persons", nil))

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID not set")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers not applied")
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:4200" {
		t.Error("CORS headers not applied")
	}
}

func TestRouter_PanicReturns500Envelope(t *testing.T) {
	service := &mockPersonService{
		listFn: func(ctx context.Context) ([]*model.Person, error) {
			panic("unexpected")
		},
	}
	router := newTestRouter(t, service)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/persons", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"success":false`) {
		t.Errorf("500 body is not an envelope: %s", rec.Body.String())
	}
}

func TestRouter_WriteRateLimitOnCreate(t *testing.T) {
	service := &mockPersonService{
		createFn: func(ctx context.Context, fields model.PersonFields) (*model.Person, error) {
			return testPerson(1), nil
		},
		listFn: func(ctx context.Context) ([]*model.Person, error) {
			return nil, nil
		},
	}

	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		GeneralRate:     rate.Limit(1000),
		GeneralBurst:    1000,
		WriteRate:       rate.Limit(0.001),
		WriteBurst:      1,
		CleanupInterval: time.Hour,
	})
	defer rl.Stop()

	router := NewRouter(&RouterDeps{
		CORSAllowedOrigin: "http://localhost:4200",
		RateLimiter:       rl,
		Logger:            slog.New(slog.NewJSONHandler(io.Discard, nil)),
		PersonService:     service,
		Broadcaster:       event.NewBroadcaster(),
	})

	payload := `{"first_name":"Ana","last_name":"García","email":"ana@example.com"}`

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/persons", bytes.NewReader([]byte(payload)))
	req.RemoteAddr = "10.1.1.1:1000"
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("first POST: status = %d, want 201", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/persons", bytes.NewReader([]byte(payload)))
	req.RemoteAddr = "10.1.1.1:1000"
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second POST: status = %d, want 429", rec.Code)
	}

	// 読み取りは書き込み制限の影響を受けない
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/persons", nil)
	req.RemoteAddr = "10.1.1.1:1000"
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("GET after write exhaustion: status = %d, want 200", rec.Code)
	}
}

func TestRouter_ServesEmbeddedUI(t *testing.T) {
	router := newTestRouter(t, staticListService(nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Personbook") {
		t.Error("embedded UI not served at /")
	}
}

// TestRouter_EmbeddedUIContract は埋め込みUIのクライアント側の約束事を検証する。
// JS本体はブラウザでしか実行できないため、振る舞いを決める要素の存在を確認する。
func TestRouter_EmbeddedUIContract(t *testing.T) {
	router := newTestRouter(t, staticListService(nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()

	// 取得成功時にリストをlocalStorageへ保存し、失敗時はそこから復元する
	for _, marker := range []string{
		"personbook:persons",
		"localStorage.setItem(CACHE_KEY",
		"localStorage.getItem(CACHE_KEY",
	} {
		if !strings.Contains(body, marker) {
			t.Errorf("embedded UI missing offline fallback marker %q", marker)
		}
	}

	// 処理中の多重送信防止（送信・削除ボタンの無効化）
	for _, marker := range []string{
		"submitBtn.disabled = true",
		"btn.disabled = true",
	} {
		if !strings.Contains(body, marker) {
			t.Errorf("embedded UI missing in-flight guard marker %q", marker)
		}
	}

	// 月の集計は文字列から直接読む（Date経由のUTC解釈ずれ回避）
	if strings.Contains(body, "new Date(p.birth_date).getMonth()") {
		t.Error("embedded UI must not derive the month via Date parsing")
	}
	if !strings.Contains(body, "p.birth_date.slice(5, 7)") {
		t.Error("embedded UI missing string-based month extraction")
	}
}

// TestRouter_FullCRUDScenario はルーター経由でCRUD一巡の振る舞いを検証する。
func TestRouter_FullCRUDScenario(t *testing.T) {
	store := map[int64]*model.Person{}
	var nextID int64

	service := &mockPersonService{
		listFn: func(ctx context.Context) ([]*model.Person, error) {
			var out []*model.Person
			for _, p := range store {
				out = append(out, p)
			}
			return out, nil
		},
		getFn: func(ctx context.Context, id int64) (*model.Person, error) {
			if p, ok := store[id]; ok {
				return p, nil
			}
			return nil, model.NewPersonNotFoundError()
		},
		createFn: func(ctx context.Context, fields model.PersonFields) (*model.Person, error) {
			nextID++
			p := &model.Person{ID: nextID, FirstName: *fields.FirstName, LastName: *fields.LastName, Email: *fields.Email}
			store[p.ID] = p
			return p, nil
		},
		updateFn: func(ctx context.Context, id int64, fields model.PersonFields) (*model.Person, error) {
			p, ok := store[id]
			if !ok {
				return nil, model.NewPersonNotFoundError()
			}
			if fields.Email != nil {
				p.Email = *fields.Email
			}
			return p, nil
		},
		deleteFn: func(ctx context.Context, id int64) error {
			if _, ok := store[id]; !ok {
				return model.NewPersonNotFoundError()
			}
			delete(store, id)
			return nil
		},
	}
	router := newTestRouter(t, service)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		router.ServeHTTP(rec, httptest.NewRequest(method, path, reader))
		return rec
	}

	// 作成
	rec := do(http.MethodPost, "/api/persons", `{"first_name":"Ana","last_name":"García","email":"ana@example.com"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status = %d, want 201", rec.Code)
	}

	// 取得
	rec = do(http.MethodGet, "/api/persons/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get: status = %d, want 200", rec.Code)
	}

	// 更新（エイリアス経由）
	rec = do(http.MethodPut, "/api/personas/1", `{"email":"nueva@example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "nueva@example.com") {
		t.Errorf("updated email not reflected: %s", rec.Body.String())
	}

	// 削除
	rec = do(http.MethodDelete, "/api/persons/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status = %d, want 200", rec.Code)
	}

	// 削除後の取得は404
	rec = do(http.MethodGet, "/api/persons/1", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete: status = %d, want 404", rec.Code)
	}
}
