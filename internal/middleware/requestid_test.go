package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestRequestIDMiddleware_SetsHeaderAndContext(t *testing.T) {
	var ctxID string
	handler := NewRequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := RequestIDFromContext(r.Context())
		if err != nil {
			t.Errorf("RequestIDFromContext() error = %v", err)
		}
		ctxID = id
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/persons", nil))

	headerID := rec.Header().Get("X-Request-ID")
	if headerID == "" {
		t.Fatal("X-Request-ID header not set")
	}
	if headerID != ctxID {
		t.Errorf("header ID %q != context ID %q", headerID, ctxID)
	}
	if _, err := uuid.Parse(headerID); err != nil {
		t.Errorf("request ID %q is not a valid UUID: %v", headerID, err)
	}
}

func TestRequestIDMiddleware_UniquePerRequest(t *testing.T) {
	handler := NewRequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		id := rec.Header().Get("X-Request-ID")
		if seen[id] {
			t.Fatalf("duplicate request ID %q", id)
		}
		seen[id] = true
	}
}

func TestRequestIDFromContext_Missing(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := RequestIDFromContext(r.Context()); err == nil {
		t.Error("expected error for context without request ID")
	}
}
