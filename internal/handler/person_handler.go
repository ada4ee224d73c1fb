// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/personbook/internal/model"
)

// PersonServiceInterface はPersonハンドラーが必要とするサービスインターフェース。
type PersonServiceInterface interface {
	// List は全Personを返す。
	List(ctx context.Context) ([]*model.Person, error)
	// Get は指定IDのPersonを返す。
	Get(ctx context.Context, id int64) (*model.Person, error)
	// Create は新しいPersonを作成する。
	Create(ctx context.Context, fields model.PersonFields) (*model.Person, error)
	// Update は指定IDのPersonを部分更新する。
	Update(ctx context.Context, id int64, fields model.PersonFields) (*model.Person, error)
	// Delete は指定IDのPersonを削除する。
	Delete(ctx context.Context, id int64) error
}

// StatsRecorder はハンドラーが操作結果を記録するためのインターフェース。
// metrics.MetricsCollectorの部分集合として定義する。nilの場合は記録しない。
type StatsRecorder interface {
	RecordPersonCreated()
	RecordPersonUpdated()
	RecordPersonDeleted()
	RecordValidationFailure()
}

// PersonHandler はPerson管理のHTTPハンドラー。
type PersonHandler struct {
	service PersonServiceInterface
	stats   StatsRecorder
}

// NewPersonHandler はPersonHandlerを生成する。
func NewPersonHandler(service PersonServiceInterface, stats StatsRecorder) *PersonHandler {
	return &PersonHandler{
		service: service,
		stats:   stats,
	}
}

// envelope は全APIレスポンスの統一フォーマット。
// successは常に含み、messageとdataは操作に応じて省略される。
type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    any                 `json:"data,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// ListPersons は全Personの一覧を返す。
// GET /api/persons
func (h *PersonHandler) ListPersons(w http.ResponseWriter, r *http.Request) {
	persons, err := h.service.List(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	// 空リストはnullではなく[]として返す
	if persons == nil {
		persons = []*model.Person{}
	}

	writeEnvelope(w, http.StatusOK, envelope{Success: true, Data: persons})
}

// GetPerson は指定IDのPersonを返す。
// GET /api/persons/:id
func (h *PersonHandler) GetPerson(w http.ResponseWriter, r *http.Request) {
	id, ok := personIDFromRequest(w, r)
	if !ok {
		return
	}

	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	writeEnvelope(w, http.StatusOK, envelope{Success: true, Data: p})
}

// CreatePerson は新しいPersonを作成する。
// POST /api/persons
func (h *PersonHandler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	var fields model.PersonFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeEnvelope(w, http.StatusBadRequest, envelope{
			Success: false,
			Message: "Invalid request body",
		})
		return
	}

	p, err := h.service.Create(r.Context(), fields)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if h.stats != nil {
		h.stats.RecordPersonCreated()
	}

	writeEnvelope(w, http.StatusCreated, envelope{
		Success: true,
		Message: "Person created successfully",
		Data:    p,
	})
}

// UpdatePerson は指定IDのPersonを部分更新する。
// PUT /api/persons/:id および PATCH /api/persons/:id
func (h *PersonHandler) UpdatePerson(w http.ResponseWriter, r *http.Request) {
	id, ok := personIDFromRequest(w, r)
	if !ok {
		return
	}

	var fields model.PersonFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeEnvelope(w, http.StatusBadRequest, envelope{
			Success: false,
			Message: "Invalid request body",
		})
		return
	}

	p, err := h.service.Update(r.Context(), id, fields)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	if h.stats != nil {
		h.stats.RecordPersonUpdated()
	}

	writeEnvelope(w, http.StatusOK, envelope{
		Success: true,
		Message: "Person updated successfully",
		Data:    p,
	})
}

// DeletePerson は指定IDのPersonを削除する。
// DELETE /api/persons/:id
func (h *PersonHandler) DeletePerson(w http.ResponseWriter, r *http.Request) {
	id, ok := personIDFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleServiceError(w, err)
		return
	}

	if h.stats != nil {
		h.stats.RecordPersonDeleted()
	}

	writeEnvelope(w, http.StatusOK, envelope{
		Success: true,
		Message: "Person deleted successfully",
	})
}

// --- ヘルパー関数 ---

// personIDFromRequest はパスパラメータからPerson IDを取り出す。
// 数値でない場合は404を書き込みfalseを返す（存在しないリソースとして扱う）。
func personIDFromRequest(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeEnvelope(w, http.StatusNotFound, envelope{
			Success: false,
			Message: "Person not found",
		})
		return 0, false
	}
	return id, true
}

// writeEnvelope は統一フォーマットのJSONレスポンスを書き込む。
func writeEnvelope(w http.ResponseWriter, statusCode int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(env)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPレスポンスに変換する。
// 検証エラーは422でフィールド別メッセージを、not foundは404を返す。
func (h *PersonHandler) handleServiceError(w http.ResponseWriter, err error) {
	var ve *model.ValidationError
	if errors.As(err, &ve) {
		if h.stats != nil {
			h.stats.RecordValidationFailure()
		}
		writeEnvelope(w, http.StatusUnprocessableEntity, envelope{
			Success: false,
			Message: "The given data was invalid.",
			Errors:  ve.Errors,
		})
		return
	}

	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeEnvelope(w, mapAPIErrorToHTTPStatus(apiErr), envelope{
			Success: false,
			Message: apiErr.Message,
		})
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeEnvelope(w, http.StatusInternalServerError, envelope{
		Success: false,
		Message: "Internal server error",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodePersonNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
