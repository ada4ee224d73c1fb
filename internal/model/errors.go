package model

import (
	"fmt"
	"sort"
	"strings"
)

// APIError は統一エラーフォーマットを表す。
// ハンドラー層でHTTPステータスコードにマッピングされる。
type APIError struct {
	Code    string // エラーコード
	Message string // クライアントに返すメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodePersonNotFound = "PERSON_NOT_FOUND"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
)

// NewPersonNotFoundError はPerson未検出エラーを生成する。
func NewPersonNotFoundError() *APIError {
	return &APIError{
		Code:    ErrCodePersonNotFound,
		Message: "Person not found",
	}
}

// NewInvalidRequestError はリクエスト形式エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:    ErrCodeInvalidRequest,
		Message: reason,
	}
}

// ValidationError はフィールド単位の検証エラーを表す。
// 単一メッセージではなく、フィールド名をキーとするメッセージリストを保持する。
// HTTP 422のレスポンスボディにそのままシリアライズされる。
type ValidationError struct {
	Errors map[string][]string
}

// NewValidationError は空のValidationErrorを生成する。
func NewValidationError() *ValidationError {
	return &ValidationError{Errors: make(map[string][]string)}
}

// Add はフィールドに検証エラーメッセージを追加する。
func (e *ValidationError) Add(field, message string) {
	e.Errors[field] = append(e.Errors[field], message)
}

// HasErrors は1件以上のエラーを保持しているかを返す。
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// Error はerrorインターフェースを実装する。
// フィールド名順に全メッセージを連結した文字列を返す。
func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for f := range e.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var parts []string
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(e.Errors[f], "; "))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}
