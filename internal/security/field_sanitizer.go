// Package security はアプリケーションのセキュリティ機能を提供する。
//
// FieldSanitizerService はPersonの自由入力フィールド（住所・職業など）を
// 保存前にサニタイズし、格納データを介したXSSからクライアントを保護する。
// bluemondayのStrictPolicyを使用し、HTMLタグを一切通過させない。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// FieldSanitizerService は自由入力文字列のサニタイズ機能のインターフェースを定義する。
// Personの作成・更新時、永続化の直前に使用される。
type FieldSanitizerService interface {
	// Sanitize は入力文字列からHTMLタグを全て除去したプレーンテキストを返す。
	// 前後の空白はトリムされる。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// fieldSanitizer はFieldSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type fieldSanitizer struct {
	policy *bluemonday.Policy
}

// NewFieldSanitizer はFieldSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicy（全タグ除去）を使用する。
func NewFieldSanitizer() *fieldSanitizer {
	return &fieldSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力文字列からHTMLタグを全て除去したプレーンテキストを返す。
func (s *fieldSanitizer) Sanitize(raw string) string {
	if raw == "" {
		return ""
	}
	// StrictPolicyはテキストをHTMLエスケープして返すため、
	// プレーンテキストとして格納するにはアンエスケープが必要。
	cleaned := s.policy.Sanitize(raw)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

// compile-time interface check
var _ FieldSanitizerService = (*fieldSanitizer)(nil)
