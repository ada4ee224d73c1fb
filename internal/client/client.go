// Package client はPersonbook APIのクライアントデータサービスを提供する。
//
// レスポンスのエンベロープ（{success, message, data}）とデータ直載せの
// 両形式を受け付けて透過的にアンラップする。一覧取得は接続障害時に
// ファイル永続化キャッシュへフォールバックする。
package client

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	gocache "github.com/patrickmn/go-cache"

	"github.com/hitoshi/personbook/internal/model"
)

// personsCacheKey は一覧キャッシュの格納キー。
const personsCacheKey = "persons"

func init() {
	// SaveFile/LoadFileのgobエンコードに必要
	gob.Register([]*model.Person{})
}

// requestTimeout はAPI呼び出し1回のタイムアウト。
const requestTimeout = 10 * time.Second

// Error はAPI呼び出しの失敗を表す。Messageは表示用のスペイン語文言。
// StatusCode 0 は接続障害（レスポンスなし）を示す。
type Error struct {
	StatusCode  int
	Message     string
	FieldErrors map[string][]string
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// statusMessage はHTTPステータスコードから表示用メッセージに変換する。
func statusMessage(statusCode int) string {
	switch statusCode {
	case 400:
		return "Datos de entrada inválidos"
	case 401:
		return "No autorizado. Por favor, inicia sesión"
	case 403:
		return "Acceso denegado"
	case 404:
		return "Recurso no encontrado"
	case 422:
		return "Datos de validación incorrectos"
	case 500:
		return "Error interno del servidor"
	case 0:
		return "No se puede conectar con el servidor. Verifica tu conexión"
	default:
		return fmt.Sprintf("Error %d: error inesperado", statusCode)
	}
}

// envelope はAPIレスポンスの共通フォーマット。
type envelope struct {
	Success *bool               `json:"success"`
	Message string              `json:"message"`
	Data    json.RawMessage     `json:"data"`
	Errors  map[string][]string `json:"errors"`
}

// PersonService はPersonbook APIのクライアント。
type PersonService struct {
	http      *resty.Client
	cache     *gocache.Cache
	cacheFile string
}

// NewPersonService はPersonServiceを生成する。
// baseURLはAPIルート（例: http://localhost:8080/api）を指定する。
// cacheFileが空でない場合、一覧キャッシュをファイルに永続化し、
// プロセス再起動をまたいだフォールバックを可能にする。
func NewPersonService(baseURL, cacheFile string) *PersonService {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	cache := gocache.New(gocache.NoExpiration, 10*time.Minute)
	if cacheFile != "" {
		// 前回保存したキャッシュがあれば読み込む（なければ無視）
		if err := cache.LoadFile(cacheFile); err != nil {
			slog.Debug("no persisted cache loaded", slog.String("file", cacheFile))
		}
	}

	return &PersonService{
		http:      httpClient,
		cache:     cache,
		cacheFile: cacheFile,
	}
}

// unwrap はレスポンスボディからデータ部分を取り出す。
// successキーを持つエンベロープはdataを、それ以外はボディ全体をデータとして扱う。
func unwrap(body []byte) json.RawMessage {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Success != nil {
		return env.Data
	}
	return body
}

// apiError はレスポンスからErrorを構築する。
func apiError(resp *resty.Response) *Error {
	e := &Error{
		StatusCode: resp.StatusCode(),
		Message:    statusMessage(resp.StatusCode()),
	}

	// 422の場合はフィールド別メッセージを保持する
	var env envelope
	if err := json.Unmarshal(resp.Body(), &env); err == nil && len(env.Errors) > 0 {
		e.FieldErrors = env.Errors
	}

	return e
}

// transportError は接続障害（レスポンスなし）のErrorを返す。
func transportError() *Error {
	return &Error{StatusCode: 0, Message: statusMessage(0)}
}

// List は全Personの一覧を取得する。
// 接続障害時はキャッシュされた前回の一覧にフォールバックし、
// fromCache=trueを返す。HTTPエラー（4xx/5xx）ではフォールバックしない。
func (s *PersonService) List(ctx context.Context) (persons []*model.Person, fromCache bool, err error) {
	resp, reqErr := s.http.R().SetContext(ctx).Get("/persons")
	if reqErr != nil {
		if cached, ok := s.cache.Get(personsCacheKey); ok {
			slog.Warn("api unreachable, serving cached persons")
			return cached.([]*model.Person), true, nil
		}
		return nil, false, transportError()
	}
	if resp.IsError() {
		return nil, false, apiError(resp)
	}

	if err := json.Unmarshal(unwrap(resp.Body()), &persons); err != nil {
		return nil, false, fmt.Errorf("failed to decode persons list: %w", err)
	}

	s.cache.Set(personsCacheKey, persons, gocache.NoExpiration)
	if s.cacheFile != "" {
		if err := s.cache.SaveFile(s.cacheFile); err != nil {
			slog.Warn("failed to persist cache", slog.String("error", err.Error()))
		}
	}

	return persons, false, nil
}

// Get は指定IDのPersonを取得する。
func (s *PersonService) Get(ctx context.Context, id int64) (*model.Person, error) {
	resp, err := s.http.R().SetContext(ctx).Get(fmt.Sprintf("/persons/%d", id))
	if err != nil {
		return nil, transportError()
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}

	var p model.Person
	if err := json.Unmarshal(unwrap(resp.Body()), &p); err != nil {
		return nil, fmt.Errorf("failed to decode person: %w", err)
	}
	return &p, nil
}

// Create は新しいPersonを作成する。
func (s *PersonService) Create(ctx context.Context, fields model.PersonFields) (*model.Person, error) {
	resp, err := s.http.R().SetContext(ctx).SetBody(fields).Post("/persons")
	if err != nil {
		return nil, transportError()
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}

	var p model.Person
	if err := json.Unmarshal(unwrap(resp.Body()), &p); err != nil {
		return nil, fmt.Errorf("failed to decode created person: %w", err)
	}
	return &p, nil
}

// Update は指定IDのPersonを部分更新する。
func (s *PersonService) Update(ctx context.Context, id int64, fields model.PersonFields) (*model.Person, error) {
	resp, err := s.http.R().SetContext(ctx).SetBody(fields).Put(fmt.Sprintf("/persons/%d", id))
	if err != nil {
		return nil, transportError()
	}
	if resp.IsError() {
		return nil, apiError(resp)
	}

	var p model.Person
	if err := json.Unmarshal(unwrap(resp.Body()), &p); err != nil {
		return nil, fmt.Errorf("failed to decode updated person: %w", err)
	}
	return &p, nil
}

// Delete は指定IDのPersonを削除する。
func (s *PersonService) Delete(ctx context.Context, id int64) error {
	resp, err := s.http.R().SetContext(ctx).Delete(fmt.Sprintf("/persons/%d", id))
	if err != nil {
		return transportError()
	}
	if resp.IsError() {
		return apiError(resp)
	}
	return nil
}
