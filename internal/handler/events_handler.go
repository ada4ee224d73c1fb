package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hitoshi/personbook/internal/event"
)

// pingInterval はWebSocket接続維持のためのping送信間隔。
const pingInterval = 30 * time.Second

// writeTimeout はWebSocketへの1メッセージ書き込みの期限。
const writeTimeout = 10 * time.Second

// EventsHandler は変更通知をWebSocketで配信するハンドラー。
// 別タブ・別クライアントのビューがデータ変更を検知して再取得するための
// シグナルチャネルであり、ペイロードは変更の種別とIDのみ（データ本体は運ばない）。
type EventsHandler struct {
	broadcaster *event.Broadcaster
	upgrader    websocket.Upgrader
}

// NewEventsHandler はEventsHandlerを生成する。
// allowedOriginはCORS設定と同じオリジンを指定する。空文字列の場合は
// gorilla/websocketのデフォルト（same-originのみ許可）を使用する。
func NewEventsHandler(broadcaster *event.Broadcaster, allowedOrigin string) *EventsHandler {
	h := &EventsHandler{broadcaster: broadcaster}

	if allowedOrigin != "" {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || origin == allowedOrigin
		}
	}

	return h
}

// Serve はWebSocket接続を確立し、変更通知を購読してクライアントに転送する。
// GET /api/events
func (h *EventsHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgradeが失敗した場合はgorilla/websocketがレスポンスを書き込み済み
		slog.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	sub := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(sub)

	slog.Info("events subscriber connected", slog.String("remote", r.RemoteAddr))

	// クライアントからの読み取りは切断検知のためだけに行う
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case change, ok := <-sub.C:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(change); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
