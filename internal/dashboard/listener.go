package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

// reconnectInterval はWebSocket切断後の再接続間隔。
const reconnectInterval = 5 * time.Second

// Listen はサーバーの変更通知WebSocketに接続し、メッセージを受信するたびに
// notifyを呼ぶ。切断時は再接続を試み続ける。ctxのキャンセルで終了する。
// ペイロードの内容は使用しない（受信自体が再取得のシグナル）。
func Listen(ctx context.Context, wsURL string, notify func()) {
	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			slog.Warn("events connection failed",
				slog.String("url", wsURL),
				slog.String("error", err.Error()),
			)
			select {
			case <-time.After(reconnectInterval):
				continue
			case <-ctx.Done():
				return
			}
		}

		slog.Info("events connection established", slog.String("url", wsURL))

		// ctxキャンセル時に読み取りループを解放する
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				conn.Close()
			case <-done:
			}
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
			notify()
		}

		close(done)
		conn.Close()
	}
}
