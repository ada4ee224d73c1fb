// Package event はデータ変更のプロセス内pub/sub通知を提供する。
//
// Broadcasterはグローバル変数ではなく、構築時に各コンポーネントへ
// 注入して使用する。通知はファイアアンドフォーゲットであり、
// publish時点で購読していないビューには届かない（ビューは自身の
// 起動時に最新データを取得するため許容される）。
package event

import (
	"sync"

	"github.com/google/uuid"
)

// Action はデータ変更の種別を表す。
type Action string

const (
	// ActionCreated はレコード作成を示す。
	ActionCreated Action = "created"
	// ActionUpdated はレコード更新を示す。
	ActionUpdated Action = "updated"
	// ActionDeleted はレコード削除を示す。
	ActionDeleted Action = "deleted"
)

// Change はデータ変更通知のペイロードを表す。
// 受信側は内容に関わらずフルリストの再取得を行う（差分適用はしない）。
type Change struct {
	Entity string `json:"entity"`
	Action Action `json:"action"`
	ID     int64  `json:"id"`
}

// Subscription はBroadcasterへの購読を表す。
type Subscription struct {
	// C は変更通知を受信するチャネル。Unsubscribeでクローズされる。
	C <-chan Change

	id string
	ch chan Change
}

// Broadcaster はプロセス内の変更通知を購読者全員に配信する。
// 配信はノンブロッキングで、受信が追いついていない購読者への
// 通知は破棄される（再送なし）。
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[string]chan Change
}

// NewBroadcaster はBroadcasterを生成する。
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[string]chan Change),
	}
}

// Subscribe は新しい購読を登録して返す。
func (b *Broadcaster) Subscribe() *Subscription {
	ch := make(chan Change, 1)
	sub := &Subscription{
		C:  ch,
		id: uuid.NewString(),
		ch: ch,
	}

	b.mu.Lock()
	b.subs[sub.id] = ch
	b.mu.Unlock()

	return sub
}

// Unsubscribe は購読を解除し、チャネルをクローズする。
// 既に解除済みの購読に対しては何もしない。
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[sub.id]; ok {
		delete(b.subs, sub.id)
		close(ch)
	}
}

// Publish は変更を全購読者に配信する。
// 受信バッファが埋まっている購読者への通知は破棄される。
func (b *Broadcaster) Publish(change Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- change:
		default:
			// 購読者が受信していない場合は破棄（fire-and-forget）
		}
	}
}

// SubscriberCount は現在の購読者数を返す。テストおよびメトリクス用。
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
