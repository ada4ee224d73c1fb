// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/personbook/internal/model"
)

// PersonRepository はPersonデータの永続化インターフェース。
type PersonRepository interface {
	// List は全Personをid昇順で返す。
	List(ctx context.Context) ([]*model.Person, error)

	// FindByID は指定IDのPersonを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Person, error)

	// Create はPersonを作成する。
	// IDとcreated_at/updated_atはデータベースが採番し、pに書き戻される。
	Create(ctx context.Context, p *model.Person) error

	// Update はPersonの全フィールドを上書き更新する。
	// updated_atはデータベース側でnow()に更新され、pに書き戻される。
	Update(ctx context.Context, p *model.Person) error

	// Delete は指定IDのPersonを削除する。
	Delete(ctx context.Context, id int64) error

	// EmailExists は指定emailを持つPersonが存在するかを返す。
	// excludeIDが0以外の場合、そのIDの行は検査対象から除外する（更新時の自己除外）。
	EmailExists(ctx context.Context, email string, excludeID int64) (bool, error)
}
