// Package model はドメインモデルを定義する。
package model

import "time"

// Person は登録された個人のプロフィールを表す。
// IDは作成時にデータベースが採番し、以降変更されない。
// emailは全Person間で一意（作成時・更新時の両方で検証される）。
// ageは誕生日から導出されない自由入力の文字列であることに注意。
// サーバーはageとbirth_dateの整合性を検証しない（上流仕様のまま保存する）。
type Person struct {
	ID         int64   `json:"id"`
	FirstName  string  `json:"first_name"`
	LastName   string  `json:"last_name"`
	Email      string  `json:"email"`
	BirthDate  *Date   `json:"birth_date"`
	Age        *string `json:"age"`
	Profession *string `json:"profession"`
	Address    *string `json:"address"`
	Phone      *string `json:"phone"`
	PhotoURL   *string `json:"photo_url"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PersonFields はPersonの作成・更新リクエストで受け取るフィールド集合を表す。
// 必須フィールドはポインタで、nilは「リクエストに含まれなかった」ことを意味する。
// nullableフィールドはOptionalStringで受け、キー省略（変更しない）と
// 明示的なnull（nullに戻す）を区別する。
// BirthDateは検証層で日付として解析するため、ここでは生の文字列として受け取る。
type PersonFields struct {
	FirstName  *string        `json:"first_name,omitempty"`
	LastName   *string        `json:"last_name,omitempty"`
	Email      *string        `json:"email,omitempty"`
	BirthDate  OptionalString `json:"birth_date,omitzero"`
	Age        OptionalString `json:"age,omitzero"`
	Profession OptionalString `json:"profession,omitzero"`
	Address    OptionalString `json:"address,omitzero"`
	Phone      OptionalString `json:"phone,omitzero"`
	PhotoURL   OptionalString `json:"photo_url,omitzero"`
}
