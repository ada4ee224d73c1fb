package model

import "encoding/json"

// OptionalString はリクエストボディで「キーが含まれたか」と「値がnullか」を
// 区別して保持するnullable文字列フィールド。
// *stringだけではJSONのnullとキー省略を区別できず、更新でフィールドを
// nullに戻す操作が表現できないため、部分更新のnullableフィールドはこの型で受ける。
// ゼロ値は「リクエストに含まれなかった」を意味し、omitzeroタグで送信時に省略される。
type OptionalString struct {
	Present bool
	Value   *string
}

// OptString は値を持つOptionalStringを返す。
func OptString(s string) OptionalString {
	return OptionalString{Present: true, Value: &s}
}

// NullString は明示的なnullを表すOptionalStringを返す。
func NullString() OptionalString {
	return OptionalString{Present: true}
}

// IsZero はencoding/jsonのomitzero判定に使われる。
func (o OptionalString) IsZero() bool {
	return !o.Present
}

// MarshalJSON は値をそのまま（nullはnullとして）出力する。
func (o OptionalString) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Value)
}

// UnmarshalJSON はキーが存在した事実を記録しつつ値を読み込む。
// キーが省略された場合はUnmarshalJSON自体が呼ばれないため、Presentはfalseのまま残る。
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}
