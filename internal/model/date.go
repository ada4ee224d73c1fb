package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// dateLayout は日付のワイヤフォーマット（ISO 8601のカレンダー日付）。
const dateLayout = "2006-01-02"

// Date は時刻成分を持たないカレンダー日付を表す。
// JSONでは "1990-03-15" 形式で送受信する。互換性のため
// RFC 3339のタイムスタンプ形式の入力も受理し、日付部分のみを保持する。
type Date struct {
	time.Time
}

// NewDate は年月日からDateを生成する。
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate は "2006-01-02" またはRFC 3339形式の文字列からDateを生成する。
func ParseDate(s string) (Date, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{Time: t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return NewDate(t.Year(), t.Month(), t.Day()), nil
}

// String は "2006-01-02" 形式の文字列を返す。
func (d Date) String() string {
	return d.Format(dateLayout)
}

// MarshalJSON はJSON文字列 "2006-01-02" として出力する。
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON はJSON文字列からDateを復元する。nullは何もしない。
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value はdatabase/sql/driver.Valuerを実装する。
func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

// Scan はdatabase/sql.Scannerを実装する。
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v.Year(), v.Month(), v.Day())
		return nil
	case []byte:
		parsed, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case nil:
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}
