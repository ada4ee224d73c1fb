package person

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/personbook/internal/model"
)

// フィールドごとの最大長。
const (
	maxNameLen       = 255
	maxEmailLen      = 255
	maxAgeLen        = 3
	maxProfessionLen = 255
	maxAddressLen    = 1000
	maxPhoneLen      = 20
	maxPhotoURLLen   = 500
)

// attrName はフィールドキーをメッセージ用の表示名に変換する。
// 例: "first_name" -> "first name"
func attrName(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

func requiredMessage(field string) string {
	return fmt.Sprintf("The %s field is required.", attrName(field))
}

func maxLenMessage(field string, max int) string {
	return fmt.Sprintf("The %s field must not be greater than %d characters.", attrName(field), max)
}

func invalidEmailMessage() string {
	return "The email field must be a valid email address."
}

func emailTakenMessage() string {
	return "The email has already been taken."
}

func invalidDateMessage(field string) string {
	return fmt.Sprintf("The %s field must be a valid date.", attrName(field))
}

// checkRequired は値が存在し空でないことを検証する。
func checkRequired(ve *model.ValidationError, field string, value *string) {
	if value == nil || strings.TrimSpace(*value) == "" {
		ve.Add(field, requiredMessage(field))
	}
}

// checkMaxLen は値が存在する場合のみ最大長を検証する。
func checkMaxLen(ve *model.ValidationError, field string, value *string, max int) {
	if value != nil && utf8.RuneCountInString(*value) > max {
		ve.Add(field, maxLenMessage(field, max))
	}
}

// checkEmail は値が存在する場合のみメールアドレス形式を検証する。
func checkEmail(ve *model.ValidationError, value *string) {
	if value == nil || *value == "" {
		return
	}
	addr, err := mail.ParseAddress(*value)
	if err != nil || addr.Address != *value {
		ve.Add("email", invalidEmailMessage())
	}
}

// checkDate は値が存在する場合のみ日付として解析できることを検証し、
// 解析結果を返す。空文字列はnull扱いでnilを返す。
func checkDate(ve *model.ValidationError, field string, value *string) *model.Date {
	if value == nil || *value == "" {
		return nil
	}
	d, err := model.ParseDate(*value)
	if err != nil {
		ve.Add(field, invalidDateMessage(field))
		return nil
	}
	return &d
}

// checkOptionalLengths はnullable文字列フィールド群の最大長を検証する。
// null明示（Value==nil）は長さ検証の対象外。
func checkOptionalLengths(ve *model.ValidationError, fields model.PersonFields) {
	checkMaxLen(ve, "age", fields.Age.Value, maxAgeLen)
	checkMaxLen(ve, "profession", fields.Profession.Value, maxProfessionLen)
	checkMaxLen(ve, "address", fields.Address.Value, maxAddressLen)
	checkMaxLen(ve, "phone", fields.Phone.Value, maxPhoneLen)
	checkMaxLen(ve, "photo_url", fields.PhotoURL.Value, maxPhotoURLLen)
}

// validateCreate は作成リクエストを検証する。
// first_name / last_name / email は必須、その他はnullable。
// 解析済みのbirth_dateを返す（未指定・不正時はnil）。
func validateCreate(fields model.PersonFields) (*model.Date, *model.ValidationError) {
	ve := model.NewValidationError()

	checkRequired(ve, "first_name", fields.FirstName)
	checkMaxLen(ve, "first_name", fields.FirstName, maxNameLen)

	checkRequired(ve, "last_name", fields.LastName)
	checkMaxLen(ve, "last_name", fields.LastName, maxNameLen)

	checkRequired(ve, "email", fields.Email)
	checkEmail(ve, fields.Email)
	checkMaxLen(ve, "email", fields.Email, maxEmailLen)

	birthDate := checkDate(ve, "birth_date", fields.BirthDate.Value)
	checkOptionalLengths(ve, fields)

	return birthDate, ve
}

// validateUpdate は更新リクエストを検証する。
// 全フィールドが"sometimes"扱いで、リクエストに含まれるフィールドのみ検証する。
// 解析済みのbirth_dateを返す（未指定・不正時はnil）。
func validateUpdate(fields model.PersonFields) (*model.Date, *model.ValidationError) {
	ve := model.NewValidationError()

	if fields.FirstName != nil {
		if strings.TrimSpace(*fields.FirstName) == "" {
			ve.Add("first_name", requiredMessage("first_name"))
		}
		checkMaxLen(ve, "first_name", fields.FirstName, maxNameLen)
	}

	if fields.LastName != nil {
		if strings.TrimSpace(*fields.LastName) == "" {
			ve.Add("last_name", requiredMessage("last_name"))
		}
		checkMaxLen(ve, "last_name", fields.LastName, maxNameLen)
	}

	if fields.Email != nil {
		if strings.TrimSpace(*fields.Email) == "" {
			ve.Add("email", requiredMessage("email"))
		}
		checkEmail(ve, fields.Email)
		checkMaxLen(ve, "email", fields.Email, maxEmailLen)
	}

	birthDate := checkDate(ve, "birth_date", fields.BirthDate.Value)
	checkOptionalLengths(ve, fields)

	return birthDate, ve
}
