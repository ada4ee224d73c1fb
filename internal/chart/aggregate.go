// Package chart はPersonリストからグラフ描画用のデータセットを導出する。
//
// 3種類の集計（職業別・年齢帯別・月別）を提供する。いずれも
// 現在のリストに対する単一パスの純粋関数であり、差分計算は行わない。
// リストが変わるたびに全データセットを作り直す。
package chart

import (
	"strconv"

	"github.com/hitoshi/personbook/internal/model"
)

// Dataset はグラフ1枚分のラベルと値の組を表す。
type Dataset struct {
	Labels []string `json:"labels"`
	Data   []int    `json:"data"`
}

// unspecifiedProfession は職業未入力のPersonを集約するラベル。
const unspecifiedProfession = "Sin especificar"

// professionLabels は既知の職業値（英語）から表示言語（スペイン語）への
// 固定の有限マッピング。未知の値は恒等写像として素通しする。
// 実行時にこのテーブルを変更してはならない。
var professionLabels = map[string]string{
	"Engineer":      "Ingeniero",
	"Doctor":        "Médico",
	"Lawyer":        "Abogado",
	"Teacher":       "Profesor",
	"Accountant":    "Contador",
	"Architect":     "Arquitecto",
	"Nurse":         "Enfermero",
	"Designer":      "Diseñador",
	"Programmer":    "Programador",
	"Administrator": "Administrador",
	"Salesperson":   "Vendedor",
	"Student":       "Estudiante",
	"Other":         "Otro",
}

// ageBucketLabels は年齢帯の固定パーティション。
var ageBucketLabels = []string{"0-18", "19-35", "36-60", "60+"}

// monthLabels は月別グラフの表示ラベル（1月〜12月）。
var monthLabels = []string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// TranslateProfession は職業値を表示ラベルに変換する。
// 既知の値は翻訳テーブルで変換し、未知の値はそのまま返す。
// 空値はunspecifiedラベルに集約する。
func TranslateProfession(profession *string) string {
	if profession == nil || *profession == "" {
		return unspecifiedProfession
	}
	if label, ok := professionLabels[*profession]; ok {
		return label
	}
	return *profession
}

// ProfessionCounts は職業別の人数を集計する。
// ラベルは初出順に並ぶ。
func ProfessionCounts(persons []*model.Person) Dataset {
	counts := make(map[string]int)
	var order []string

	for _, p := range persons {
		label := TranslateProfession(p.Profession)
		if _, seen := counts[label]; !seen {
			order = append(order, label)
		}
		counts[label]++
	}

	ds := Dataset{Labels: order, Data: make([]int, len(order))}
	for i, label := range order {
		ds.Data[i] = counts[label]
	}
	return ds
}

// AgeBuckets は固定の年齢帯 {0-18, 19-35, 36-60, 60+} で人数を集計する。
// ageフィールドは整数として解析し、欠損・非数値は0として最下位の帯に
// 入れる（特別扱いではなく既定のポリシー）。
func AgeBuckets(persons []*model.Person) Dataset {
	data := make([]int, len(ageBucketLabels))

	for _, p := range persons {
		age := 0
		if p.Age != nil {
			if n, err := strconv.Atoi(*p.Age); err == nil {
				age = n
			}
		}

		switch {
		case age <= 18:
			data[0]++
		case age <= 35:
			data[1]++
		case age <= 60:
			data[2]++
		default:
			data[3]++
		}
	}

	return Dataset{Labels: append([]string(nil), ageBucketLabels...), Data: data}
}

// MonthlyCounts は月別（1月〜12月の12バケット）の人数を集計する。
// 誕生日がある場合はその月を使用する。誕生日がない場合は id mod 12 を
// バケットインデックスとして使用する。このフォールバックは実際の日付
// シグナルではなく意図的に任意の分布であり、仕様としてそのまま維持する。
// 誕生日もIDもないPersonはどのバケットにも数えない。
func MonthlyCounts(persons []*model.Person) Dataset {
	data := make([]int, 12)

	for _, p := range persons {
		switch {
		case p.BirthDate != nil:
			data[int(p.BirthDate.Month())-1]++
		case p.ID != 0:
			data[p.ID%12]++
		}
	}

	return Dataset{Labels: append([]string(nil), monthLabels...), Data: data}
}
