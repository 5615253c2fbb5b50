// Package model は、アプリケーションのデータモデル定義を提供します。
package model

import (
	"math"
	"strconv"
	"strings"
)

// レコードはパイプ区切りの1行で表現されます。
const (
	fieldSeparator     = "|"
	materialFieldCount = 3
	projectFieldCount  = 8
)

// splitRecord はレコードをフィールドに分割し、フィールド数を検証します。
func splitRecord(line string, want int) ([]string, error) {
	fields := strings.Split(line, fieldSeparator)
	if len(fields) != want {
		return nil, newValidationErrorf("invalid record format: expected %d fields, got %d", want, len(fields))
	}
	return fields, nil
}

// parseNumber は数値フィールドを解析します。
func parseNumber(field, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, newValidationErrorf("invalid %s: %q is not a number", field, s)
	}
	if err := checkFinite(field, v); err != nil {
		return 0, err
	}
	return v, nil
}

// formatFixed は小数点以下prec桁の固定小数表記を返します。
func formatFixed(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func checkFinite(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return newValidationErrorf("%s must be a finite number", field)
	}
	return nil
}

// validateName はマテリアル名・プロジェクト名を検証します。
// 区切り文字と改行はレコード形式を壊すため禁止します。
func validateName(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return newValidationErrorf("%s name is required", kind)
	}
	if strings.ContainsAny(name, fieldSeparator+"\r\n") {
		return newValidationErrorf("%s name cannot contain '|' or line breaks", kind)
	}
	return nil
}
