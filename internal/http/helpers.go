package http

import (
	"errors"
	"html/template"
	"strings"

	"souzoku/internal/core"
)

// templateFuncs are available to every page and partial.
var templateFuncs = template.FuncMap{
	"manYen":      core.FormatManYen,
	"manYenExact": core.FormatDecimal,
}

// sanitizeInput drops control characters (except tab, newline and carriage
// return) and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s))
}

// fieldLabels maps input field names to the labels shown on the form.
var fieldLabels = map[string]string{
	fieldLand:      "土地・家屋の評価額",
	fieldInsurance: "生命保険の評価額",
	fieldSavings:   "貯蓄の評価額",
	fieldStocks:    "株式の評価額",
	fieldChildren:  "子供の人数",
}

// userMessage turns a validation error into the message shown under the form.
func userMessage(err error) string {
	label := ""
	var fe *core.FieldError
	if errors.As(err, &fe) {
		label = fieldLabels[fe.Field]
	}
	var msg string
	switch {
	case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrNegativeAsset):
		msg = "金額は0以上の数値で入力してください"
	case errors.Is(err, core.ErrTooManyChildren):
		msg = "子供の人数が多すぎます"
	case errors.Is(err, core.ErrInvalidChildren):
		msg = "子供の人数は0以上の整数で入力してください"
	default:
		msg = "入力内容が正しくありません"
	}
	if label != "" {
		return label + ": " + msg
	}
	return msg
}
