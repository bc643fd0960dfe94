package schema

import (
	"math"
	"strconv"
	"strings"
)

// Value - типизированный ответ одной ячейки
//
// Raw хранит ответ байт в байт, как он пришел из источника, и используется
// при просмотре и выгрузке. Фильтрация и группировка работают с Text().
// Num заполнен только для числовых колонок, если ответ удалось разобрать
// как конечное число.
type Value struct {
	Kind   Kind    `json:"kind"`
	Raw    string  `json:"raw"`
	Num    float64 `json:"num,omitempty"`
	HasNum bool    `json:"has_num,omitempty"`
}

// IsBlank - пустой ответ (респондент не ответил)
func (v Value) IsBlank() bool {
	return v.Text() == ""
}

// Text - ответ без пробелов по краям
func (v Value) Text() string {
	return strings.TrimSpace(v.Raw)
}

// Key возвращает ключ для фильтрации и группировки.
// Пустой ответ становится отдельной категорией Unanswered.
func (v Value) Key() string {
	if v.IsBlank() {
		return Unanswered
	}
	return v.Text()
}

// Float возвращает числовое значение и признак его наличия
func (v Value) Float() (float64, bool) {
	return v.Num, v.HasNum
}

// ParseValue разбирает сырой ответ согласно виду колонки.
//
// Числовые ответы, которые не удалось разобрать, не считаются ошибкой:
// Raw сохраняется, HasNum = false (такие ответы не участвуют в среднем).
func ParseValue(raw string, kind Kind) Value {
	v := Value{Kind: kind, Raw: raw}

	if kind != KindNumeric || v.IsBlank() {
		return v
	}

	if f, ok := ParseNumber(raw); ok {
		v.Num = f
		v.HasNum = true
	}
	return v
}

// ParseNumber разбирает число, допуская разделители тысяч и знак процента
// ("12,500", "85%", " 3.5 "). NaN и бесконечности считаются пропуском.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, finite(f)
	}

	cleaned := strings.TrimSuffix(s, "%")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if cleaned == "" {
		return 0, false
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return f, finite(f)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// FormatNumber форматирует число без лишних нулей (30 → "30", 2.5 → "2.5")
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
