package filter

import (
	"github.com/ruslano69/surveydash/pkg/core/dataset"
)

// Option - вариант ответа и число респондентов, выбравших его
type Option struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Options возвращает различные ответы на вопрос в порядке первого появления.
// Пустые ответы собираются в вариант (unanswered).
func Options(v *dataset.View, question string) ([]Option, error) {
	col, err := v.Table().Column(question)
	if err != nil {
		return nil, err
	}

	pos := make(map[string]int)
	var out []Option
	for i := 0; i < v.Len(); i++ {
		key := v.Value(i, col.Index).Key()
		if p, ok := pos[key]; ok {
			out[p].Count++
			continue
		}
		pos[key] = len(out)
		out = append(out, Option{Value: key, Count: 1})
	}
	return out, nil
}
