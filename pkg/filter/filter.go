// Package filter отбирает респондентов по ответам на вопросы анкеты.
//
// Набор фильтров - это отображение вопрос -> допустимые ответы.
// Внутри вопроса ответы объединяются по ИЛИ, между вопросами по И.
// Пустой список допустимых ответов не ограничивает выборку.
package filter

import (
	"sort"
	"strings"

	"github.com/ruslano69/surveydash/pkg/core/dataset"
	"github.com/ruslano69/surveydash/pkg/core/schema"
)

// FilterSet - набор ограничений по вопросам
type FilterSet map[string][]string

// Questions возвращает вопросы набора в отсортированном порядке
func (fs FilterSet) Questions() []string {
	names := make([]string, 0, len(fs))
	for q := range fs {
		names = append(names, q)
	}
	sort.Strings(names)
	return names
}

// Normalize возвращает копию набора без пустых ограничений,
// с обрезанными пробелами и без повторов значений
func (fs FilterSet) Normalize() FilterSet {
	out := make(FilterSet, len(fs))
	for q, values := range fs {
		seen := make(map[string]bool, len(values))
		var kept []string
		for _, v := range values {
			v = strings.TrimSpace(v)
			if seen[v] {
				continue
			}
			seen[v] = true
			kept = append(kept, v)
		}
		if len(kept) > 0 {
			out[strings.TrimSpace(q)] = kept
		}
	}
	return out
}

// Validate проверяет, что все вопросы набора есть в таблице,
// включая вопросы с пустым ограничением, которые Normalize отбрасывает
func (fs FilterSet) Validate(t *dataset.Table) error {
	for _, q := range fs.Questions() {
		if _, err := t.Column(strings.TrimSpace(q)); err != nil {
			return err
		}
	}
	return nil
}

// Active - количество вопросов с непустым ограничением
func (fs FilterSet) Active() int {
	n := 0
	for _, values := range fs {
		if len(values) > 0 {
			n++
		}
	}
	return n
}

// Apply применяет набор фильтров ко всей таблице.
// Таблица не изменяется; порядок строк сохраняется.
func Apply(t *dataset.Table, fs FilterSet) (*dataset.View, error) {
	return Narrow(dataset.All(t), fs)
}

// Narrow применяет набор фильтров к уже отфильтрованному представлению
func Narrow(v *dataset.View, fs FilterSet) (*dataset.View, error) {
	constraints, err := compile(v.Table(), fs)
	if err != nil {
		return nil, err
	}

	if len(constraints) == 0 {
		return v.Select(func(int, dataset.Row) bool { return true }), nil
	}

	return v.Select(func(_ int, row dataset.Row) bool {
		for _, c := range constraints {
			if !c.matches(row[c.col]) {
				return false
			}
		}
		return true
	}), nil
}

// constraint - скомпилированное ограничение по одному вопросу
type constraint struct {
	col        int
	numeric    bool
	values     map[string]bool
	numbers    []float64
	unanswered bool
}

// compile проверяет вопросы и готовит ограничения.
// Вопросы проверяются в отсортированном порядке, чтобы ошибка была детерминированной.
func compile(t *dataset.Table, fs FilterSet) ([]constraint, error) {
	var out []constraint

	for _, q := range fs.Questions() {
		col, err := t.Column(q)
		if err != nil {
			return nil, err
		}

		accepted := fs[q]
		if len(accepted) == 0 {
			continue
		}

		c := constraint{
			col:     col.Index,
			numeric: col.Kind == schema.KindNumeric,
			values:  make(map[string]bool, len(accepted)),
		}
		for _, a := range accepted {
			a = strings.TrimSpace(a)
			if a == schema.Unanswered {
				c.unanswered = true
				continue
			}
			c.values[a] = true
			if c.numeric {
				if f, ok := schema.ParseNumber(a); ok {
					c.numbers = append(c.numbers, f)
				}
			}
		}
		out = append(out, c)
	}

	return out, nil
}

// matches проверяет принадлежность ответа множеству допустимых
func (c constraint) matches(v schema.Value) bool {
	if v.IsBlank() {
		return c.unanswered
	}
	if c.values[v.Text()] {
		return true
	}
	if c.numeric && v.HasNum {
		for _, f := range c.numbers {
			if f == v.Num {
				return true
			}
		}
	}
	return false
}
