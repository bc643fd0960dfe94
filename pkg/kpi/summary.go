// Package kpi считает сводные показатели по отфильтрованной выборке.
package kpi

import (
	"sort"
	"strings"

	"github.com/ruslano69/surveydash/pkg/core/dataset"
	"github.com/ruslano69/surveydash/pkg/core/schema"
)

// Statistic - вид агрегата
type Statistic string

const (
	// StatCount - число респондентов в группе
	StatCount Statistic = "count"

	// StatPercentage - доля группы от размера выборки, в процентах
	StatPercentage Statistic = "percentage"

	// StatMean - среднее числового ответа по группе
	StatMean Statistic = "mean"
)

// Spec - запрос агрегации
type Spec struct {
	GroupBy   []string  `json:"group_by" yaml:"group_by"`
	Statistic Statistic `json:"statistic" yaml:"statistic"`
	Measure   string    `json:"measure,omitempty" yaml:"measure"`
	Limit     int       `json:"limit,omitempty" yaml:"limit"`
}

// Group - одна группа сводки
type Group struct {
	Keys       []string `json:"keys"`
	Label      string   `json:"label"`
	Count      int      `json:"count"`
	Percentage float64  `json:"percentage"`
	Mean       *float64 `json:"mean,omitempty"`
	MeanCount  int      `json:"mean_count,omitempty"`
}

// Summary - результат агрегации. Пересчитывается на каждый запрос.
type Summary struct {
	Statistic Statistic `json:"statistic"`
	GroupBy   []string  `json:"group_by"`
	Measure   string    `json:"measure,omitempty"`
	Total     int       `json:"total"`
	NoData    bool      `json:"no_data"`
	Groups    []Group   `json:"groups"`
	Omitted   int       `json:"omitted,omitempty"`
	Mean      *float64  `json:"mean,omitempty"`
	MeanCount int       `json:"mean_count,omitempty"`
}

// Summarize группирует выборку и считает показатели.
//
// Группы упорядочены по убыванию числа респондентов, при равенстве - по
// порядку первого появления. Пустые ответы образуют группу (unanswered).
// Для пустой выборки возвращается NoData без групп.
func Summarize(v *dataset.View, spec Spec) (*Summary, error) {
	plan, err := prepare(v.Table(), spec)
	if err != nil {
		return nil, err
	}

	s := &Summary{
		Statistic: plan.stat,
		GroupBy:   append([]string(nil), spec.GroupBy...),
		Measure:   plan.measureName,
		Total:     v.Len(),
		Groups:    []Group{},
	}

	if v.Empty() {
		s.NoData = true
		return s, nil
	}

	if plan.stat == StatMean {
		s.Mean, s.MeanCount = mean(v, allPositions(v.Len()), plan.measure)
	}

	if len(plan.groupBy) == 0 {
		return s, nil
	}

	groups := group(v, plan.groupBy)
	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].positions) > len(groups[j].positions)
	})

	for _, g := range groups {
		out := Group{
			Keys:       g.keys,
			Label:      strings.Join(g.keys, " / "),
			Count:      len(g.positions),
			Percentage: percent(len(g.positions), v.Len()),
		}
		if plan.stat == StatMean {
			out.Mean, out.MeanCount = mean(v, g.positions, plan.measure)
		}
		s.Groups = append(s.Groups, out)
	}

	if spec.Limit > 0 && len(s.Groups) > spec.Limit {
		s.Omitted = len(s.Groups) - spec.Limit
		s.Groups = s.Groups[:spec.Limit]
	}

	return s, nil
}

// plan - проверенная спецификация
type plan struct {
	stat        Statistic
	groupBy     []int
	measure     int
	measureName string
}

func prepare(t *dataset.Table, spec Spec) (plan, error) {
	p := plan{stat: spec.Statistic, measure: -1}
	if p.stat == "" {
		p.stat = StatCount
	}

	switch p.stat {
	case StatCount, StatPercentage, StatMean:
	default:
		return p, dataset.InvalidSpec(string(spec.Statistic), "unknown statistic (count/percentage/mean)")
	}

	seen := make(map[string]bool, len(spec.GroupBy))
	for _, q := range spec.GroupBy {
		col, ok := t.Schema().Lookup(q)
		if !ok {
			return p, dataset.InvalidSpec(q, "unknown group-by question")
		}
		if seen[q] {
			return p, dataset.InvalidSpec(q, "question grouped twice")
		}
		seen[q] = true
		p.groupBy = append(p.groupBy, col.Index)
	}

	if p.stat != StatMean {
		if spec.Measure != "" {
			if !t.Schema().Has(spec.Measure) {
				return p, dataset.InvalidSpec(spec.Measure, "unknown measure question")
			}
			p.measureName = spec.Measure
		}
		return p, nil
	}

	measure := spec.Measure
	if measure == "" {
		// среднее по единственному числовому вопросу без группировки
		if len(spec.GroupBy) != 1 {
			return p, dataset.InvalidSpec("", "mean needs a numeric measure")
		}
		measure = spec.GroupBy[0]
		p.groupBy = nil
	}

	col, ok := t.Schema().Lookup(measure)
	if !ok {
		return p, dataset.InvalidSpec(measure, "unknown measure question")
	}
	if col.Kind != schema.KindNumeric {
		return p, dataset.InvalidSpec(measure, "mean needs a numeric question, got "+string(col.Kind))
	}
	p.measure = col.Index
	p.measureName = measure
	return p, nil
}

// bucket - группа позиций выборки с одинаковым кортежем ответов
type bucket struct {
	keys      []string
	positions []int
}

// group собирает группы в порядке первого появления
func group(v *dataset.View, cols []int) []*bucket {
	index := make(map[string]*bucket)
	var order []*bucket

	keys := make([]string, len(cols))
	for pos := 0; pos < v.Len(); pos++ {
		for i, c := range cols {
			keys[i] = v.Value(pos, c).Key()
		}
		id := strings.Join(keys, "\x1f")

		b, ok := index[id]
		if !ok {
			b = &bucket{keys: append([]string(nil), keys...)}
			index[id] = b
			order = append(order, b)
		}
		b.positions = append(b.positions, pos)
	}
	return order
}

// mean считает среднее по ответам, которые удалось разобрать как число
func mean(v *dataset.View, positions []int, col int) (*float64, int) {
	var sum float64
	n := 0
	for _, pos := range positions {
		if f, ok := number(v.Value(pos, col)); ok {
			sum += f
			n++
		}
	}
	if n == 0 {
		return nil, 0
	}
	m := sum / float64(n)
	return &m, n
}

// number возвращает числовое значение ответа, разбирая текст при необходимости
func number(val schema.Value) (float64, bool) {
	if val.HasNum {
		return val.Num, true
	}
	if val.IsBlank() {
		return 0, false
	}
	return schema.ParseNumber(val.Raw)
}

func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) * 100 / float64(whole)
}

func allPositions(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
