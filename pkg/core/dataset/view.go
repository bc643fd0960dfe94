package dataset

import (
	"fmt"

	"github.com/ruslano69/surveydash/pkg/core/schema"
)

// View - отфильтрованное представление таблицы: упорядоченный по возрастанию
// список индексов строк. Таблицу не изменяет.
type View struct {
	table   *Table
	indices []int
}

// All возвращает представление со всеми строками таблицы
func All(t *Table) *View {
	indices := make([]int, t.Len())
	for i := range indices {
		indices[i] = i
	}
	return &View{table: t, indices: indices}
}

// NewView создает представление из индексов. Индексы должны строго
// возрастать и лежать в пределах таблицы.
func NewView(t *Table, indices []int) (*View, error) {
	prev := -1
	for _, idx := range indices {
		if idx < 0 || idx >= t.Len() {
			return nil, &IndexError{Index: idx, Count: t.Len()}
		}
		if idx <= prev {
			return nil, fmt.Errorf("view indices must be strictly ascending: %d after %d", idx, prev)
		}
		prev = idx
	}

	own := make([]int, len(indices))
	copy(own, indices)
	return &View{table: t, indices: own}, nil
}

// Select возвращает новое представление из строк, для которых keep вернул true.
// Порядок строк сохраняется. keep получает копию строки.
func (v *View) Select(keep func(index int, row Row) bool) *View {
	out := make([]int, 0, len(v.indices))
	for _, idx := range v.indices {
		if keep(idx, v.table.rows[idx].clone()) {
			out = append(out, idx)
		}
	}
	return &View{table: v.table, indices: out}
}

// Table возвращает исходную таблицу
func (v *View) Table() *Table { return v.table }

// Len возвращает количество строк в представлении
func (v *View) Len() int { return len(v.indices) }

// Empty - в представлении нет строк
func (v *View) Empty() bool { return len(v.indices) == 0 }

// Indices возвращает копию индексов строк
func (v *View) Indices() []int {
	out := make([]int, len(v.indices))
	copy(out, v.indices)
	return out
}

// Index возвращает индекс строки таблицы для позиции в представлении
func (v *View) Index(pos int) int { return v.indices[pos] }

// Value возвращает ячейку по позиции в представлении и номеру колонки
func (v *View) Value(pos, col int) schema.Value {
	return v.table.value(v.indices[pos], col)
}

// Row возвращает копию строки по позиции в представлении
func (v *View) Row(pos int) Row {
	src := v.table.rows[v.indices[pos]]
	row := make(Row, len(src))
	copy(row, src)
	return row
}
