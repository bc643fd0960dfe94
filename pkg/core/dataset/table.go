package dataset

import (
	"fmt"
	"time"

	"github.com/ruslano69/surveydash/pkg/core/schema"
	"github.com/zeebo/xxh3"
)

// Row - ответы одного респондента в порядке колонок схемы
type Row []schema.Value

// Raw возвращает исходные ответы строки
func (r Row) Raw() []string {
	out := make([]string, len(r))
	for i, v := range r {
		out[i] = v.Raw
	}
	return out
}

// Table - неизменяемая таблица опроса.
// Создается один раз при загрузке и разделяется между запросами только на чтение.
type Table struct {
	name        string
	source      string
	schema      *schema.Schema
	rows        []Row
	fingerprint string
	loadedAt    time.Time
}

// NewTable строит таблицу из сырых записей. Каждая запись должна содержать
// ровно столько ячеек, сколько колонок в схеме.
func NewTable(name, source string, s *schema.Schema, records [][]string) (*Table, error) {
	if s == nil || s.Len() == 0 {
		return nil, fmt.Errorf("%w: table %q has no columns", ErrDataUnavailable, name)
	}

	t := &Table{
		name:     name,
		source:   source,
		schema:   s,
		rows:     make([]Row, len(records)),
		loadedAt: time.Now(),
	}

	for i, rec := range records {
		if len(rec) != s.Len() {
			return nil, fmt.Errorf("%w: row %d has %d cells, expected %d",
				ErrDataUnavailable, i+1, len(rec), s.Len())
		}
		row := make(Row, len(rec))
		for j, raw := range rec {
			row[j] = schema.ParseValue(raw, s.Column(j).Kind)
		}
		t.rows[i] = row
	}

	t.fingerprint = fingerprint(s, t.rows)
	return t, nil
}

// fingerprint - xxh3 по заголовку и ответам
func fingerprint(s *schema.Schema, rows []Row) string {
	h := xxh3.New()
	for _, c := range s.Columns() {
		h.WriteString(c.Name)
		h.WriteString("\x1f")
		h.WriteString(string(c.Kind))
		h.WriteString("\x1e")
	}
	for _, row := range rows {
		for _, v := range row {
			h.WriteString(v.Raw)
			h.WriteString("\x1f")
		}
		h.WriteString("\x1e")
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// Name возвращает имя набора данных
func (t *Table) Name() string { return t.name }

// Source возвращает описание источника
func (t *Table) Source() string { return t.source }

// Schema возвращает схему таблицы
func (t *Table) Schema() *schema.Schema { return t.schema }

// Len возвращает количество респондентов
func (t *Table) Len() int { return len(t.rows) }

// Width возвращает количество вопросов
func (t *Table) Width() int { return t.schema.Len() }

// Fingerprint возвращает xxh3-отпечаток содержимого (hex)
func (t *Table) Fingerprint() string { return t.fingerprint }

// LoadedAt возвращает время загрузки
func (t *Table) LoadedAt() time.Time { return t.loadedAt }

// Row возвращает копию строки по индексу
func (t *Table) Row(index int) (Row, error) {
	if index < 0 || index >= len(t.rows) {
		return nil, &IndexError{Index: index, Count: len(t.rows)}
	}
	return t.rows[index].clone(), nil
}

func (r Row) clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Column ищет вопрос по имени
func (t *Table) Column(question string) (schema.Column, error) {
	col, ok := t.schema.Lookup(question)
	if !ok {
		return schema.Column{}, UnknownQuestion(question)
	}
	return col, nil
}

// value возвращает ячейку без проверки границ
func (t *Table) value(row, col int) schema.Value {
	return t.rows[row][col]
}
