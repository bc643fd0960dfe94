package schema

import (
	"fmt"
	"strings"
)

// Kind - вид значений в колонке опроса
type Kind string

// Поддерживаемые виды колонок
const (
	// KindText - свободный текстовый ответ
	KindText Kind = "text"

	// KindCategorical - ответ из ограниченного набора вариантов
	KindCategorical Kind = "categorical"

	// KindNumeric - числовой ответ (возраст, доход, количество доставок)
	KindNumeric Kind = "numeric"
)

// Unanswered - метка для пустых ответов при фильтрации и группировке
const Unanswered = "(unanswered)"

// ParseKind разбирает строковое представление вида колонки.
// Принимает SQL-синонимы (INTEGER, REAL, TEXT ...).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "text", "string", "varchar":
		return KindText, nil
	case "categorical", "category", "enum", "":
		return KindCategorical, nil
	case "numeric", "number", "integer", "int", "real", "float", "double", "decimal":
		return KindNumeric, nil
	default:
		return "", fmt.Errorf("unknown column kind %q (text/categorical/numeric)", s)
	}
}

// IsValid проверяет валидность вида колонки
func (k Kind) IsValid() bool {
	switch k {
	case KindText, KindCategorical, KindNumeric:
		return true
	default:
		return false
	}
}

// Column - описание одного вопроса анкеты
type Column struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Kind  Kind   `json:"kind"`
}

// Schema - упорядоченный набор колонок таблицы опроса
type Schema struct {
	columns []Column
	byName  map[string]int
}

// New создает схему из колонок. Индексы колонок выставляются по порядку.
func New(columns []Column) (*Schema, error) {
	s := &Schema{
		columns: make([]Column, len(columns)),
		byName:  make(map[string]int, len(columns)),
	}

	for i, col := range columns {
		if col.Name == "" {
			return nil, fmt.Errorf("column at index %d has empty name", i)
		}
		if _, dup := s.byName[col.Name]; dup {
			return nil, fmt.Errorf("duplicate column name: %s", col.Name)
		}
		if col.Kind == "" {
			col.Kind = KindCategorical
		}
		if !col.Kind.IsValid() {
			return nil, fmt.Errorf("invalid kind '%s' for column '%s'", col.Kind, col.Name)
		}
		col.Index = i
		s.columns[i] = col
		s.byName[col.Name] = i
	}

	return s, nil
}

// Len возвращает количество колонок
func (s *Schema) Len() int {
	return len(s.columns)
}

// Columns возвращает копию списка колонок
func (s *Schema) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// Names возвращает имена колонок в порядке таблицы
func (s *Schema) Names() []string {
	names := make([]string, len(s.columns))
	for i, c := range s.columns {
		names[i] = c.Name
	}
	return names
}

// Column возвращает колонку по индексу
func (s *Schema) Column(i int) Column {
	return s.columns[i]
}

// Lookup ищет колонку по точному имени
func (s *Schema) Lookup(name string) (Column, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

// Has проверяет наличие колонки
func (s *Schema) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}
