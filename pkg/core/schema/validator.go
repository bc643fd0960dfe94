package schema

import (
	"fmt"
	"strings"
)

// DefaultNumericKeywords - признаки числовых вопросов в названии колонки.
// Используются когда вид колонки не объявлен явно.
var DefaultNumericKeywords = []string{
	"age", "year", "egp", "days", "hours", "deliveries",
	"income", "salary", "allowance",
}

// Definition - объявление схемы опроса (секция dataset.schema в YAML)
type Definition struct {
	// ExpectedColumns - ожидаемое количество колонок (0 = не проверять)
	ExpectedColumns int `yaml:"expected_columns"`

	// Required - вопросы, без которых дашборд не запускается
	Required []string `yaml:"required"`

	// Columns - явно объявленные виды колонок
	Columns []ColumnDef `yaml:"columns"`

	// InferNumeric - определять числовые колонки по ключевым словам (по умолчанию true)
	InferNumeric *bool `yaml:"infer_numeric"`

	// NumericKeywords - ключевые слова для определения числовых колонок
	NumericKeywords []string `yaml:"numeric_keywords"`
}

// ColumnDef - объявление вида одной колонки
type ColumnDef struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

// HeaderError ошибка несоответствия заголовка объявленной схеме
type HeaderError struct {
	Missing []string
	Message string
}

func (e *HeaderError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("%s: missing columns %s", e.Message, quoteList(e.Missing))
	}
	return e.Message
}

// Validator проверяет заголовок набора данных и строит схему
type Validator struct {
	def      Definition
	declared map[string]Kind
	keywords []string
	infer    bool
}

// NewValidator создает валидатор для объявления схемы
func NewValidator(def Definition) (*Validator, error) {
	v := &Validator{
		def:      def,
		declared: make(map[string]Kind, len(def.Columns)),
		keywords: def.NumericKeywords,
		infer:    def.InferNumeric == nil || *def.InferNumeric,
	}

	if len(v.keywords) == 0 {
		v.keywords = DefaultNumericKeywords
	}

	for _, c := range def.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return nil, fmt.Errorf("schema definition: column with empty name")
		}
		kind, err := ParseKind(c.Kind)
		if err != nil {
			return nil, fmt.Errorf("schema definition: column %q: %w", name, err)
		}
		v.declared[name] = kind
	}

	if def.ExpectedColumns < 0 {
		return nil, fmt.Errorf("schema definition: expected_columns must be >= 0, got %d", def.ExpectedColumns)
	}

	return v, nil
}

// Resolve проверяет заголовок и возвращает схему с видами колонок.
// Порядок определения вида: объявление > ключевые слова > categorical.
func (v *Validator) Resolve(header []string) (*Schema, error) {
	if len(header) == 0 {
		return nil, &HeaderError{Message: "header row is empty"}
	}

	if v.def.ExpectedColumns > 0 && len(header) != v.def.ExpectedColumns {
		return nil, &HeaderError{
			Message: fmt.Sprintf("header has %d columns, expected %d", len(header), v.def.ExpectedColumns),
		}
	}

	present := make(map[string]bool, len(header))
	columns := make([]Column, 0, len(header))

	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			return nil, &HeaderError{Message: fmt.Sprintf("column %d has empty name", i+1)}
		}
		if present[name] {
			return nil, &HeaderError{Message: fmt.Sprintf("duplicate column name: %s", name)}
		}
		present[name] = true
		columns = append(columns, Column{Name: name, Kind: v.kindFor(name)})
	}

	var missing []string
	for _, name := range v.def.Required {
		if !present[strings.TrimSpace(name)] {
			missing = append(missing, name)
		}
	}
	for _, c := range v.def.Columns {
		name := strings.TrimSpace(c.Name)
		if !present[name] && !contains(missing, name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &HeaderError{Missing: missing, Message: "dataset does not match schema"}
	}

	return New(columns)
}

// kindFor определяет вид колонки по имени
func (v *Validator) kindFor(name string) Kind {
	if k, ok := v.declared[name]; ok {
		return k
	}
	if v.infer && looksNumeric(name, v.keywords) {
		return KindNumeric
	}
	return KindCategorical
}

// looksNumeric проверяет содержит ли имя колонки числовой признак
func looksNumeric(name string, keywords []string) bool {
	lower := strings.ToLower(name)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}
