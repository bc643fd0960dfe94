package schema

// Builder помогает строить схемы
type Builder struct {
	columns []Column
}

// NewBuilder создает новый builder
func NewBuilder() *Builder {
	return &Builder{
		columns: []Column{},
	}
}

// AddText добавляет колонку со свободным ответом
func (b *Builder) AddText(name string) *Builder {
	b.columns = append(b.columns, Column{Name: name, Kind: KindText})
	return b
}

// AddCategorical добавляет категориальную колонку
func (b *Builder) AddCategorical(name string) *Builder {
	b.columns = append(b.columns, Column{Name: name, Kind: KindCategorical})
	return b
}

// AddNumeric добавляет числовую колонку
func (b *Builder) AddNumeric(name string) *Builder {
	b.columns = append(b.columns, Column{Name: name, Kind: KindNumeric})
	return b
}

// Add добавляет колонку произвольного вида
func (b *Builder) Add(name string, kind Kind) *Builder {
	b.columns = append(b.columns, Column{Name: name, Kind: kind})
	return b
}

// Build возвращает готовую схему
func (b *Builder) Build() (*Schema, error) {
	return New(b.columns)
}
