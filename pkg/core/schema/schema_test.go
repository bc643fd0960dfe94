package schema

import (
	"errors"
	"testing"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		input   string
		want    Kind
		wantErr bool
	}{
		{"text", KindText, false},
		{"VARCHAR", KindText, false},
		{"categorical", KindCategorical, false},
		{"", KindCategorical, false},
		{" numeric ", KindNumeric, false},
		{"INTEGER", KindNumeric, false},
		{"real", KindNumeric, false},
		{"blob", "", true},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseKind(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestSchemaNew(t *testing.T) {
	s, err := NewBuilder().
		AddText("Comments").
		AddCategorical("Company").
		AddNumeric("Age (Years)").
		Add("City", "").
		Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}

	if s.Len() != 4 {
		t.Errorf("Len() = %d, want 4", s.Len())
	}

	col, ok := s.Lookup("Age (Years)")
	if !ok {
		t.Fatal("Lookup(Age (Years)) not found")
	}
	if col.Index != 2 || col.Kind != KindNumeric {
		t.Errorf("Lookup(Age (Years)) = %+v, want index 2 numeric", col)
	}

	if s.Column(3).Kind != KindCategorical {
		t.Errorf("empty kind = %s, want categorical", s.Column(3).Kind)
	}

	if s.Has("age (years)") {
		t.Error("Has() must be case-sensitive")
	}

	cols := s.Columns()
	cols[0].Name = "changed"
	if s.Column(0).Name != "Comments" {
		t.Error("Columns() must return a copy")
	}
}

func TestSchemaNewErrors(t *testing.T) {
	tests := []struct {
		name    string
		columns []Column
	}{
		{"empty name", []Column{{Name: ""}}},
		{"duplicate", []Column{{Name: "A"}, {Name: "A"}}},
		{"bad kind", []Column{{Name: "A", Kind: "blob"}}},
	}

	for _, tt := range tests {
		if _, err := New(tt.columns); err == nil {
			t.Errorf("%s: New() expected error", tt.name)
		}
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		raw     string
		kind    Kind
		wantRaw string
		wantNum float64
		hasNum  bool
	}{
		{" 30 ", KindNumeric, " 30 ", 30, true},
		{" Talabat ", KindCategorical, " Talabat ", 0, false},
		{"nan", KindNumeric, "nan", 0, false},
		{"NaN", KindNumeric, "NaN", 0, false},
		{"Inf", KindNumeric, "Inf", 0, false},
		{"-infinity", KindNumeric, "-infinity", 0, false},
		{"12,500", KindNumeric, "12,500", 12500, true},
		{"85%", KindNumeric, "85%", 85, true},
		{"about 20", KindNumeric, "about 20", 0, false},
		{"", KindNumeric, "", 0, false},
		{"30", KindCategorical, "30", 0, false},
	}

	for _, tt := range tests {
		v := ParseValue(tt.raw, tt.kind)
		if v.Raw != tt.wantRaw {
			t.Errorf("ParseValue(%q).Raw = %q, want %q", tt.raw, v.Raw, tt.wantRaw)
		}
		if v.HasNum != tt.hasNum || v.Num != tt.wantNum {
			t.Errorf("ParseValue(%q) = (%v, %v), want (%v, %v)", tt.raw, v.Num, v.HasNum, tt.wantNum, tt.hasNum)
		}
	}
}

func TestValueKey(t *testing.T) {
	if got := ParseValue("  ", KindCategorical).Key(); got != Unanswered {
		t.Errorf("blank Key() = %q, want %q", got, Unanswered)
	}
	if got := ParseValue("Talabat", KindCategorical).Key(); got != "Talabat" {
		t.Errorf("Key() = %q, want Talabat", got)
	}
	if got := ParseValue(" Talabat\n", KindCategorical).Key(); got != "Talabat" {
		t.Errorf("Key() = %q, want trimmed Talabat", got)
	}
}

func TestFormatNumber(t *testing.T) {
	if got := FormatNumber(30); got != "30" {
		t.Errorf("FormatNumber(30) = %q, want 30", got)
	}
	if got := FormatNumber(2.5); got != "2.5" {
		t.Errorf("FormatNumber(2.5) = %q, want 2.5", got)
	}
}

func TestValidatorResolve(t *testing.T) {
	v, err := NewValidator(Definition{
		Required: []string{"Company"},
		Columns:  []ColumnDef{{Name: "Approximate delivery success rate", Kind: "numeric"}},
	})
	if err != nil {
		t.Fatalf("NewValidator() error: %v", err)
	}

	s, err := v.Resolve([]string{" Company ", "Age (Years)", "Approximate delivery success rate", "Gender"})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}

	want := map[string]Kind{
		"Company":                           KindCategorical,
		"Age (Years)":                       KindNumeric,
		"Approximate delivery success rate": KindNumeric,
		"Gender":                            KindCategorical,
	}
	for name, kind := range want {
		col, ok := s.Lookup(name)
		if !ok {
			t.Errorf("column %q not found (names: %v)", name, s.Names())
			continue
		}
		if col.Kind != kind {
			t.Errorf("column %q kind = %s, want %s", name, col.Kind, kind)
		}
	}
}

func TestValidatorResolveErrors(t *testing.T) {
	v, err := NewValidator(Definition{ExpectedColumns: 3, Required: []string{"Company"}})
	if err != nil {
		t.Fatalf("NewValidator() error: %v", err)
	}

	tests := []struct {
		name   string
		header []string
	}{
		{"empty", nil},
		{"width", []string{"Company", "Age"}},
		{"duplicate", []string{"Company", "Age", "Age"}},
		{"blank name", []string{"Company", " ", "Age"}},
		{"missing required", []string{"A", "B", "C"}},
	}

	for _, tt := range tests {
		_, err := v.Resolve(tt.header)
		var herr *HeaderError
		if !errors.As(err, &herr) {
			t.Errorf("%s: Resolve() error = %v, want *HeaderError", tt.name, err)
		}
	}
}

func TestValidatorInferDisabled(t *testing.T) {
	off := false
	v, err := NewValidator(Definition{InferNumeric: &off})
	if err != nil {
		t.Fatalf("NewValidator() error: %v", err)
	}

	s, err := v.Resolve([]string{"Age (Years)"})
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if s.Column(0).Kind != KindCategorical {
		t.Errorf("kind = %s, want categorical when inference is off", s.Column(0).Kind)
	}
}

func TestNewValidatorErrors(t *testing.T) {
	if _, err := NewValidator(Definition{Columns: []ColumnDef{{Name: "A", Kind: "blob"}}}); err == nil {
		t.Error("NewValidator() expected error for unknown kind")
	}
	if _, err := NewValidator(Definition{ExpectedColumns: -1}); err == nil {
		t.Error("NewValidator() expected error for negative expected_columns")
	}
}
