package filter

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ruslano69/surveydash/pkg/core/schema"
)

func TestParseWhere(t *testing.T) {
	tests := []struct {
		expr string
		want FilterSet
	}{
		{"", FilterSet{}},
		{"Company = 'Talabat'", FilterSet{"Company": {"Talabat"}}},
		{
			`Company IN ('Talabat', 'Rabbit') AND "Age (Years)" = 30`,
			FilterSet{"Company": {"Talabat", "Rabbit"}, "Age (Years)": {"30"}},
		},
		{"[Please mention your Fixed Monthly Pay (if any):...] IS NULL",
			FilterSet{"Please mention your Fixed Monthly Pay (if any):...": {schema.Unanswered}}},
		{"City in ('Cairo') and Gender = 'Female'", FilterSet{"City": {"Cairo"}, "Gender": {"Female"}}},
		{"Q09 = 'It''s fine'", FilterSet{"Q09": {"It's fine"}}},
		{"Score = -1.5", FilterSet{"Score": {"-1.5"}}},
	}

	for _, tt := range tests {
		got, err := ParseWhere(tt.expr)
		if err != nil {
			t.Errorf("ParseWhere(%q) error: %v", tt.expr, err)
			continue
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseWhere(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestParseWhereErrors(t *testing.T) {
	tests := []string{
		"Company = 'Talabat' OR Company = 'Rabbit'",
		"Company = 'Talabat' AND Company = 'Rabbit'",
		"Company 'Talabat'",
		"Company = ",
		"Company IN ('a', 'b'",
		"Company = 'unterminated",
		"= 'x'",
		"Company > 3",
		"Company = 'a' Gender = 'b'",
	}

	for _, expr := range tests {
		if _, err := ParseWhere(expr); !errors.Is(err, ErrSyntax) {
			t.Errorf("ParseWhere(%q) error = %v, want ErrSyntax", expr, err)
		}
	}
}

func TestWhereRoundTrip(t *testing.T) {
	fs := FilterSet{
		"Age (Years)": {"30"},
		"Company":     {"Talabat", "O'Brien"},
		"City":        {schema.Unanswered},
	}

	back, err := ParseWhere(fs.Where())
	if err != nil {
		t.Fatalf("ParseWhere(%q) error: %v", fs.Where(), err)
	}
	if !reflect.DeepEqual(back, fs) {
		t.Errorf("round trip = %v, want %v", back, fs)
	}
}

func TestCombine(t *testing.T) {
	got, err := Combine(FilterSet{"Company": {"Talabat", " Talabat"}}, "City = 'Cairo'")
	if err != nil {
		t.Fatalf("Combine() error: %v", err)
	}
	want := FilterSet{"Company": {"Talabat"}, "City": {"Cairo"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Combine() = %v, want %v", got, want)
	}

	if got, err := Combine(nil, ""); err != nil || len(got) != 0 {
		t.Errorf("Combine(nil, \"\") = %v, %v; want empty set", got, err)
	}

	if _, err := Combine(FilterSet{"City": {"Giza"}}, "City = 'Cairo'"); !errors.Is(err, ErrSyntax) {
		t.Errorf("Combine() duplicate error = %v, want ErrSyntax", err)
	}
}
