package security

import (
	"strings"
	"testing"
)

func TestNewSQLValidator(t *testing.T) {
	if !NewSQLValidator(true).IsSafeMode() {
		t.Error("NewSQLValidator(true).IsSafeMode() = false, want true")
	}
	if NewSQLValidator(false).IsSafeMode() {
		t.Error("NewSQLValidator(false).IsSafeMode() = true, want false")
	}
}

func TestSQLValidator_Allowed(t *testing.T) {
	v := NewSQLValidator(true)

	tests := []string{
		"SELECT * FROM survey",
		"select company, age from survey where city = 'Cairo'",
		"SELECT * FROM survey;",
		"  SELECT deleted_at, updated_by FROM survey  ",
		"WITH recent AS (SELECT * FROM survey) SELECT * FROM recent",
		"SELECT * FROM survey WHERE note = 'DROP TABLE x'",
		`SELECT "Age (Years)" FROM survey`,
		"SELECT [Company] FROM dbo.survey",
	}

	for _, q := range tests {
		if err := v.Validate(q); err != nil {
			t.Errorf("Validate(%q) unexpected error: %v", q, err)
		}
	}
}

func TestSQLValidator_Rejected(t *testing.T) {
	v := NewSQLValidator(true)

	tests := []struct {
		query  string
		errMsg string
	}{
		{"", "empty query"},
		{"DELETE FROM survey", "only SELECT and WITH"},
		{"UPDATE survey SET age = 1", "only SELECT and WITH"},
		{"SELECT * FROM survey; DROP TABLE survey", "forbidden keyword 'DROP'"},
		{"SELECT * INTO backup FROM survey", "forbidden keyword 'INTO'"},
		{"WITH x AS (DELETE FROM survey RETURNING *) SELECT * FROM x", "forbidden keyword 'DELETE'"},
		{"SELECT * FROM survey -- comment", "comments (--)"},
		{"SELECT /* hidden */ * FROM survey", "comments (/* */)"},
		{"SELECT 1; SELECT 2;", "multiple statements"},
		{"SELECT 1; SELECT 2", "semicolon allowed only at the end"},
		{"SELECT * FROM survey WHERE city = 'Cairo", "unterminated quote"},
	}

	for _, tt := range tests {
		err := v.Validate(tt.query)
		if err == nil {
			t.Errorf("Validate(%q) expected error", tt.query)
			continue
		}
		if !strings.Contains(err.Error(), tt.errMsg) {
			t.Errorf("Validate(%q) error = %q, want containing %q", tt.query, err, tt.errMsg)
		}
	}
}

func TestSQLValidator_UnsafeMode(t *testing.T) {
	v := NewSQLValidator(false)

	if err := v.Validate("DROP TABLE survey"); err != nil {
		t.Errorf("unsafe mode Validate() error = %v, want nil", err)
	}
}
