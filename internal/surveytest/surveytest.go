// Package surveytest builds a deterministic synthetic survey used by tests
// across the module. The shape matches the production dataset: 56
// respondents, 63 questions, a handful of numeric questions and some blank
// answers.
package surveytest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/ruslano69/surveydash/pkg/core/dataset"
	"github.com/ruslano69/surveydash/pkg/core/schema"
)

const (
	Rows    = 56
	Columns = 63
)

// Well-known question names.
const (
	Timestamp   = "Timestamp"
	Company     = "Company"
	Age         = "Age (Years)"
	Gender      = "Gender"
	City        = "City"
	Deliveries  = "Average number of deliveries per day: ______"
	SuccessRate = "Approximate delivery success rate (orders deliv..."
	FixedPay    = "Please mention your Fixed Monthly Pay (if any):..."
)

var (
	companies = []string{"Talabat", "Breadfast", "Rabbit", "Instashop"}
	cities    = []string{"Cairo", "Giza", "Alexandria", "Mansoura", "Tanta"}
)

// Header returns the 63 question names.
func Header() []string {
	h := []string{Timestamp, Company, Age, Gender, City, Deliveries, SuccessRate, FixedPay}
	for j := len(h); j < Columns; j++ {
		h = append(h, fmt.Sprintf("Q%02d", j+1))
	}
	return h
}

// Records returns the 56 answer rows.
func Records() [][]string {
	header := Header()
	out := make([][]string, Rows)
	for i := range out {
		rec := make([]string, len(header))
		rec[0] = fmt.Sprintf("2024-03-%02d 10:%02d", i%28+1, i)
		rec[1] = companies[i%len(companies)]
		rec[2] = fmt.Sprint(20 + i%15)
		if i%3 == 0 {
			rec[3] = "Female"
		} else {
			rec[3] = "Male"
		}
		rec[4] = cities[i%len(cities)]
		rec[5] = fmt.Sprint(10 + i%7)
		rec[6] = fmt.Sprint(80 + i%20)
		if i%8 != 0 {
			rec[7] = fmt.Sprint(3000 + 100*(i%10))
		}
		for j := 8; j < len(header); j++ {
			if (i+j)%11 == 0 {
				continue
			}
			rec[j] = fmt.Sprintf("Option %d", (i+j)%3)
		}
		out[i] = rec
	}
	return out
}

// Schema returns the survey schema with the numeric questions declared.
func Schema(t testing.TB) *schema.Schema {
	t.Helper()

	b := schema.NewBuilder()
	for _, name := range Header() {
		switch name {
		case Age, Deliveries, SuccessRate, FixedPay:
			b.AddNumeric(name)
		case Timestamp:
			b.AddText(name)
		default:
			b.AddCategorical(name)
		}
	}
	s, err := b.Build()
	if err != nil {
		t.Fatalf("build schema: %v", err)
	}
	return s
}

// Table returns the synthetic survey as a loaded table.
func Table(t testing.TB) *dataset.Table {
	t.Helper()

	tbl, err := dataset.NewTable("vans", "memory", Schema(t), Records())
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	return tbl
}

// CSV renders the survey as CSV bytes.
func CSV(t testing.TB) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(Header()); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if err := w.WriteAll(Records()); err != nil {
		t.Fatalf("write records: %v", err)
	}
	return buf.Bytes()
}

// WriteCSV writes the survey into dir and returns the file path.
func WriteCSV(t testing.TB, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "survey.csv")
	if err := os.WriteFile(path, CSV(t), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

// CountWhere counts records whose answer to question equals value.
func CountWhere(question, value string) int {
	col := -1
	for j, name := range Header() {
		if name == question {
			col = j
		}
	}
	n := 0
	for _, rec := range Records() {
		if col >= 0 && rec[col] == value {
			n++
		}
	}
	return n
}
