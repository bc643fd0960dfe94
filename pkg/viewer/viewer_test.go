package viewer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"reflect"
	"testing"

	"github.com/ruslano69/surveydash/internal/surveytest"
	"github.com/ruslano69/surveydash/pkg/core/dataset"
	"github.com/ruslano69/surveydash/pkg/core/schema"
	"github.com/ruslano69/surveydash/pkg/filter"
)

func TestGetResponseFidelity(t *testing.T) {
	tbl := surveytest.Table(t)
	header := surveytest.Header()
	records := surveytest.Records()

	for _, idx := range []int{0, 17, 55} {
		got, err := GetResponse(tbl, idx)
		if err != nil {
			t.Fatalf("GetResponse(%d) error: %v", idx, err)
		}
		if len(got) != 63 {
			t.Fatalf("GetResponse(%d) = %d answers, want 63", idx, len(got))
		}
		for j, a := range got {
			if a.Question != header[j] || a.Answer != records[idx][j] {
				t.Errorf("GetResponse(%d)[%d] = %q=%q, want %q=%q",
					idx, j, a.Question, a.Answer, header[j], records[idx][j])
			}
		}
	}
}

func TestGetResponseKeepsWhitespace(t *testing.T) {
	s, err := schema.NewBuilder().AddCategorical("Company").AddText("Comment").AddNumeric("Age").Build()
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	records := [][]string{{" Talabat ", "  two spaces\n", " 30 "}}
	tbl, err := dataset.NewTable("spaced", "memory", s, records)
	if err != nil {
		t.Fatalf("NewTable() error: %v", err)
	}

	got, err := GetResponse(tbl, 0)
	if err != nil {
		t.Fatalf("GetResponse(0) error: %v", err)
	}
	for j, a := range got {
		if a.Answer != records[0][j] {
			t.Errorf("answer %d = %q, want %q", j, a.Answer, records[0][j])
		}
	}

	v, err := filter.Apply(tbl, filter.FilterSet{"Company": {"Talabat"}, "Age": {"30"}})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}
	if v.Len() != 1 {
		t.Errorf("trimmed match = %d rows, want 1", v.Len())
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, v); err != nil {
		t.Fatalf("WriteCSV() error: %v", err)
	}
	recs, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("exported CSV does not parse: %v", err)
	}
	if !reflect.DeepEqual(recs[1], records[0]) {
		t.Errorf("exported row = %q, want %q", recs[1], records[0])
	}
}

func TestGetResponseOutOfRange(t *testing.T) {
	tbl := surveytest.Table(t)

	for _, idx := range []int{56, -1, 1000} {
		_, err := GetResponse(tbl, idx)
		if !errors.Is(err, dataset.ErrIndexOutOfRange) {
			t.Errorf("GetResponse(%d) error = %v, want ErrIndexOutOfRange", idx, err)
		}
	}
}

func TestViewResponse(t *testing.T) {
	tbl := surveytest.Table(t)

	v, err := filter.Apply(tbl, filter.FilterSet{surveytest.Company: {"Rabbit"}})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	rec, err := ViewResponse(v, 1)
	if err != nil {
		t.Fatalf("ViewResponse() error: %v", err)
	}
	if rec.Index != 6 {
		t.Errorf("ViewResponse(1).Index = %d, want 6", rec.Index)
	}
	if rec.Answers[1].Answer != "Rabbit" {
		t.Errorf("company = %q, want Rabbit", rec.Answers[1].Answer)
	}

	if _, err := ViewResponse(v, v.Len()); !errors.Is(err, dataset.ErrIndexOutOfRange) {
		t.Errorf("ViewResponse(len) error = %v, want ErrIndexOutOfRange", err)
	}
}

func TestPreviewAndPage(t *testing.T) {
	tbl := surveytest.Table(t)
	all := dataset.All(tbl)

	p := Preview(all, 3)
	if len(p) != 3 || p[2].Index != 2 {
		t.Errorf("Preview(3) = %d records, last index %d", len(p), p[len(p)-1].Index)
	}

	page := Page(all, 50, 10)
	if len(page) != 6 || page[0].Index != 50 {
		t.Errorf("Page(50, 10) = %d records starting %d, want 6 from 50", len(page), page[0].Index)
	}
	if len(Page(all, 60, 10)) != 0 {
		t.Error("Page past end should be empty")
	}
	if Preview(all, 0) != nil {
		t.Error("Preview(0) should be nil")
	}
}

func TestWriteCSV(t *testing.T) {
	tbl := surveytest.Table(t)

	v, err := filter.Apply(tbl, filter.FilterSet{surveytest.City: {"Cairo"}})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, v); err != nil {
		t.Fatalf("WriteCSV() error: %v", err)
	}

	recs, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("exported CSV does not parse: %v", err)
	}
	if len(recs) != v.Len()+1 {
		t.Fatalf("rows = %d, want %d", len(recs), v.Len()+1)
	}
	if !reflect.DeepEqual(recs[0], surveytest.Header()) {
		t.Errorf("header = %v", recs[0][:3])
	}
	if !reflect.DeepEqual(recs[1], surveytest.Records()[v.Index(0)]) {
		t.Errorf("first row = %v, want record %d", recs[1][:3], v.Index(0))
	}
}
