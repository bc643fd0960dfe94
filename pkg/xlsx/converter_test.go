package xlsx

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/ruslano69/surveydash/internal/surveytest"
	"github.com/ruslano69/surveydash/pkg/core/dataset"
	"github.com/ruslano69/surveydash/pkg/filter"
	"github.com/xuri/excelize/v2"
)

func TestColumnName(t *testing.T) {
	tests := map[int]string{1: "A", 26: "Z", 27: "AA", 63: "BK", 702: "ZZ", 703: "AAA"}
	for col, want := range tests {
		if got := columnName(col); got != want {
			t.Errorf("columnName(%d) = %s, want %s", col, got, want)
		}
	}
}

func TestWriteAndReadView(t *testing.T) {
	tbl := surveytest.Table(t)

	v, err := filter.Apply(tbl, filter.FilterSet{surveytest.Company: {"Talabat"}})
	if err != nil {
		t.Fatalf("Apply() error: %v", err)
	}

	var buf bytes.Buffer
	if err := WriteView(&buf, v, "Talabat"); err != nil {
		t.Fatalf("WriteView() error: %v", err)
	}

	sheet, err := ReadSheet(bytes.NewReader(buf.Bytes()), "")
	if err != nil {
		t.Fatalf("ReadSheet() error: %v", err)
	}

	if sheet.Name != "Talabat" {
		t.Errorf("sheet name = %q, want Talabat", sheet.Name)
	}
	if !reflect.DeepEqual(sheet.Header, surveytest.Header()) {
		t.Errorf("header mismatch: %v", sheet.Header)
	}
	if len(sheet.Records) != v.Len() {
		t.Fatalf("records = %d, want %d", len(sheet.Records), v.Len())
	}

	want := surveytest.Records()[v.Index(1)]
	if !reflect.DeepEqual(sheet.Records[1], want) {
		t.Errorf("record 1 = %v, want %v", sheet.Records[1], want)
	}
}

func TestReadSheetPadsShortRows(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetSheetRow("Sheet1", "A1", &[]any{"Company", "City", "Age (Years)"})
	f.SetSheetRow("Sheet1", "A2", &[]any{"Talabat"})
	f.SetSheetRow("Sheet1", "A4", &[]any{"Rabbit", "Giza", 31})

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	sheet, err := ReadSheet(&buf, "Sheet1")
	if err != nil {
		t.Fatalf("ReadSheet() error: %v", err)
	}

	want := [][]string{{"Talabat", "", ""}, {"Rabbit", "Giza", "31"}}
	if !reflect.DeepEqual(sheet.Records, want) {
		t.Errorf("records = %v, want %v", sheet.Records, want)
	}
}

func TestReadSheetMissing(t *testing.T) {
	var buf bytes.Buffer
	f := excelize.NewFile()
	f.Write(&buf)
	f.Close()

	if _, err := ReadSheet(&buf, "Survey"); err == nil {
		t.Error("ReadSheet() expected error for missing sheet")
	}
}

func TestWriteViewEmpty(t *testing.T) {
	tbl := surveytest.Table(t)
	empty, _ := dataset.NewView(tbl, nil)

	var buf bytes.Buffer
	if err := WriteView(&buf, empty, ""); err != nil {
		t.Fatalf("WriteView() error: %v", err)
	}
	sheet, err := ReadSheet(&buf, "")
	if err != nil {
		t.Fatalf("ReadSheet() error: %v", err)
	}
	if len(sheet.Records) != 0 || len(sheet.Header) != 63 {
		t.Errorf("empty export = %d records, %d columns", len(sheet.Records), len(sheet.Header))
	}
}
