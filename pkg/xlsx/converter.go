// Package xlsx читает опрос из книги Excel и выгружает выборку обратно в Excel.
package xlsx

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ruslano69/surveydash/pkg/core/dataset"
	"github.com/ruslano69/surveydash/pkg/core/schema"
	"github.com/xuri/excelize/v2"
)

// Sheet - содержимое листа: заголовок и строки ответов
type Sheet struct {
	Name    string
	Header  []string
	Records [][]string
}

// ReadSheet читает лист книги. Пустое имя - первый лист.
//
// Первая строка листа - заголовок. Короткие строки дополняются пустыми
// ответами до ширины заголовка; полностью пустые строки пропускаются.
func ReadSheet(r io.Reader, sheetName string) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		return nil, fmt.Errorf("sheet %q not found (sheets: %s)", sheetName, strings.Join(f.GetSheetList(), ", "))
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheetName)
	}

	s := &Sheet{Name: sheetName, Header: rows[0]}
	width := len(s.Header)

	for rowIdx := 1; rowIdx < len(rows); rowIdx++ {
		row := rows[rowIdx]
		if blankRow(row) {
			continue
		}
		if len(row) > width {
			return nil, fmt.Errorf("row %d has %d cells, header has %d", rowIdx+1, len(row), width)
		}
		rec := make([]string, width)
		copy(rec, row)
		s.Records = append(s.Records, rec)
	}

	return s, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// WriteView выгружает выборку в книгу Excel.
//
// Заголовок выделяется жирным и закрепляется; числовые ответы, которые
// удалось разобрать, записываются числами, остальные - исходным текстом.
func WriteView(w io.Writer, v *dataset.View, sheetName string) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheetName == "" {
		sheetName = v.Table().Name()
	}
	sheetName = safeSheetName(sheetName)

	if sheetName != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheetName); err != nil {
			return fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	cols := v.Table().Schema().Columns()
	for i, col := range cols {
		cell := columnName(i+1) + "1"
		if err := f.SetCellValue(sheetName, cell, col.Name); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for pos := 0; pos < v.Len(); pos++ {
		rowNum := strconv.Itoa(pos + 2)
		for i := range cols {
			val := v.Value(pos, i)
			if val.IsBlank() {
				continue
			}
			if err := f.SetCellValue(sheetName, columnName(i+1)+rowNum, cellValue(val)); err != nil {
				return fmt.Errorf("failed to write row %d: %w", pos+2, err)
			}
		}
	}

	last := columnName(len(cols))
	f.SetColWidth(sheetName, "A", last, 22)
	f.SetPanes(sheetName, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func cellValue(v schema.Value) any {
	if v.Kind == schema.KindNumeric && v.HasNum {
		return v.Num
	}
	return v.Raw
}

// safeSheetName - Excel ограничивает имя листа 31 символом и запрещает []:*?/\
func safeSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, name)
	if name == "" {
		return "Sheet1"
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}

// columnName - номер колонки в имя Excel (1 → A, 27 → AA)
func columnName(col int) string {
	name := ""
	for col > 0 {
		col--
		name = string(rune('A'+col%26)) + name
		col /= 26
	}
	return name
}
