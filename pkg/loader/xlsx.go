package loader

import (
	"context"
	"os"

	"github.com/ruslano69/surveydash/pkg/xlsx"
)

// xlsxSource читает опрос с листа книги Excel
type xlsxSource struct {
	path  string
	sheet string
}

func (s *xlsxSource) Describe() string {
	if s.sheet != "" {
		return "xlsx:" + s.path + "#" + s.sheet
	}
	return "xlsx:" + s.path
}

func (s *xlsxSource) Read(_ context.Context) (*Raw, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet, err := xlsx.ReadSheet(f, s.sheet)
	if err != nil {
		return nil, err
	}
	return &Raw{Header: sheet.Header, Records: sheet.Records}, nil
}
