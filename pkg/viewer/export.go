package viewer

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/ruslano69/surveydash/pkg/core/dataset"
)

// WriteCSV выгружает выборку в CSV: заголовок и исходные ответы в порядке таблицы
func WriteCSV(w io.Writer, v *dataset.View) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(v.Table().Schema().Names()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for pos := 0; pos < v.Len(); pos++ {
		if err := cw.Write(v.Row(pos).Raw()); err != nil {
			return fmt.Errorf("write response %d: %w", v.Index(pos), err)
		}
	}

	cw.Flush()
	return cw.Error()
}
