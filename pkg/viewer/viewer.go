// Package viewer показывает ответы отдельных респондентов.
package viewer

import (
	"github.com/ruslano69/surveydash/pkg/core/dataset"
	"github.com/ruslano69/surveydash/pkg/core/schema"
)

// Answer - пара вопрос/ответ в порядке колонок таблицы
type Answer struct {
	Question string      `json:"question"`
	Kind     schema.Kind `json:"kind"`
	Answer   string      `json:"answer"`
}

// Record - ответы респондента вместе с его индексом в таблице
type Record struct {
	Index   int      `json:"index"`
	Answers []Answer `json:"answers"`
}

// GetResponse возвращает все ответы респондента без изменений.
// Индекс вне [0, Len) дает dataset.ErrIndexOutOfRange.
func GetResponse(t *dataset.Table, index int) ([]Answer, error) {
	row, err := t.Row(index)
	if err != nil {
		return nil, err
	}
	return answers(t.Schema(), row), nil
}

// ViewResponse возвращает ответ по позиции в отфильтрованной выборке
func ViewResponse(v *dataset.View, position int) (Record, error) {
	if position < 0 || position >= v.Len() {
		return Record{}, &dataset.IndexError{Index: position, Count: v.Len()}
	}
	return Record{
		Index:   v.Index(position),
		Answers: answers(v.Table().Schema(), v.Row(position)),
	}, nil
}

// Page возвращает до limit ответов выборки, начиная с позиции offset.
// limit <= 0 означает все оставшиеся.
func Page(v *dataset.View, offset, limit int) []Record {
	if offset < 0 {
		offset = 0
	}
	end := v.Len()
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	var out []Record
	for pos := offset; pos < end; pos++ {
		out = append(out, Record{
			Index:   v.Index(pos),
			Answers: answers(v.Table().Schema(), v.Row(pos)),
		})
	}
	return out
}

// Preview возвращает первые n ответов выборки
func Preview(v *dataset.View, n int) []Record {
	if n <= 0 {
		return nil
	}
	return Page(v, 0, n)
}

func answers(s *schema.Schema, row dataset.Row) []Answer {
	out := make([]Answer, len(row))
	for i, val := range row {
		col := s.Column(i)
		out[i] = Answer{Question: col.Name, Kind: col.Kind, Answer: val.Raw}
	}
	return out
}
