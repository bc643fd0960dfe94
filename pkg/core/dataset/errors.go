package dataset

import (
	"errors"
	"fmt"
)

// Ошибки уровня набора данных. Сравниваются через errors.Is.
var (
	// ErrDataUnavailable - источник отсутствует, не читается или пуст
	ErrDataUnavailable = errors.New("data unavailable")

	// ErrSchemaMismatch - заголовок не совпадает с объявленной схемой
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrUnknownQuestion - фильтр ссылается на несуществующий вопрос
	ErrUnknownQuestion = errors.New("unknown question")

	// ErrInvalidSpec - некорректная спецификация агрегации
	ErrInvalidSpec = errors.New("invalid aggregation spec")

	// ErrIndexOutOfRange - запрошен несуществующий ответ
	ErrIndexOutOfRange = errors.New("no such response")
)

// QuestionError ошибка, связанная с конкретным вопросом
type QuestionError struct {
	Question string
	Reason   string
	Err      error
}

func (e *QuestionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%v: %q: %s", e.Err, e.Question, e.Reason)
	}
	return fmt.Sprintf("%v: %q", e.Err, e.Question)
}

func (e *QuestionError) Unwrap() error {
	return e.Err
}

// UnknownQuestion создает ошибку для неизвестного вопроса
func UnknownQuestion(question string) error {
	return &QuestionError{Question: question, Err: ErrUnknownQuestion}
}

// InvalidSpec создает ошибку спецификации агрегации для вопроса
func InvalidSpec(question, reason string) error {
	return &QuestionError{Question: question, Reason: reason, Err: ErrInvalidSpec}
}

// IndexError ошибка выхода индекса за границы таблицы
type IndexError struct {
	Index int
	Count int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("%v: index %d outside [0, %d)", ErrIndexOutOfRange, e.Index, e.Count)
}

func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfRange
}
