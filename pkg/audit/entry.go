// Package audit записывает журнал действий с дашбордом: загрузку набора,
// вход, фильтрацию, сводки, просмотр ответов и выгрузки.
package audit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Level - уровень детализации записи
type Level int

const (
	// LevelMinimal - операция, статус, ресурс, количество строк
	LevelMinimal Level = iota

	// LevelStandard - плюс сессия, адрес клиента, выражение фильтра и метаданные
	LevelStandard

	// LevelFull - плюс Detail (параметры запроса целиком)
	LevelFull
)

// String - строковое представление уровня
func (l Level) String() string {
	switch l {
	case LevelMinimal:
		return "minimal"
	case LevelStandard:
		return "standard"
	case LevelFull:
		return "full"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}

// ParseLevel разбирает уровень из конфигурации. Пустая строка - standard.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal":
		return LevelMinimal, nil
	case "", "standard":
		return LevelStandard, nil
	case "full":
		return LevelFull, nil
	}
	return LevelStandard, fmt.Errorf("unknown audit level %q (minimal/standard/full)", s)
}

// Operation - действие с дашбордом
type Operation string

const (
	OpLoad         Operation = "load"
	OpAuthenticate Operation = "authenticate"
	OpLogout       Operation = "logout"
	OpFilter       Operation = "filter"
	OpSummarize    Operation = "summarize"
	OpView         Operation = "view"
	OpExport       Operation = "export"
)

// Status - результат действия
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusDenied  Status = "denied"
)

// Entry - запись журнала
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Operation Operation `json:"operation"`
	Status    Status    `json:"status"`

	// Dataset - отпечаток загруженной таблицы
	Dataset string `json:"dataset,omitempty"`

	// Resource - вопрос, номер ответа или файл выгрузки
	Resource string `json:"resource,omitempty"`

	// Filter - активный фильтр в виде выражения WHERE
	Filter string `json:"filter,omitempty"`

	// Rows - размер выборки после фильтра
	Rows int `json:"rows"`

	Duration time.Duration `json:"duration,omitempty"`
	Error    string        `json:"error,omitempty"`

	SessionID  string `json:"session_id,omitempty"`
	RemoteAddr string `json:"remote_addr,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`

	// Detail - параметры запроса целиком (только LevelFull)
	Detail any `json:"detail,omitempty"`
}

// NewEntry - создать запись
func NewEntry(operation Operation, status Status) *Entry {
	return &Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Operation: operation,
		Status:    status,
	}
}

// WithDataset - отпечаток набора данных
func (e *Entry) WithDataset(fingerprint string) *Entry {
	e.Dataset = fingerprint
	return e
}

// WithResource - вопрос, ответ или файл
func (e *Entry) WithResource(resource string) *Entry {
	e.Resource = resource
	return e
}

// WithFilter - выражение фильтра
func (e *Entry) WithFilter(where string) *Entry {
	e.Filter = where
	return e
}

// WithRows - размер выборки
func (e *Entry) WithRows(n int) *Entry {
	e.Rows = n
	return e
}

// WithDuration - длительность
func (e *Entry) WithDuration(d time.Duration) *Entry {
	e.Duration = d
	return e
}

// Since - длительность от start
func (e *Entry) Since(start time.Time) *Entry {
	e.Duration = time.Since(start)
	return e
}

// WithError - ошибка переводит запись в failure
func (e *Entry) WithError(err error) *Entry {
	if err != nil {
		e.Error = err.Error()
		if e.Status == StatusSuccess {
			e.Status = StatusFailure
		}
	}
	return e
}

// WithSession - сессия и адрес клиента
func (e *Entry) WithSession(sessionID, remoteAddr string) *Entry {
	e.SessionID = sessionID
	e.RemoteAddr = remoteAddr
	return e
}

// WithMetadata - добавить метаданные
func (e *Entry) WithMetadata(key string, value any) *Entry {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

// WithDetail - параметры запроса
func (e *Entry) WithDetail(detail any) *Entry {
	e.Detail = detail
	return e
}

// ToJSON - JSON одной строкой
func (e *Entry) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// String - строковое представление
func (e *Entry) String() string {
	s := fmt.Sprintf("[%s] %s %s rows=%d",
		e.Timestamp.Format(time.RFC3339),
		e.Operation,
		e.Status,
		e.Rows,
	)
	if e.Resource != "" {
		s += " resource=" + e.Resource
	}
	if e.Filter != "" {
		s += " filter=" + e.Filter
	}
	if e.Error != "" {
		s += " error=" + e.Error
	}
	return s
}

// Clone - копия записи
func (e *Entry) Clone() *Entry {
	clone := *e
	if e.Metadata != nil {
		clone.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

// FilterByLevel - копия записи без полей выше уровня
func (e *Entry) FilterByLevel(level Level) *Entry {
	filtered := e.Clone()

	switch level {
	case LevelMinimal:
		filtered.Metadata = nil
		filtered.Detail = nil
		filtered.Filter = ""
		filtered.SessionID = ""
		filtered.RemoteAddr = ""
	case LevelStandard:
		filtered.Detail = nil
	}

	return filtered
}
