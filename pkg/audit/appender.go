package audit

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Appender - приемник записей журнала
type Appender interface {
	Append(ctx context.Context, entry *Entry) error
	Close() error
}

// LogAppender пишет записи в zerolog
type LogAppender struct {
	logger zerolog.Logger
	level  Level
}

// NewLogAppender - appender поверх логгера приложения
func NewLogAppender(logger zerolog.Logger, level Level) *LogAppender {
	return &LogAppender{logger: logger.With().Str("component", "audit").Logger(), level: level}
}

// Append - записать в лог. Неуспешные операции пишутся с уровнем warn.
func (la *LogAppender) Append(_ context.Context, entry *Entry) error {
	e := entry.FilterByLevel(la.level)

	ev := la.logger.Info()
	if e.Status != StatusSuccess {
		ev = la.logger.Warn()
	}

	ev = ev.Str("id", e.ID).
		Str("operation", string(e.Operation)).
		Str("status", string(e.Status)).
		Int("rows", e.Rows)

	if e.Resource != "" {
		ev = ev.Str("resource", e.Resource)
	}
	if e.Filter != "" {
		ev = ev.Str("filter", e.Filter)
	}
	if e.SessionID != "" {
		ev = ev.Str("session", e.SessionID)
	}
	if e.RemoteAddr != "" {
		ev = ev.Str("remote", e.RemoteAddr)
	}
	if e.Duration > 0 {
		ev = ev.Dur("duration", e.Duration)
	}
	if e.Error != "" {
		ev = ev.Str("error", e.Error)
	}
	if len(e.Metadata) > 0 {
		ev = ev.Interface("metadata", e.Metadata)
	}
	if e.Detail != nil {
		ev = ev.Interface("detail", e.Detail)
	}
	ev.Msg("audit")
	return nil
}

// Close - ничего не держит
func (la *LogAppender) Close() error {
	return nil
}

// MemoryAppender хранит записи в памяти
type MemoryAppender struct {
	mu      sync.Mutex
	entries []*Entry
}

// NewMemoryAppender - appender для тестов и CLI
func NewMemoryAppender() *MemoryAppender {
	return &MemoryAppender{}
}

// Append - сохранить копию записи
func (ma *MemoryAppender) Append(_ context.Context, entry *Entry) error {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	ma.entries = append(ma.entries, entry.Clone())
	return nil
}

// Entries - копия сохраненных записей
func (ma *MemoryAppender) Entries() []*Entry {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	out := make([]*Entry, len(ma.entries))
	copy(out, ma.entries)
	return out
}

// Close - ничего не держит
func (ma *MemoryAppender) Close() error {
	return nil
}
