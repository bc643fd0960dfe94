package audit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrClosed возвращается при записи в закрытый журнал
var ErrClosed = errors.New("audit logger is closed")

// Logger - журнал аудита
type Logger interface {
	// Log записывает запись и возвращает ошибку appender'а
	Log(ctx context.Context, entry *Entry) error

	// Record записывает запись; ошибки уходят в OnError
	Record(ctx context.Context, entry *Entry)

	Flush() error
	Close() error
}

// AuditLogger рассылает записи по appender'ам синхронно или через буфер
type AuditLogger struct {
	appenders []Appender
	config    LoggerConfig

	entries chan *Entry
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.RWMutex
}

// LoggerConfig - конфигурация журнала (секция audit)
type LoggerConfig struct {
	// AsyncMode - запись в appender'ы в фоновой горутине
	AsyncMode bool `yaml:"async"`

	// BufferSize - размер буфера асинхронного режима
	BufferSize int `yaml:"buffer_size"`

	// FlushInterval - период Flush appender'ов (0 = выключено)
	FlushInterval time.Duration `yaml:"flush_interval"`

	// OnError вызывается при ошибке appender'а (по умолчанию - лог warn)
	OnError func(error) `yaml:"-"`
}

// DefaultConfig - асинхронный журнал с буфером на 1000 записей
func DefaultConfig() LoggerConfig {
	return LoggerConfig{
		AsyncMode:  true,
		BufferSize: 1000,
	}
}

// SyncConfig - синхронный журнал (тесты, CLI)
func SyncConfig() LoggerConfig {
	return LoggerConfig{}
}

// NewLogger создает журнал
func NewLogger(config LoggerConfig, appenders ...Appender) *AuditLogger {
	ctx, cancel := context.WithCancel(context.Background())

	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}
	if config.OnError == nil {
		config.OnError = func(err error) {
			log.Warn().Err(err).Msg("audit write failed")
		}
	}

	l := &AuditLogger{
		appenders: appenders,
		config:    config,
		ctx:       ctx,
		cancel:    cancel,
	}

	if config.AsyncMode {
		l.entries = make(chan *Entry, config.BufferSize)
		l.wg.Add(1)
		go l.process()
	}

	if config.FlushInterval > 0 {
		l.wg.Add(1)
		go l.autoFlush()
	}

	return l
}

// Log - записать entry
func (l *AuditLogger) Log(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("entry is nil")
	}
	if l.ctx.Err() != nil {
		return ErrClosed
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	if entry.ID == "" {
		entry.ID = NewEntry(entry.Operation, entry.Status).ID
	}

	if l.config.AsyncMode {
		select {
		case l.entries <- entry:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
			// буфер переполнен
			return l.write(ctx, entry)
		}
	}

	return l.write(ctx, entry)
}

// Record - записать entry, сообщив об ошибке в OnError
func (l *AuditLogger) Record(ctx context.Context, entry *Entry) {
	if err := l.Log(ctx, entry); err != nil {
		l.config.OnError(err)
	}
}

func (l *AuditLogger) write(ctx context.Context, entry *Entry) error {
	l.mu.RLock()
	appenders := l.appenders
	l.mu.RUnlock()

	var firstErr error
	for _, a := range appenders {
		if err := a.Append(ctx, entry); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			l.config.OnError(fmt.Errorf("appender failed: %w", err))
		}
	}
	return firstErr
}

func (l *AuditLogger) process() {
	defer l.wg.Done()

	for {
		select {
		case entry := <-l.entries:
			l.write(context.Background(), entry)
		case <-l.ctx.Done():
			l.drain()
			return
		}
	}
}

func (l *AuditLogger) drain() {
	for {
		select {
		case entry := <-l.entries:
			l.write(context.Background(), entry)
		default:
			return
		}
	}
}

func (l *AuditLogger) autoFlush() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Flush()
		case <-l.ctx.Done():
			return
		}
	}
}

// Flush сбрасывает буферы appender'ов, поддерживающих Flush
func (l *AuditLogger) Flush() error {
	l.mu.RLock()
	appenders := l.appenders
	l.mu.RUnlock()

	var firstErr error
	for _, a := range appenders {
		if f, ok := a.(interface{ Flush() error }); ok {
			if err := f.Flush(); err != nil {
				if firstErr == nil {
					firstErr = err
				}
				l.config.OnError(fmt.Errorf("flush failed: %w", err))
			}
		}
	}
	return firstErr
}

// Close дописывает буфер и закрывает appender'ы
func (l *AuditLogger) Close() error {
	l.cancel()
	l.wg.Wait()
	l.Flush()

	l.mu.RLock()
	appenders := l.appenders
	l.mu.RUnlock()

	var errs []error
	for _, a := range appenders {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AddAppender - добавить appender
func (l *AuditLogger) AddAppender(a Appender) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.appenders = append(l.appenders, a)
}

// NullLogger - журнал без записи
type NullLogger struct{}

// NewNullLogger - журнал без записи
func NewNullLogger() *NullLogger {
	return &NullLogger{}
}

func (NullLogger) Log(context.Context, *Entry) error { return nil }
func (NullLogger) Record(context.Context, *Entry)    {}
func (NullLogger) Flush() error                      { return nil }
func (NullLogger) Close() error                      { return nil }
