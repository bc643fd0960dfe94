// Package loader читает опрос из настроенного источника один раз за время
// жизни процесса и отдает неизменяемую таблицу.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/ruslano69/surveydash/pkg/core/dataset"
	"github.com/ruslano69/surveydash/pkg/core/schema"
	"github.com/ruslano69/surveydash/pkg/retry"
)

// Raw - заголовок и записи источника до проверки схемы
type Raw struct {
	Header  []string
	Records [][]string
}

// Source - источник данных опроса
type Source interface {
	Read(ctx context.Context) (*Raw, error)
	Describe() string
}

// Loader загружает таблицу при первом успешном вызове Load и кеширует ее.
// Неудачная загрузка не кешируется. Одновременные первые вызовы разделяют
// одно чтение источника.
type Loader struct {
	cfg       Config
	source    Source
	validator *schema.Validator
	retryer   *retry.Retryer

	group singleflight.Group

	mu    sync.RWMutex
	table *dataset.Table
	reads int
}

// Option настраивает Loader
type Option func(*Loader)

// WithSource подменяет источник, построенный по конфигурации
func WithSource(src Source) Option {
	return func(l *Loader) { l.source = src }
}

// New создает Loader по конфигурации. Источник не читается до вызова Load.
func New(cfg Config, opts ...Option) (*Loader, error) {
	l := &Loader{cfg: cfg}
	for _, opt := range opts {
		opt(l)
	}

	if l.source == nil {
		if err := l.cfg.Validate(); err != nil {
			return nil, fmt.Errorf("dataset config: %w", err)
		}
		src, err := newSource(context.Background(), l.cfg.Source)
		if err != nil {
			return nil, fmt.Errorf("dataset source: %w", err)
		}
		l.source = src
	}

	v, err := schema.NewValidator(l.cfg.Schema)
	if err != nil {
		return nil, err
	}
	l.validator = v

	retryCfg := l.cfg.Source.Retry
	if !l.cfg.Source.remote() {
		retryCfg.Enabled = false
	}
	retryCfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).
			Str("source", l.source.Describe()).Msg("dataset read failed, retrying")
	}
	l.retryer, err = retry.NewRetryer(retryCfg)
	if err != nil {
		return nil, err
	}

	if l.cfg.Name == "" {
		l.cfg.Name = "survey"
	}
	return l, nil
}

func newSource(ctx context.Context, src SourceConfig) (Source, error) {
	switch src.Type {
	case SourceCSV:
		return &csvSource{path: src.Path, opts: csvOptions(src)}, nil
	case SourceXLSX:
		return &xlsxSource{path: src.Path, sheet: src.Sheet}, nil
	case SourceSQLite, SourcePostgres, SourceMySQL, SourceMSSQL:
		return newSQLSource(src)
	case SourceS3:
		bucket, key, err := src.S3.Location()
		if err != nil {
			return nil, err
		}
		client, err := NewS3Client(ctx, src.S3)
		if err != nil {
			return nil, err
		}
		return &s3Source{bucket: bucket, key: key, sheet: src.Sheet, csv: csvOptions(src), client: client}, nil
	}
	return nil, fmt.Errorf("unknown source type %q", src.Type)
}

// Load возвращает таблицу опроса, читая источник только при первом успешном вызове.
//
// Ошибки: dataset.ErrDataUnavailable (источник недоступен или пуст),
// dataset.ErrSchemaMismatch (заголовок не совпадает со схемой).
func (l *Loader) Load(ctx context.Context) (*dataset.Table, error) {
	if t, ok := l.Table(); ok {
		return t, nil
	}

	v, err, _ := l.group.Do("load", func() (any, error) {
		if t, ok := l.Table(); ok {
			return t, nil
		}

		t, err := l.load(ctx)
		if err != nil {
			return nil, err
		}

		l.mu.Lock()
		l.table = t
		l.mu.Unlock()
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*dataset.Table), nil
}

// Table возвращает загруженную таблицу, не обращаясь к источнику
func (l *Loader) Table() (*dataset.Table, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.table, l.table != nil
}

// Reads - сколько раз источник был прочитан
func (l *Loader) Reads() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.reads
}

// Name - имя набора данных
func (l *Loader) Name() string {
	return l.cfg.Name
}

// Describe описывает источник для логов
func (l *Loader) Describe() string {
	return l.source.Describe()
}

func (l *Loader) load(ctx context.Context) (*dataset.Table, error) {
	start := time.Now()
	desc := l.source.Describe()

	var raw *Raw
	err := l.retryer.Do(ctx, func(ctx context.Context) error {
		readCtx := ctx
		if l.cfg.Source.Timeout > 0 {
			var cancel context.CancelFunc
			readCtx, cancel = context.WithTimeout(ctx, l.cfg.Source.Timeout)
			defer cancel()
		}

		l.mu.Lock()
		l.reads++
		l.mu.Unlock()

		r, err := l.source.Read(readCtx)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return retry.Permanent(err)
			}
			return err
		}
		raw = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", dataset.ErrDataUnavailable, desc, err)
	}

	s, err := l.validator.Resolve(raw.Header)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", dataset.ErrSchemaMismatch, desc, err)
	}

	if len(raw.Records) == 0 {
		return nil, fmt.Errorf("%w: %s: dataset has a header but no responses", dataset.ErrDataUnavailable, desc)
	}

	t, err := dataset.NewTable(l.cfg.Name, desc, s, raw.Records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", desc, err)
	}

	log.Info().
		Str("source", desc).
		Int("rows", t.Len()).
		Int("columns", t.Width()).
		Str("fingerprint", t.Fingerprint()).
		Dur("duration", time.Since(start)).
		Msg("dataset loaded")

	return t, nil
}
