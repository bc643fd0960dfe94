package loader

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ruslano69/surveydash/pkg/core/schema"
	"github.com/ruslano69/surveydash/pkg/retry"
)

// Типы источников данных
const (
	SourceCSV      = "csv"
	SourceXLSX     = "xlsx"
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
	SourceMySQL    = "mysql"
	SourceMSSQL    = "mssql"
	SourceS3       = "s3"
)

// Config - секция dataset конфигурации
type Config struct {
	// Name - отображаемое имя набора данных
	Name string `yaml:"name"`

	Source SourceConfig `yaml:"source"`

	// Schema - ожидаемая структура анкеты
	Schema schema.Definition `yaml:"schema"`
}

// SourceConfig - откуда читать опрос
type SourceConfig struct {
	// Type - csv, xlsx, sqlite, postgres, mysql, mssql, s3.
	// Пустой тип определяется по расширению Path.
	Type string `yaml:"type"`

	// Path - файл для csv/xlsx/sqlite
	Path string `yaml:"path"`

	// CSV
	Delimiter   string `yaml:"delimiter"`
	Encoding    string `yaml:"encoding"`
	Compression string `yaml:"compression"` // auto, none, gzip, zstd

	// XLSX
	Sheet string `yaml:"sheet"`

	// SQL
	DSN   string `yaml:"dsn"`
	Query string `yaml:"query"`
	Table string `yaml:"table"`

	S3 S3Config `yaml:"s3"`

	// Timeout - ограничение на одно чтение источника
	Timeout time.Duration `yaml:"timeout"`

	// Retry - повторы для сетевых источников (sql, s3)
	Retry retry.Config `yaml:"retry"`
}

// S3Config - объект в S3-совместимом хранилище
type S3Config struct {
	// URL - s3://bucket/key (альтернатива Bucket + Key)
	URL       string `yaml:"url"`
	Bucket    string `yaml:"bucket"`
	Key       string `yaml:"key"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// DefaultConfig возвращает конфигурацию по умолчанию: CSV исходного дашборда
func DefaultConfig() Config {
	return Config{
		Name: "Vans survey",
		Source: SourceConfig{
			Type:        SourceCSV,
			Path:        "Vans_data_ultra_clean.csv",
			Delimiter:   ",",
			Encoding:    "utf-8",
			Compression: "auto",
			Timeout:     30 * time.Second,
			Retry:       retry.DefaultConfig(),
		},
	}
}

// Validate проверяет конфигурацию и определяет тип источника
func (c *Config) Validate() error {
	src := &c.Source

	if strings.HasPrefix(src.Path, "s3://") && src.S3.URL == "" {
		src.S3.URL = src.Path
	}
	if src.Type == "" {
		src.Type = typeFromPath(src.Path)
	}
	src.Type = strings.ToLower(src.Type)

	switch src.Type {
	case SourceCSV, SourceXLSX:
		if src.Path == "" {
			return fmt.Errorf("dataset.source.path is required for %s", src.Type)
		}
	case SourceSQLite:
		if src.Path == "" && src.DSN == "" {
			return fmt.Errorf("dataset.source.path or dsn is required for sqlite")
		}
		if src.Query == "" && src.Table == "" {
			return fmt.Errorf("dataset.source.query or table is required for %s", src.Type)
		}
	case SourcePostgres, SourceMySQL, SourceMSSQL:
		if src.DSN == "" {
			return fmt.Errorf("dataset.source.dsn is required for %s", src.Type)
		}
		if src.Query == "" && src.Table == "" {
			return fmt.Errorf("dataset.source.query or table is required for %s", src.Type)
		}
	case SourceS3:
		if _, _, err := src.S3.Location(); err != nil {
			return err
		}
	case "":
		return fmt.Errorf("dataset.source.type is required")
	default:
		return fmt.Errorf("unknown dataset.source.type %q", src.Type)
	}

	if src.Delimiter != "" && len([]rune(src.Delimiter)) != 1 {
		return fmt.Errorf("dataset.source.delimiter must be a single character, got %q", src.Delimiter)
	}

	switch strings.ToLower(src.Compression) {
	case "", "auto", "none", "gzip", "zstd":
	default:
		return fmt.Errorf("unknown dataset.source.compression %q (auto/none/gzip/zstd)", src.Compression)
	}

	if err := src.Retry.Validate(); err != nil {
		return fmt.Errorf("dataset.source.retry: %w", err)
	}
	return nil
}

// remote - источник доступен по сети и стоит повторов
func (s SourceConfig) remote() bool {
	switch s.Type {
	case SourcePostgres, SourceMySQL, SourceMSSQL, SourceS3:
		return true
	}
	return false
}

// Location разбирает bucket и key из URL или отдельных полей
func (c S3Config) Location() (string, string, error) {
	bucket, key := c.Bucket, c.Key
	if c.URL != "" {
		rest, ok := strings.CutPrefix(c.URL, "s3://")
		if !ok {
			return "", "", fmt.Errorf("dataset.source.s3.url must start with s3://, got %q", c.URL)
		}
		bucket, key, _ = strings.Cut(rest, "/")
	}
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("dataset.source.s3 needs bucket and key (or url s3://bucket/key)")
	}
	return bucket, key, nil
}

func typeFromPath(path string) string {
	p := strings.ToLower(path)
	if strings.HasPrefix(p, "s3://") {
		return SourceS3
	}
	p = strings.TrimSuffix(strings.TrimSuffix(p, ".gz"), ".zst")
	switch filepath.Ext(p) {
	case ".csv", ".tsv", ".txt":
		return SourceCSV
	case ".xlsx", ".xlsm":
		return SourceXLSX
	case ".db", ".sqlite", ".sqlite3":
		return SourceSQLite
	}
	return ""
}
