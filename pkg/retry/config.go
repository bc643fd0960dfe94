package retry

import (
	"fmt"
	"time"
)

// BackoffStrategy определяет стратегию задержки между повторами
type BackoffStrategy string

const (
	// BackoffConstant - постоянная задержка
	BackoffConstant BackoffStrategy = "constant"
	// BackoffLinear - линейное увеличение задержки
	BackoffLinear BackoffStrategy = "linear"
	// BackoffExponential - экспоненциальное увеличение задержки
	BackoffExponential BackoffStrategy = "exponential"
)

// Config - настройки повторов (секции dataset.source.retry и audit.broker.retry)
type Config struct {
	Enabled bool `yaml:"enabled"`

	// MaxAttempts - максимум попыток, включая первую (0 = без ограничения)
	MaxAttempts int `yaml:"max_attempts"`

	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`

	Backoff    BackoffStrategy `yaml:"backoff"`
	Multiplier float64         `yaml:"multiplier"`

	// Jitter - доля случайного отклонения задержки (0.0 - 1.0)
	Jitter float64 `yaml:"jitter"`

	// RetryOn - подстроки текста ошибки, при которых нужен повтор.
	// Пустой список = повтор при любой ошибке, кроме Permanent.
	RetryOn []string `yaml:"retry_on"`

	// OnRetry вызывается перед каждым повтором
	OnRetry func(attempt int, err error, delay time.Duration) `yaml:"-"`

	DLQ DLQConfig `yaml:"dlq"`
}

// DLQConfig - файл для данных, которые не удалось обработать за все попытки
type DLQConfig struct {
	Enabled   bool          `yaml:"enabled"`
	FilePath  string        `yaml:"file"`
	MaxSize   int           `yaml:"max_size"`
	Retention time.Duration `yaml:"retention"`
}

// Validate проверяет конфигурацию и подставляет множитель по умолчанию
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts must be >= 0, got %d", c.MaxAttempts)
	}
	if c.InitialDelay < 0 {
		return fmt.Errorf("initial_delay must be >= 0")
	}
	if c.MaxDelay < c.InitialDelay {
		return fmt.Errorf("max_delay (%v) must be >= initial_delay (%v)", c.MaxDelay, c.InitialDelay)
	}

	switch c.Backoff {
	case BackoffConstant, BackoffLinear, BackoffExponential:
	default:
		return fmt.Errorf("invalid backoff strategy: %q", c.Backoff)
	}

	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.Jitter < 0 || c.Jitter > 1.0 {
		return fmt.Errorf("jitter must be between 0.0 and 1.0, got %f", c.Jitter)
	}
	if c.DLQ.Enabled && c.DLQ.FilePath == "" {
		return fmt.Errorf("dlq.file is required when dlq is enabled")
	}

	return nil
}

// DefaultConfig возвращает конфигурацию по умолчанию (повторы выключены)
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Backoff:      BackoffExponential,
		Multiplier:   2.0,
		Jitter:       0.1,
		DLQ: DLQConfig{
			FilePath:  "./audit-dlq.json",
			MaxSize:   10000,
			Retention: 7 * 24 * time.Hour,
		},
	}
}

// EnableRetry создает конфигурацию с включенными повторами
func EnableRetry(maxAttempts int, initialDelay time.Duration) Config {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.MaxAttempts = maxAttempts
	cfg.InitialDelay = initialDelay
	if cfg.MaxDelay < initialDelay {
		cfg.MaxDelay = initialDelay
	}
	return cfg
}
