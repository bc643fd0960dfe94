package resilience

import (
	"fmt"
	"time"
)

// Config - настройки circuit breaker (секция audit.broker.breaker)
type Config struct {
	// Enabled - выключенный breaker пропускает все вызовы
	Enabled bool `yaml:"enabled"`

	// MaxFailures - число ошибок подряд, после которого цепь размыкается
	MaxFailures uint32 `yaml:"max_failures"`

	// OpenTimeout - время в состоянии Open до пробного вызова
	OpenTimeout time.Duration `yaml:"open_timeout"`

	// SuccessThreshold - успешных пробных вызовов для замыкания
	SuccessThreshold uint32 `yaml:"success_threshold"`

	// Name - имя для логов
	Name string `yaml:"-"`

	// OnStateChange вызывается при смене состояния (в отдельной горутине)
	OnStateChange func(name string, from, to State) `yaml:"-"`
}

// Validate проверяет настройки и подставляет значения по умолчанию
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.MaxFailures == 0 {
		return fmt.Errorf("max_failures must be greater than 0")
	}
	if c.OpenTimeout <= 0 {
		return fmt.Errorf("open_timeout must be greater than 0")
	}
	if c.SuccessThreshold == 0 {
		c.SuccessThreshold = 1
	}
	if c.Name == "" {
		c.Name = "circuit-breaker"
	}
	return nil
}

// DefaultConfig - 5 ошибок подряд размыкают цепь на минуту
func DefaultConfig(name string) Config {
	return Config{
		Enabled:          true,
		Name:             name,
		MaxFailures:      5,
		OpenTimeout:      time.Minute,
		SuccessThreshold: 1,
	}
}
