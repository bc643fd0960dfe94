// Package brokers публикует события дашборда (записи аудита) в очереди сообщений.
package brokers

import (
	"context"
	"fmt"
	"strings"
)

// Publisher - интерфейс публикации в брокер сообщений
type Publisher interface {
	// Connect устанавливает соединение с брокером
	Connect(ctx context.Context) error

	// Publish отправляет одно сообщение. key используется для партиционирования
	// (Kafka) или как message-id (RabbitMQ).
	Publish(ctx context.Context, key string, body []byte) error

	// Ping проверяет доступность брокера
	Ping(ctx context.Context) error

	// Close закрывает соединение
	Close() error

	// Type возвращает тип брокера (kafka, rabbitmq)
	Type() string
}

// Config - параметры подключения (секция audit.broker)
type Config struct {
	Type string `yaml:"type"` // kafka, rabbitmq

	// ContentType - тип содержимого сообщений
	ContentType string `yaml:"content_type"`

	// RabbitMQ
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	VHost      string `yaml:"vhost"`
	UseTLS     bool   `yaml:"tls"`
	Queue      string `yaml:"queue"`
	Exchange   string `yaml:"exchange"`    // пустая строка = default exchange
	RoutingKey string `yaml:"routing_key"` // пустой = имя очереди
	Durable    bool   `yaml:"durable"`     // должно совпадать с существующей очередью

	// Kafka
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// New создает Publisher по конфигурации. Соединение не открывается до Connect.
func New(cfg Config) (Publisher, error) {
	if cfg.ContentType == "" {
		cfg.ContentType = "application/json"
	}
	switch strings.ToLower(cfg.Type) {
	case "kafka":
		return NewKafka(cfg)
	case "rabbitmq", "amqp":
		return NewRabbitMQ(cfg)
	default:
		return nil, fmt.Errorf("unsupported broker type: %q (supported: kafka, rabbitmq)", cfg.Type)
	}
}
