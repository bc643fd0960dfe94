package brokers

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQ публикует сообщения в очередь RabbitMQ
type RabbitMQ struct {
	config  Config
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewRabbitMQ создает RabbitMQ publisher
func NewRabbitMQ(cfg Config) (*RabbitMQ, error) {
	if cfg.Queue == "" && cfg.Exchange == "" {
		return nil, fmt.Errorf("queue or exchange is required for RabbitMQ")
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		if cfg.UseTLS {
			cfg.Port = 5671
		} else {
			cfg.Port = 5672
		}
	}
	if cfg.VHost == "" {
		cfg.VHost = "/"
	}
	if cfg.RoutingKey == "" {
		cfg.RoutingKey = cfg.Queue
	}
	return &RabbitMQ{config: cfg}, nil
}

// URL формирует строку подключения amqp[s]://user:password@host:port/vhost
func (r *RabbitMQ) URL() string {
	u := url.URL{
		Scheme:  "amqp",
		Host:    fmt.Sprintf("%s:%d", r.config.Host, r.config.Port),
		Path:    "/" + r.config.VHost,
		RawPath: "/" + url.PathEscape(r.config.VHost),
	}
	if r.config.UseTLS {
		u.Scheme = "amqps"
	}
	if r.config.User != "" {
		u.User = url.UserPassword(r.config.User, r.config.Password)
	}
	return u.String()
}

// Connect открывает соединение и канал, объявляет очередь (если задана)
func (r *RabbitMQ) Connect(ctx context.Context) error {
	var err error
	if r.config.UseTLS {
		r.conn, err = amqp.DialTLS(r.URL(), &tls.Config{
			ServerName: r.config.Host,
			MinVersion: tls.VersionTLS12,
		})
	} else {
		r.conn, err = amqp.Dial(r.URL())
	}
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	r.channel, err = r.conn.Channel()
	if err != nil {
		r.conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}

	if r.config.Queue != "" {
		if _, err := r.channel.QueueDeclare(r.config.Queue, r.config.Durable, false, false, false, nil); err != nil {
			r.channel.Close()
			r.conn.Close()
			return fmt.Errorf("failed to declare queue: %w", err)
		}
	}
	return nil
}

// Publish отправляет persistent-сообщение
func (r *RabbitMQ) Publish(ctx context.Context, key string, body []byte) error {
	if r.channel == nil {
		return fmt.Errorf("not connected to RabbitMQ")
	}

	err := r.channel.PublishWithContext(ctx, r.config.Exchange, r.config.RoutingKey, false, false,
		amqp.Publishing{
			ContentType:  r.config.ContentType,
			MessageId:    key,
			AppId:        "surveydash",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Ping проверяет, что соединение и канал открыты
func (r *RabbitMQ) Ping(ctx context.Context) error {
	if r.conn == nil || r.conn.IsClosed() {
		return fmt.Errorf("not connected to RabbitMQ")
	}
	if r.channel == nil || r.channel.IsClosed() {
		return fmt.Errorf("channel not open")
	}
	return nil
}

// Close закрывает канал и соединение
func (r *RabbitMQ) Close() error {
	if r.channel != nil {
		if err := r.channel.Close(); err != nil && err != amqp.ErrClosed {
			return fmt.Errorf("failed to close channel: %w", err)
		}
	}
	if r.conn != nil {
		if err := r.conn.Close(); err != nil && err != amqp.ErrClosed {
			return fmt.Errorf("failed to close connection: %w", err)
		}
	}
	return nil
}

// Type возвращает тип брокера
func (r *RabbitMQ) Type() string {
	return "rabbitmq"
}
