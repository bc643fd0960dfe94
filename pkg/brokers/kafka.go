package brokers

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Kafka публикует сообщения в топик Apache Kafka
type Kafka struct {
	config Config
	writer *kafka.Writer
}

// NewKafka создает Kafka publisher
func NewKafka(cfg Config) (*Kafka, error) {
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic name is required for Kafka")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker address is required for Kafka")
	}
	return &Kafka{config: cfg}, nil
}

// Connect создает writer и проверяет доступность топика
func (k *Kafka) Connect(ctx context.Context) error {
	k.writer = &kafka.Writer{
		Addr:         kafka.TCP(k.config.Brokers...),
		Topic:        k.config.Topic,
		Balancer:     &kafka.Hash{}, // события одной сессии попадают в одну партицию
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
	}
	return k.Ping(ctx)
}

// Publish отправляет сообщение в топик
func (k *Kafka) Publish(ctx context.Context, key string, body []byte) error {
	if k.writer == nil {
		return fmt.Errorf("not connected to Kafka")
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: body,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte(k.config.ContentType)},
			{Key: "producer", Value: []byte("surveydash")},
		},
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}
	return nil
}

// Ping проверяет, что брокер отвечает и топик существует
func (k *Kafka) Ping(ctx context.Context) error {
	conn, err := kafka.DialContext(ctx, "tcp", k.config.Brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial Kafka broker: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ReadPartitions(k.config.Topic); err != nil {
		return fmt.Errorf("failed to read topic partitions: %w", err)
	}
	return nil
}

// Close закрывает writer
func (k *Kafka) Close() error {
	if k.writer == nil {
		return nil
	}
	if err := k.writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	return nil
}

// Type возвращает тип брокера
func (k *Kafka) Type() string {
	return "kafka"
}

// Stats возвращает статистику writer
func (k *Kafka) Stats() kafka.WriterStats {
	if k.writer == nil {
		return kafka.WriterStats{}
	}
	return k.writer.Stats()
}
