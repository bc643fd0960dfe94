package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ruslano69/surveydash/pkg/brokers"
	"github.com/ruslano69/surveydash/pkg/resilience"
	"github.com/ruslano69/surveydash/pkg/retry"
)

// BrokerAppenderConfig - повторы, защита и уровень детализации сообщений
type BrokerAppenderConfig struct {
	Retry   retry.Config
	Breaker resilience.Config
	Level   Level
}

// BrokerAppender публикует записи JSON-сообщениями в Kafka или RabbitMQ.
// Записи, не доставленные за все попытки, сохраняются в DLQ ретраера.
// Пока breaker разомкнут, записи сразу уходят в DLQ без попыток публикации.
type BrokerAppender struct {
	publisher brokers.Publisher
	retryer   *retry.Retryer
	breaker   *resilience.Breaker
	level     Level
}

// NewBrokerAppender - publisher должен быть подключен (Connect)
func NewBrokerAppender(publisher brokers.Publisher, config BrokerAppenderConfig) (*BrokerAppender, error) {
	r, err := retry.NewRetryer(config.Retry)
	if err != nil {
		return nil, err
	}
	if config.Breaker.Name == "" {
		config.Breaker.Name = "audit-" + publisher.Type()
	}
	b, err := resilience.New(config.Breaker)
	if err != nil {
		return nil, err
	}
	return &BrokerAppender{publisher: publisher, retryer: r, breaker: b, level: config.Level}, nil
}

// Append - опубликовать запись. Ключ сообщения - сессия, иначе ID записи.
func (ba *BrokerAppender) Append(ctx context.Context, entry *Entry) error {
	filtered := entry.FilterByLevel(ba.level)

	body, err := filtered.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	key := filtered.SessionID
	if key == "" {
		key = filtered.ID
	}

	err = ba.breaker.Execute(ctx, func(ctx context.Context) error {
		return ba.retryer.DoWithData(ctx, func(ctx context.Context) error {
			return ba.publisher.Publish(ctx, key, body)
		}, filtered)
	})
	if errors.Is(err, resilience.ErrOpen) {
		if dlq := ba.retryer.DLQ(); dlq != nil {
			dlq.Add(retry.DLQEntry{
				Timestamp:   time.Now(),
				LastError:   err.Error(),
				FailureType: "circuit_open",
				Data:        filtered,
			})
		}
	}
	if err != nil {
		return fmt.Errorf("publish audit entry to %s: %w", ba.publisher.Type(), err)
	}
	return nil
}

// DLQ - очередь недоставленных записей (nil, если выключена)
func (ba *BrokerAppender) DLQ() *retry.DLQ {
	return ba.retryer.DLQ()
}

// Breaker - состояние защиты брокера
func (ba *BrokerAppender) Breaker() *resilience.Breaker {
	return ba.breaker
}

// Close сохраняет DLQ и закрывает соединение с брокером
func (ba *BrokerAppender) Close() error {
	dlqErr := ba.retryer.Close()
	if err := ba.publisher.Close(); err != nil {
		return err
	}
	return dlqErr
}
