// Package resultlog публикует результат загрузки набора данных в Redis.
package resultlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ruslano69/surveydash/pkg/core/dataset"
)

// LoadResult - состояние последней загрузки набора, публикуемое в Redis.
//
// Redis-ключи:
//
//	SET  surveydash:dataset:<name>:state  <JSON>  EX <ttl>  - для опроса
//	PUB  surveydash:dataset:<name>                          - для подписчиков
type LoadResult struct {
	Dataset     string    `json:"dataset"`
	Source      string    `json:"source"`
	Status      string    `json:"status"` // "success" | "failed"
	Fingerprint string    `json:"fingerprint,omitempty"`
	Rows        int       `json:"rows"`
	Columns     int       `json:"columns"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	DurationMs  int64     `json:"duration_ms"`
	Error       *string   `json:"error,omitempty"`
}

// NewLoadResult собирает результат загрузки. tbl == nil при ошибке.
func NewLoadResult(name, source string, started time.Time, tbl *dataset.Table, loadErr error) LoadResult {
	finished := time.Now()
	r := LoadResult{
		Dataset:    name,
		Source:     source,
		Status:     "success",
		StartedAt:  started.UTC(),
		FinishedAt: finished.UTC(),
		DurationMs: finished.Sub(started).Milliseconds(),
	}
	if tbl != nil {
		r.Fingerprint = tbl.Fingerprint()
		r.Rows = tbl.Len()
		r.Columns = tbl.Width()
	}
	if loadErr != nil {
		r.Status = "failed"
		msg := loadErr.Error()
		r.Error = &msg
	}
	return r
}

// RedisPublisher публикует результаты загрузки в Redis
type RedisPublisher struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPublisher использует существующего клиента; ttl 0 - без срока
func NewRedisPublisher(client *redis.Client, ttl time.Duration) *RedisPublisher {
	return &RedisPublisher{client: client, ttl: ttl}
}

func stateKey(name string) string { return "surveydash:dataset:" + name + ":state" }

// Channel - канал событий загрузки набора
func Channel(name string) string { return "surveydash:dataset:" + name }

// Publish сохраняет состояние и рассылает событие.
// Вызывается независимо от исхода загрузки.
func (p *RedisPublisher) Publish(ctx context.Context, result LoadResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := p.client.Set(ctx, stateKey(result.Dataset), payload, p.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET failed: %w", err)
	}
	if err := p.client.Publish(ctx, Channel(result.Dataset), payload).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH failed: %w", err)
	}
	return nil
}

// Last возвращает последнее опубликованное состояние набора.
// ok == false, если состояние не публиковалось или истекло.
func (p *RedisPublisher) Last(ctx context.Context, name string) (LoadResult, bool, error) {
	var r LoadResult
	payload, err := p.client.Get(ctx, stateKey(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return r, false, nil
	}
	if err != nil {
		return r, false, fmt.Errorf("redis GET failed: %w", err)
	}
	if err := json.Unmarshal(payload, &r); err != nil {
		return r, false, fmt.Errorf("failed to decode result: %w", err)
	}
	return r, true, nil
}
