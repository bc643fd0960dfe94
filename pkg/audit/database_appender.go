package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DatabaseAppender пишет записи в SQL таблицу (sqlite, postgres, mysql)
type DatabaseAppender struct {
	db        *sql.DB
	dialect   string
	tableName string
	level     Level
	batchSize int

	mu    sync.Mutex
	batch []*Entry
}

// DatabaseAppenderConfig - конфигурация database appender
type DatabaseAppenderConfig struct {
	DB *sql.DB

	// Dialect - sqlite, postgres, mysql (влияет на плейсхолдеры)
	Dialect string

	// TableName - имя таблицы (по умолчанию audit_log)
	TableName string

	Level Level

	// BatchSize - размер пакета вставки (0 = по одной записи)
	BatchSize int

	// AutoCreateTable - создать таблицу, если ее нет
	AutoCreateTable bool
}

// NewDatabaseAppender - создать database appender
func NewDatabaseAppender(config DatabaseAppenderConfig) (*DatabaseAppender, error) {
	if config.DB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if config.TableName == "" {
		config.TableName = "audit_log"
	}
	if !identRe.MatchString(config.TableName) {
		return nil, fmt.Errorf("invalid audit table name %q", config.TableName)
	}
	switch config.Dialect {
	case "":
		config.Dialect = "sqlite"
	case "sqlite", "postgres", "mysql":
	default:
		return nil, fmt.Errorf("unsupported audit database dialect %q (sqlite/postgres/mysql)", config.Dialect)
	}

	da := &DatabaseAppender{
		db:        config.DB,
		dialect:   config.Dialect,
		tableName: config.TableName,
		level:     config.Level,
		batchSize: config.BatchSize,
	}

	if config.AutoCreateTable {
		if err := da.createTable(); err != nil {
			return nil, fmt.Errorf("failed to create audit table: %w", err)
		}
	}
	return da, nil
}

func (da *DatabaseAppender) createTable() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id VARCHAR(64) PRIMARY KEY,
			occurred_at TIMESTAMP NOT NULL,
			operation VARCHAR(32) NOT NULL,
			status VARCHAR(16) NOT NULL,
			dataset VARCHAR(32),
			resource TEXT,
			filter_expr TEXT,
			rows_matched BIGINT DEFAULT 0,
			duration_ms BIGINT DEFAULT 0,
			error_message TEXT,
			session_id VARCHAR(64),
			remote_addr VARCHAR(64),
			metadata TEXT,
			detail TEXT
		)`, da.tableName)

	if _, err := da.db.Exec(query); err != nil {
		return err
	}

	for _, col := range []string{"occurred_at", "operation", "session_id"} {
		// mysql не поддерживает IF NOT EXISTS для индексов
		da.db.Exec(fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_%s ON %s(%s)", da.tableName, col, da.tableName, col))
	}
	return nil
}

// rebind заменяет ? на плейсхолдеры диалекта
func (da *DatabaseAppender) rebind(query string) string {
	if da.dialect != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (da *DatabaseAppender) insertQuery() string {
	return da.rebind(fmt.Sprintf(`INSERT INTO %s (
			id, occurred_at, operation, status, dataset, resource, filter_expr, rows_matched,
			duration_ms, error_message, session_id, remote_addr, metadata, detail
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, da.tableName))
}

func insertArgs(e *Entry) []any {
	metadata := "{}"
	if len(e.Metadata) > 0 {
		if b, err := json.Marshal(e.Metadata); err == nil {
			metadata = string(b)
		}
	}
	detail := ""
	if e.Detail != nil {
		if b, err := json.Marshal(e.Detail); err == nil {
			detail = string(b)
		}
	}
	return []any{
		e.ID, e.Timestamp.UTC(), string(e.Operation), string(e.Status), e.Dataset, e.Resource,
		e.Filter, e.Rows, e.Duration.Milliseconds(), e.Error, e.SessionID, e.RemoteAddr,
		metadata, detail,
	}
}

// Append - вставить запись (или добавить в пакет)
func (da *DatabaseAppender) Append(ctx context.Context, entry *Entry) error {
	filtered := entry.FilterByLevel(da.level)

	if da.batchSize > 0 {
		da.mu.Lock()
		da.batch = append(da.batch, filtered)
		full := len(da.batch) >= da.batchSize
		da.mu.Unlock()

		if full {
			return da.flushBatch(ctx)
		}
		return nil
	}

	if _, err := da.db.ExecContext(ctx, da.insertQuery(), insertArgs(filtered)...); err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

func (da *DatabaseAppender) flushBatch(ctx context.Context) error {
	da.mu.Lock()
	batch := da.batch
	da.batch = nil
	da.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	tx, err := da.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, da.insertQuery())
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range batch {
		if _, err := stmt.ExecContext(ctx, insertArgs(e)...); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert audit entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Flush - записать накопленный пакет
func (da *DatabaseAppender) Flush() error {
	return da.flushBatch(context.Background())
}

// Close - записать пакет. Соединение закрывает владелец *sql.DB.
func (da *DatabaseAppender) Close() error {
	return da.Flush()
}

// QueryFilter - фильтр выборки журнала
type QueryFilter struct {
	Operation Operation
	Status    Status
	SessionID string
	Since     time.Time
	Until     time.Time
	Limit     int
}

func (da *DatabaseAppender) where(f QueryFilter) (string, []any) {
	clause := " WHERE 1=1"
	var args []any

	if f.Operation != "" {
		clause += " AND operation = ?"
		args = append(args, string(f.Operation))
	}
	if f.Status != "" {
		clause += " AND status = ?"
		args = append(args, string(f.Status))
	}
	if f.SessionID != "" {
		clause += " AND session_id = ?"
		args = append(args, f.SessionID)
	}
	if !f.Since.IsZero() {
		clause += " AND occurred_at >= ?"
		args = append(args, f.Since.UTC())
	}
	if !f.Until.IsZero() {
		clause += " AND occurred_at <= ?"
		args = append(args, f.Until.UTC())
	}
	return clause, args
}

// Query возвращает записи журнала, новые первыми
func (da *DatabaseAppender) Query(ctx context.Context, f QueryFilter) ([]*Entry, error) {
	clause, args := da.where(f)
	query := fmt.Sprintf(`SELECT id, occurred_at, operation, status, dataset, resource, filter_expr,
		rows_matched, duration_ms, error_message, session_id, remote_addr, metadata, detail
		FROM %s%s ORDER BY occurred_at DESC`, da.tableName, clause)
	if f.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(f.Limit)
	}

	rows, err := da.db.QueryContext(ctx, da.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var (
			e                    Entry
			op, status           string
			durationMs           int64
			metadata, detail     sql.NullString
			dataset, resource    sql.NullString
			filter, errMsg       sql.NullString
			sessionID, remoteAdr sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &op, &status, &dataset, &resource, &filter,
			&e.Rows, &durationMs, &errMsg, &sessionID, &remoteAdr, &metadata, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		e.Operation = Operation(op)
		e.Status = Status(status)
		e.Dataset = dataset.String
		e.Resource = resource.String
		e.Filter = filter.String
		e.Error = errMsg.String
		e.SessionID = sessionID.String
		e.RemoteAddr = remoteAdr.String
		e.Duration = time.Duration(durationMs) * time.Millisecond
		if metadata.String != "" && metadata.String != "{}" {
			json.Unmarshal([]byte(metadata.String), &e.Metadata)
		}
		if detail.String != "" {
			json.Unmarshal([]byte(detail.String), &e.Detail)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return entries, nil
}

// Count - количество записей под фильтром
func (da *DatabaseAppender) Count(ctx context.Context, f QueryFilter) (int64, error) {
	clause, args := da.where(f)
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", da.tableName, clause)

	var n int64
	if err := da.db.QueryRowContext(ctx, da.rebind(query), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return n, nil
}

// DeleteOlderThan удаляет записи старше before (ретеншн журнала)
func (da *DatabaseAppender) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	query := da.rebind(fmt.Sprintf("DELETE FROM %s WHERE occurred_at < ?", da.tableName))

	res, err := da.db.ExecContext(ctx, query, before.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old entries: %w", err)
	}
	return res.RowsAffected()
}
