package loader

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/ruslano69/surveydash/pkg/security"
)

// driverNames - имена драйверов database/sql по типу источника
var driverNames = map[string]string{
	SourceSQLite:   "sqlite",
	SourcePostgres: "pgx",
	SourceMySQL:    "mysql",
	SourceMSSQL:    "sqlserver",
}

// sqlSource читает опрос одним SELECT-запросом. NULL становится пустым ответом.
type sqlSource struct {
	kind  string
	dsn   string
	query string
}

func newSQLSource(src SourceConfig) (*sqlSource, error) {
	dsn := src.DSN
	if dsn == "" && src.Type == SourceSQLite {
		dsn = src.Path
	}

	query := src.Query
	if query == "" {
		query = "SELECT * FROM " + quoteTable(src.Type, src.Table)
	}

	if err := security.NewSQLValidator(true).Validate(query); err != nil {
		return nil, err
	}

	return &sqlSource{kind: src.Type, dsn: dsn, query: query}, nil
}

func (s *sqlSource) Describe() string {
	return s.kind + ":" + redactDSN(s.dsn)
}

func (s *sqlSource) Read(ctx context.Context) (*Raw, error) {
	db, err := sql.Open(driverNames[s.kind], s.dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.kind, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	raw := &Raw{Header: header}
	cells := make([]sql.NullString, len(header))
	dest := make([]any, len(header))
	for i := range cells {
		dest[i] = &cells[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", len(raw.Records)+1, err)
		}
		rec := make([]string, len(cells))
		for i, c := range cells {
			if c.Valid {
				rec[i] = c.String
			}
		}
		raw.Records = append(raw.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return raw, nil
}

// quoteTable экранирует имя таблицы для диалекта ("schema.table" допускается)
func quoteTable(kind, table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		switch kind {
		case SourceMySQL:
			parts[i] = "`" + strings.ReplaceAll(p, "`", "``") + "`"
		case SourceMSSQL:
			parts[i] = "[" + strings.ReplaceAll(p, "]", "]]") + "]"
		default:
			parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
		}
	}
	return strings.Join(parts, ".")
}

// redactDSN скрывает пароль в DSN для логов
func redactDSN(dsn string) string {
	if at := strings.LastIndex(dsn, "@"); at > 0 {
		if colon := strings.LastIndex(dsn[:at], ":"); colon > 0 && !strings.Contains(dsn[colon:at], "/") {
			return dsn[:colon+1] + "***" + dsn[at:]
		}
	}
	return dsn
}
