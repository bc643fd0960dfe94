package main

import (
	"bytes"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/ruslano69/surveydash/pkg/audit"
	"github.com/ruslano69/surveydash/pkg/core/dataset"
	"github.com/ruslano69/surveydash/pkg/core/schema"
	"github.com/ruslano69/surveydash/pkg/filter"
	"github.com/ruslano69/surveydash/pkg/kpi"
	"github.com/ruslano69/surveydash/pkg/loader"
	"github.com/ruslano69/surveydash/pkg/viewer"
	"github.com/ruslano69/surveydash/pkg/xlsx"
)

var sqlDrivers = map[string]string{
	"sqlite":   "sqlite",
	"postgres": "pgx",
	"mysql":    "mysql",
}

// command is a parsed per-command flag set with the shared --where filter
type command struct {
	fs    *flag.FlagSet
	where *string
}

func newCommand(name string) *command {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	return &command{fs: fs, where: fs.String("where", "", "Filter expression")}
}

func (c *command) parse(args []string) error {
	if err := c.fs.Parse(args); err != nil {
		return err
	}
	if c.fs.NArg() > 0 {
		return fmt.Errorf("%s: unexpected arguments %v", c.fs.Name(), c.fs.Args())
	}
	return nil
}

// load reads the dataset and applies the --where filter
func (a *app) load(ctx context.Context, where string) (*dataset.View, filter.FilterSet, error) {
	ld, err := loader.New(a.cfg.Dataset)
	if err != nil {
		return nil, nil, err
	}
	tbl, err := ld.Load(ctx)
	if err != nil {
		return nil, nil, err
	}

	fs, err := filter.Combine(nil, where)
	if err != nil {
		return nil, nil, err
	}
	v, err := filter.Apply(tbl, fs)
	if err != nil {
		return nil, nil, err
	}
	return v, fs, nil
}

type infoOutput struct {
	Name        string          `json:"name"`
	Source      string          `json:"source"`
	Rows        int             `json:"rows"`
	Matched     int             `json:"matched"`
	Where       string          `json:"where,omitempty"`
	Fingerprint string          `json:"fingerprint"`
	LoadedAt    time.Time       `json:"loaded_at"`
	Columns     []schema.Column `json:"columns"`
}

func (a *app) info(ctx context.Context, args []string) error {
	c := newCommand("info")
	if err := c.parse(args); err != nil {
		return err
	}
	v, fs, err := a.load(ctx, *c.where)
	if err != nil {
		return err
	}

	t := v.Table()
	return a.print(infoOutput{
		Name:        t.Name(),
		Source:      t.Source(),
		Rows:        t.Len(),
		Matched:     v.Len(),
		Where:       fs.Where(),
		Fingerprint: t.Fingerprint(),
		LoadedAt:    t.LoadedAt(),
		Columns:     t.Schema().Columns(),
	})
}

func (a *app) options(ctx context.Context, args []string) error {
	c := newCommand("options")
	question := c.fs.String("question", "", "Question name")
	if err := c.parse(args); err != nil {
		return err
	}
	if *question == "" {
		return fmt.Errorf("options: --question is required")
	}
	v, _, err := a.load(ctx, *c.where)
	if err != nil {
		return err
	}

	opts, err := filter.Options(v, *question)
	if err != nil {
		return err
	}
	return a.print(opts)
}

func (a *app) kpis(ctx context.Context, args []string) error {
	c := newCommand("kpis")
	if err := c.parse(args); err != nil {
		return err
	}
	v, _, err := a.load(ctx, *c.where)
	if err != nil {
		return err
	}
	return a.print(kpi.Dashboard(v, a.cfg.KPIs))
}

func (a *app) summary(ctx context.Context, args []string) error {
	c := newCommand("summary")
	var groupBy stringList
	c.fs.Var(&groupBy, "group-by", "Question to group by (repeatable)")
	statistic := c.fs.String("statistic", "count", "count, percentage or mean")
	measure := c.fs.String("measure", "", "Numeric question for mean")
	limit := c.fs.Int("limit", 0, "Keep the N largest groups (0 = all)")
	if err := c.parse(args); err != nil {
		return err
	}
	v, _, err := a.load(ctx, *c.where)
	if err != nil {
		return err
	}

	s, err := kpi.Summarize(v, kpi.Spec{
		GroupBy:   groupBy,
		Statistic: kpi.Statistic(*statistic),
		Measure:   *measure,
		Limit:     *limit,
	})
	if err != nil {
		return err
	}
	return a.print(s)
}

func (a *app) response(ctx context.Context, args []string) error {
	c := newCommand("response")
	index := c.fs.Int("index", -1, "Respondent index (0-based, unfiltered)")
	position := c.fs.Int("position", -1, "Position within the --where selection")
	if err := c.parse(args); err != nil {
		return err
	}
	v, _, err := a.load(ctx, *c.where)
	if err != nil {
		return err
	}

	if *position >= 0 {
		rec, err := viewer.ViewResponse(v, *position)
		if err != nil {
			return err
		}
		return a.print(rec)
	}
	answers, err := viewer.GetResponse(v.Table(), *index)
	if err != nil {
		return err
	}
	return a.print(viewer.Record{Index: *index, Answers: answers})
}

type exportOutput struct {
	Out   string `json:"out"`
	Rows  int    `json:"rows"`
	Bytes int    `json:"bytes"`
	Where string `json:"where,omitempty"`
}

func (a *app) export(ctx context.Context, args []string) error {
	c := newCommand("export")
	out := c.fs.String("out", "", "Output file (.xlsx, .csv, .csv.gz) or s3://bucket/key")
	sheet := c.fs.String("sheet", "Responses", "Worksheet name for xlsx")
	if err := c.parse(args); err != nil {
		return err
	}
	if *out == "" {
		return fmt.Errorf("export: --out is required")
	}
	v, fs, err := a.load(ctx, *c.where)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := encodeExport(&buf, v, *out, *sheet); err != nil {
		return err
	}

	if strings.HasPrefix(*out, "s3://") {
		s3cfg := a.cfg.Dataset.Source.S3
		s3cfg.URL = *out
		if err := uploadS3(ctx, s3cfg, bytes.NewReader(buf.Bytes())); err != nil {
			return err
		}
	} else {
		if dir := filepath.Dir(*out); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		if err := os.WriteFile(*out, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("export: %w", err)
		}
	}

	return a.print(exportOutput{Out: *out, Rows: v.Len(), Bytes: buf.Len(), Where: fs.Where()})
}

// encodeExport picks the format from the target's extension
func encodeExport(w io.Writer, v *dataset.View, target, sheet string) error {
	name := strings.ToLower(target)
	switch {
	case strings.HasSuffix(name, ".xlsx"):
		return xlsx.WriteView(w, v, sheet)
	case strings.HasSuffix(name, ".csv.gz"):
		zw := gzip.NewWriter(w)
		if err := viewer.WriteCSV(zw, v); err != nil {
			return err
		}
		return zw.Close()
	case strings.HasSuffix(name, ".csv"):
		return viewer.WriteCSV(w, v)
	}
	return fmt.Errorf("export: cannot tell the format of %q (.xlsx, .csv, .csv.gz)", target)
}

func (a *app) auditLog(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("audit", flag.ContinueOnError)
	operation := fs.String("operation", "", "Only this operation (load, authenticate, filter, ...)")
	status := fs.String("status", "", "Only this status (success, failure, denied)")
	session := fs.String("session", "", "Only this session id")
	since := fs.Duration("since", 0, "Only entries newer than this (e.g. 24h)")
	limit := fs.Int("limit", 50, "Maximum entries, newest first")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dbc := a.cfg.Audit.Database
	if dbc.DSN == "" {
		return fmt.Errorf("audit: audit.database.dsn is not configured")
	}
	db, err := sql.Open(sqlDrivers[dbc.Driver], dbc.DSN)
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	defer db.Close()

	da, err := audit.NewDatabaseAppender(audit.DatabaseAppenderConfig{
		DB:        db,
		Dialect:   dbc.Driver,
		TableName: dbc.Table,
	})
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}

	q := audit.QueryFilter{
		Operation: audit.Operation(*operation),
		Status:    audit.Status(*status),
		SessionID: *session,
		Limit:     *limit,
	}
	if *since > 0 {
		q.Since = time.Now().Add(-*since)
	}
	entries, err := da.Query(ctx, q)
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	if entries == nil {
		entries = []*audit.Entry{}
	}
	return a.print(entries)
}
