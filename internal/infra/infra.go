package infra

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/ruslano69/surveydash/pkg/audit"
	"github.com/ruslano69/surveydash/pkg/brokers"
	"github.com/ruslano69/surveydash/pkg/gate"
	"github.com/ruslano69/surveydash/pkg/resilience"
)

// auditDrivers maps audit.database.driver to database/sql driver names.
var auditDrivers = map[string]string{
	"sqlite":   "sqlite",
	"postgres": "pgx",
	"mysql":    "mysql",
}

// Infra holds all live infrastructure handles for the running service.
type Infra struct {
	Redis    *redis.Client // nil with the memory session backend
	Sessions gate.SessionStore
	Gate     *gate.Gate
	Audit    audit.Logger

	auditDB *sql.DB

	// dev-mode internal instance; nil in production
	mini *miniredis.Miniredis
}

// SetupLogging configures the global zerolog logger.
func SetupLogging(cfg LoggingConfig, out io.Writer) error {
	if out == nil {
		out = os.Stderr
	}

	level := zerolog.InfoLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return fmt.Errorf("logging.level: %w", err)
		}
		level = l
	}
	zerolog.SetGlobalLevel(level)

	if strings.ToLower(cfg.Format) == "json" {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}
	return nil
}

// Setup initialises the session store, the access gate and the audit trail.
//   - dev=true with the redis backend: starts an in-process miniredis.
//   - dev=false: connects to sessions.redis.addr.
func Setup(cfg *Config, dev bool) (*Infra, error) {
	inf := &Infra{}

	switch cfg.Sessions.Backend {
	case "redis":
		if dev {
			var err error
			inf.mini, err = miniredis.Run()
			if err != nil {
				return nil, fmt.Errorf("infra: miniredis: %w", err)
			}
			inf.Redis = redis.NewClient(&redis.Options{Addr: inf.mini.Addr()})
			log.Info().Str("redis", inf.mini.Addr()).Msg("dev: in-process miniredis started")
		} else {
			inf.Redis = redis.NewClient(&redis.Options{
				Addr:     cfg.Sessions.Redis.Addr,
				Password: cfg.Sessions.Redis.Password,
				DB:       cfg.Sessions.Redis.DB,
			})
		}
		if err := inf.Redis.Ping(context.Background()).Err(); err != nil {
			inf.Close()
			return nil, fmt.Errorf("infra: session redis ping: %w", err)
		}
		inf.Sessions = gate.NewRedisStore(inf.Redis)
	default:
		inf.Sessions = gate.NewMemoryStore()
	}

	inf.Gate = gate.New(cfg.Security.Password, inf.Sessions, cfg.Security.SessionTTL)

	logger, err := inf.setupAudit(cfg.Audit)
	if err != nil {
		inf.Close()
		return nil, err
	}
	inf.Audit = logger

	return inf, nil
}

// setupAudit builds the audit logger from the enabled appenders.
// A broker that cannot be reached is logged and skipped.
func (inf *Infra) setupAudit(cfg AuditConfig) (audit.Logger, error) {
	if !cfg.Enabled {
		return audit.NewNullLogger(), nil
	}
	level := cfg.AuditLevel()

	var appenders []audit.Appender

	if cfg.Log {
		appenders = append(appenders, audit.NewLogAppender(log.Logger, level))
	}

	if cfg.File.Enabled {
		fc := cfg.File.FileAppenderConfig
		fc.Level = level
		fa, err := audit.NewFileAppender(fc)
		if err != nil {
			return nil, fmt.Errorf("infra: audit file: %w", err)
		}
		appenders = append(appenders, fa)
	}

	if cfg.Database.Enabled {
		db, err := sql.Open(auditDrivers[cfg.Database.Driver], cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("infra: audit database: %w", err)
		}
		inf.auditDB = db

		da, err := audit.NewDatabaseAppender(audit.DatabaseAppenderConfig{
			DB:              db,
			Dialect:         cfg.Database.Driver,
			TableName:       cfg.Database.Table,
			Level:           level,
			BatchSize:       cfg.Database.BatchSize,
			AutoCreateTable: true,
		})
		if err != nil {
			return nil, fmt.Errorf("infra: audit database: %w", err)
		}

		if cfg.Database.Retention > 0 {
			n, err := da.DeleteOlderThan(context.Background(), time.Now().Add(-cfg.Database.Retention))
			if err != nil {
				log.Warn().Err(err).Msg("audit retention cleanup failed")
			} else if n > 0 {
				log.Info().Int64("deleted", n).Dur("retention", cfg.Database.Retention).Msg("audit retention cleanup")
			}
		}
		appenders = append(appenders, da)
	}

	if cfg.Broker.Enabled {
		ba, err := connectBroker(cfg.Broker, level)
		if err != nil {
			log.Warn().Err(err).Str("broker", cfg.Broker.Type).Msg("audit broker unavailable, continuing without it")
		} else {
			appenders = append(appenders, ba)
		}
	}

	lc := audit.SyncConfig()
	if cfg.Async {
		lc = audit.DefaultConfig()
		lc.BufferSize = cfg.Buffer
	}
	return audit.NewLogger(lc, appenders...), nil
}

func connectBroker(cfg BrokerAuditConfig, level audit.Level) (*audit.BrokerAppender, error) {
	pub, err := brokers.New(cfg.Config)
	if err != nil {
		return nil, err
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := pub.Connect(ctx); err != nil {
		return nil, err
	}

	retryCfg := cfg.Retry
	retryCfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("audit publish failed, retrying")
	}
	breakerCfg := cfg.Breaker
	breakerCfg.OnStateChange = func(name string, from, to resilience.State) {
		log.Warn().Str("breaker", name).Stringer("from", from).Stringer("to", to).Msg("audit broker circuit state changed")
	}
	ba, err := audit.NewBrokerAppender(pub, audit.BrokerAppenderConfig{
		Retry:   retryCfg,
		Breaker: breakerCfg,
		Level:   level,
	})
	if err != nil {
		pub.Close()
		return nil, err
	}
	log.Info().Str("broker", pub.Type()).Msg("audit broker connected")
	return ba, nil
}

// Ping checks the session backend.
func (inf *Infra) Ping(ctx context.Context) error {
	return inf.Sessions.Ping(ctx)
}

// Close releases all infrastructure resources.
func (inf *Infra) Close() {
	if inf.Audit != nil {
		if err := inf.Audit.Close(); err != nil {
			log.Warn().Err(err).Msg("audit close failed")
		}
	}
	if inf.auditDB != nil {
		_ = inf.auditDB.Close()
	}
	if inf.Redis != nil {
		_ = inf.Redis.Close()
	}
	if inf.mini != nil {
		inf.mini.Close()
	}
}
