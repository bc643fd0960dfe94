// surveyserve serves the password-gated survey dashboard API.
//
// Usage:
//
//	surveyserve [--dev] [--config path] [--addr :8501]
//
// Flags:
//
//	--dev     Start in dev mode: in-process miniredis for the redis session backend
//	--config  Path to surveydash.yaml (default: configs/surveydash.yaml)
//	--addr    Override server.addr from config
//
// Environment:
//
//	SURVEYDASH_PASSWORD  dashboard password (used when security.password is empty)
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ruslano69/surveydash/internal/api"
	"github.com/ruslano69/surveydash/internal/infra"
	"github.com/ruslano69/surveydash/pkg/audit"
	"github.com/ruslano69/surveydash/pkg/loader"
	"github.com/ruslano69/surveydash/pkg/resultlog"
	"github.com/ruslano69/surveydash/pkg/security"
)

func main() {
	dev := flag.Bool("dev", false, "dev mode: in-process miniredis for redis sessions")
	configPath := flag.String("config", "configs/surveydash.yaml", "path to config file")
	addrOverride := flag.String("addr", "", "listen address override (e.g. :8080)")
	flag.Parse()

	cfg, err := infra.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("config load failed")
	}
	if *addrOverride != "" {
		cfg.Server.Addr = *addrOverride
	}
	if err := infra.SetupLogging(cfg.Logging, os.Stderr); err != nil {
		log.Fatal().Err(err).Msg("logging setup failed")
	}

	if err := security.CheckPrivileges(cfg.Security.AllowElevated); err != nil {
		log.Fatal().Err(err).Msg("SECURITY: privilege check failed, refusing to start")
	}

	inf, err := infra.Setup(cfg, *dev)
	if err != nil {
		log.Fatal().Err(err).Msg("infrastructure setup failed")
	}
	defer inf.Close()

	if *dev {
		log.Warn().Msg("DEV MODE ACTIVE: in-process miniredis, do not use in production")
	}
	if cfg.Security.Password == "" {
		log.Warn().Msg("no password configured, the dashboard is open to everyone")
	}

	// The dataset is loaded once; a broken source stops startup.
	ld, err := loader.New(cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("dataset config invalid")
	}
	start := time.Now()
	tbl, err := ld.Load(context.Background())
	if inf.Redis != nil {
		pub := resultlog.NewRedisPublisher(inf.Redis, cfg.Security.SessionTTL)
		res := resultlog.NewLoadResult(ld.Name(), ld.Describe(), start, tbl, err)
		if perr := pub.Publish(context.Background(), res); perr != nil {
			log.Warn().Err(perr).Msg("load result not published")
		}
	}
	if err != nil {
		inf.Audit.Record(context.Background(), audit.NewEntry(audit.OpLoad, audit.StatusFailure).
			WithResource(ld.Describe()).WithError(err))
		inf.Close()
		log.Fatal().Err(err).Str("source", ld.Describe()).Msg("dataset load failed")
	}
	inf.Audit.Record(context.Background(), audit.NewEntry(audit.OpLoad, audit.StatusSuccess).
		WithResource(ld.Describe()).
		WithDataset(tbl.Fingerprint()).
		WithRows(tbl.Len()).
		Since(start))

	router := api.NewRouter(cfg, inf, tbl)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().
			Str("addr", cfg.Server.Addr).
			Bool("dev", *dev).
			Str("config", *configPath).
			Str("dataset", tbl.Name()).
			Int("responses", tbl.Len()).
			Msg("surveyserve started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	log.Info().Msg("stopped")
}
