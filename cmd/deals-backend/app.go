package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/go-deals-backend/internal/classify"
	"github.com/tbourn/go-deals-backend/internal/config"
	"github.com/tbourn/go-deals-backend/internal/counter"
	"github.com/tbourn/go-deals-backend/internal/domain"
	"github.com/tbourn/go-deals-backend/internal/fingerprint"
	"github.com/tbourn/go-deals-backend/internal/imageres"
	"github.com/tbourn/go-deals-backend/internal/llm"
	"github.com/tbourn/go-deals-backend/internal/repo"
	"github.com/tbourn/go-deals-backend/internal/services"
	"github.com/tbourn/go-deals-backend/internal/sysutil"
)

// app holds the wired services shared by the subcommands.
type app struct {
	cfg   config.Config
	log   zerolog.Logger
	db    *gorm.DB
	rdb   *redis.Client
	query *services.QueryService
	click *services.ClickService
	ing   *services.IngestService
}

func loadConfig() (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, zerolog.Nop(), err
	}
	log := sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, cfg.OTEL.ServiceName)
	return cfg, log, nil
}

func openDB(cfg config.Config) (*gorm.DB, error) {
	db, err := repo.Open(repo.Options{
		Driver:  cfg.DB.Driver,
		Path:    cfg.DB.Path,
		DSN:     cfg.DB.URL,
		Tracing: cfg.OTEL.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

// newApp opens the database (migrating it) and redis, and wires the
// services.
func newApp(ctx context.Context, cfg config.Config, log zerolog.Logger) (*app, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := repo.AutoMigrate(db); err != nil {
		closeDB(db)
		return nil, fmt.Errorf("migrate: %w", err)
	}
	rdb, err := counter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		closeDB(db)
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	a := &app{cfg: cfg, log: log, db: db, rdb: rdb}
	a.query = &services.QueryService{DB: db}
	a.click = &services.ClickService{
		DB:       db,
		Counters: counter.NewRedisStore(rdb),
		Location: cfg.Location(),
		Workers:  cfg.Clicks.FlushWorkers,
		Log:      log.With().Str("component", "clicks").Logger(),
	}
	a.ing = newIngestService(cfg, db, log)
	return a, nil
}

func newClassifier(cfg config.Config, log zerolog.Logger) *classify.Classifier {
	// Leave the interface nil, not a typed nil, when disabled.
	var completer classify.Completer
	if cfg.LLM.APIKey != "" {
		completer = llm.NewClient(llm.Config{
			APIKey:  cfg.LLM.APIKey,
			BaseURL: cfg.LLM.BaseURL,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		})
	} else {
		log.Warn().Msg("LLM_API_KEY not set; classifying by keywords only")
	}
	return classify.New(completer,
		classify.WithAttemptTimeout(cfg.LLM.Timeout),
		classify.WithLogger(log.With().Str("component", "classify").Logger()),
	)
}

func newIngestService(cfg config.Config, db *gorm.DB, log zerolog.Logger) *services.IngestService {
	in := cfg.Ingest
	gate := fingerprint.NewFilter(fingerprint.Options{
		MaxAge:         in.MaxMessageAge,
		CacheSize:      in.ContentCacheSize,
		MinChars:       in.MinTextChars,
		ShortChars:     in.ShortTextChars,
		ProfitableOnly: in.ProfitableOnly,
		ProductWords:   domain.ProductKeywords(),
	})
	imgLog := log.With().Str("component", "imageres").Logger()
	resolver := imageres.NewResolver(
		imageres.NewGate(in.ImageFetchInterval),
		imageres.NewBreakerFetcher(imageres.NewPageFetcher(in.ImageFetchTimeout), imgLog),
		imageres.NewHTTPProber(in.ImageProbeTimeout),
		fingerprint.NewRecentSet(in.ImageCacheSize),
		imgLog,
	)
	return &services.IngestService{
		DB:         db,
		Gate:       gate,
		Classifier: newClassifier(cfg, log),
		Images:     resolver,
		Log:        log.With().Str("component", "ingest").Logger(),
	}
}

// ready reports whether both stores answer.
func (a *app) ready(ctx context.Context) error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return errors.Join(sqlDB.PingContext(ctx), a.rdb.Ping(ctx).Err())
}

func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	closeDB(a.db)
}

func closeDB(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
