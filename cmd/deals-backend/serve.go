package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-deals-backend/internal/feed"
	router "github.com/tbourn/go-deals-backend/internal/http"
	"github.com/tbourn/go-deals-backend/internal/observability"
	"github.com/tbourn/go-deals-backend/internal/sysutil"
	"github.com/tbourn/go-deals-backend/internal/worker"
)

const shutdownTimeout = 20 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the click flush scheduler and the feed consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), version), log.With().Str("component", "otel").Logger())
	if err != nil {
		log.Warn().Err(err).Msg("tracing disabled")
		shutdownOTel = func(context.Context) error { return nil }
	}

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	backlog := feed.NewBacklog(a.ing, cfg.Feed.Concurrency)

	gin.SetMode(cfg.GinMode)
	engine := gin.New()
	router.RegisterRoutes(engine, router.Deps{
		Query:  a.query,
		Clicks: a.click,
		Feed:   backlog,
		Ready:  a.ready,
	}, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	var wg sync.WaitGroup
	errc := make(chan error, 1)

	if cfg.Feed.Enabled {
		consumer, err := feed.NewConsumer(feed.Config{
			URL:         cfg.Feed.URL,
			Queue:       cfg.Feed.Queue,
			Concurrency: cfg.Feed.Concurrency,
		}, a.ing, log.With().Str("component", "feed").Logger())
		if err != nil {
			return err
		}
		defer consumer.Close()
		// Broker outages are retried inside Run and never stop the HTTP API.
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Run(ctx); err != nil {
				log.Error().Err(err).Msg("feed consumer stopped")
			}
		}()
	}

	sched := worker.NewFlushScheduler(a.click, cfg.Clicks.FlushInterval, log.With().Str("component", "flush").Logger())
	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
	}()

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case runErr = <-errc:
		log.Error().Err(runErr).Msg("http server failed; shutting down")
	}

	shCtx, shCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shCancel()
	if err := srv.Shutdown(shCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	// Stops the scheduler and consumer; an in-flight flush still completes.
	cancel()
	wg.Wait()
	sched.Wait()
	// Webhook events already acknowledged are ingested before exit.
	backlog.Wait()

	if err := shutdownOTel(shCtx); err != nil {
		log.Warn().Err(err).Msg("otel shutdown")
	}
	log.Info().Msg("stopped")
	return runErr
}
