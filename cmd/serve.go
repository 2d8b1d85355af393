package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/club-events/internal/auth"
	"github.com/Shivanand-hulikatti/club-events/internal/config"
	"github.com/Shivanand-hulikatti/club-events/internal/handler"
	"github.com/Shivanand-hulikatti/club-events/internal/notify"
	"github.com/Shivanand-hulikatti/club-events/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	serveMigrate bool
	serveSeed    string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply the schema before serving")
	serveCmd.Flags().StringVar(&serveSeed, "seed", "", "load users, clubs and resources from a JSON fixtures file")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── 1. Persistence ───────────────────────────────────────────────────
	sh, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer sh.close()

	if serveMigrate && sh.migrate != nil {
		if err := sh.migrate(ctx); err != nil {
			return err
		}
		log.Info("schema applied")
	}
	if serveSeed != "" {
		if err := seedFrom(ctx, sh.store, serveSeed, log); err != nil {
			return err
		}
	}

	// ── 2. Notifications ─────────────────────────────────────────────────
	publisher := newPublisher(cfg, log)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("closing publisher", zap.Error(err))
		}
	}()

	// ── 3. Wire up layers ────────────────────────────────────────────────
	svc := service.NewEventService(sh.store, publisher, log,
		service.WithAutoPromote(cfg.Registration.AutoPromote))

	routerCfg := handler.RouterConfig{
		Service:        svc,
		Auth:           auth.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer, sh.store.Users()),
		Log:            log,
		IdempotencyTTL: cfg.Redis.IdempotencyTTL,
		ProcessingTTL:  cfg.Redis.ProcessingTTL,
		Ready:          sh.ready,
	}
	if cfg.Redis.Enabled() {
		rdb := newRedis(ctx, cfg.Redis, log)
		defer func() { _ = rdb.Close() }()
		routerCfg.Redis = rdb
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler.NewRouter(routerCfg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// ── 4. Start server with graceful shutdown ────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("store", cfg.Store.Driver),
			zap.Bool("auto_promote", cfg.Registration.AutoPromote),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func newPublisher(cfg *config.Config, log *zap.Logger) notify.Publisher {
	if !cfg.Kafka.Enabled() {
		log.Info("no kafka brokers configured; lifecycle events are logged only")
		return notify.NewLogPublisher(log)
	}
	log.Info("publishing lifecycle events to kafka",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.Topic),
	)
	return notify.NewKafkaPublisher(notify.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), cfg.App.Name)
}

// newRedis connects the idempotency store. An unreachable Redis is logged
// and kept: the middleware fails open until it comes back.
func newRedis(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis unreachable; idempotency keys are ignored until it recovers",
			zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		log.Info("idempotency keys enabled", zap.String("addr", cfg.Addr))
	}
	return rdb
}
