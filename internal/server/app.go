// Package server wires the ThriftMarket API together: storage, challenge
// store, audit sinks, payment provider and the HTTP server. It also handles
// graceful shutdown and the periodic refresh-token sweep.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/thriftmarket/internal/logging"
	"github.com/dmitrijs2005/thriftmarket/internal/server/audit"
	"github.com/dmitrijs2005/thriftmarket/internal/server/challenges"
	"github.com/dmitrijs2005/thriftmarket/internal/server/config"
	"github.com/dmitrijs2005/thriftmarket/internal/server/httpserver"
	"github.com/dmitrijs2005/thriftmarket/internal/server/metrics"
	"github.com/dmitrijs2005/thriftmarket/internal/server/payments"
	"github.com/dmitrijs2005/thriftmarket/internal/server/ratelimit"
	"github.com/dmitrijs2005/thriftmarket/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/thriftmarket/internal/server/services"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

const sessionSweepInterval = time.Hour

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	redis    *redis.Client
	metrics  *metrics.Metrics
	recorder *audit.Recorder
	limiter  ratelimit.Limiter

	authService       *services.AuthService
	intentService     *services.IntentService
	settlementService *services.SettlementService
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db, metrics: metrics.New()}

	var store challenges.Store
	if c.RedisAddr != "" {
		app.redis = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		if err := app.redis.Ping(ctx).Err(); err != nil {
			app.close()
			return nil, fmt.Errorf("redis ping error: %w", err)
		}
		store = challenges.NewRedisStore(app.redis)
		if c.RateLimitRequests > 0 {
			app.limiter = ratelimit.NewRedisLimiter(app.redis, c.RateLimitRequests, c.RateLimitWindow)
		}
	} else {
		logger.Warn(ctx, "no redis address configured, challenges and rate limits are kept in process memory")
		store = challenges.NewMemoryStore()
	}

	sinks := audit.MultiSink{
		audit.NewRepositorySink(rm.Activities(db)),
		audit.NewLogSink(logger),
	}
	if c.S3Bucket != "" {
		s3sink, err := audit.NewS3Sink(ctx, audit.S3Config{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
		})
		if err != nil {
			app.close()
			return nil, fmt.Errorf("audit archive init error: %w", err)
		}
		sinks = append(sinks, s3sink)
	}
	app.recorder = audit.NewRecorder(sinks, logger, app.metrics)

	var provider payments.Provider
	if payments.IsLiveKey(c.StripeSecretKey) {
		provider = payments.NewStripeProvider(c.StripeSecretKey, c.ProviderTimeout)
	} else {
		logger.Warn(ctx, "no payment provider key configured, running in simulation mode")
		provider = payments.NewSimulatedProvider()
	}

	pricing := services.NewPricingService(db, rm)
	app.authService = services.NewAuthService(db, rm, store, app.recorder, app.metrics, logger, c)
	app.intentService = services.NewIntentService(pricing, provider, c.Currency, logger)
	app.settlementService = services.NewSettlementService(db, rm, provider, store, app.recorder, app.metrics, logger)

	return app, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpserver.NewHTTPServer(app.config, app.logger, app.authService, app.intentService,
		app.settlementService, app.recorder, app.metrics, app.limiter)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// sweepSessions deletes expired refresh tokens until ctx is done.
func (app *App) sweepSessions(ctx context.Context) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := app.authService.PurgeExpiredSessions(ctx)
			if err != nil {
				app.logger.Error(ctx, "session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Info(ctx, "expired sessions purged", "count", n)
			}
		}
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "env", app.config.Env)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.sweepSessions(ctx)
	}()

	wg.Wait()

	app.close()
	app.logger.Info(context.Background(), "App stopped")
}

func (app *App) close() {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error(context.Background(), "redis close", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close", "error", err)
	}
}
