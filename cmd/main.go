/**
 * @description
 * This is the main entry point for the schoolfees-service. It is responsible for
 * initializing all components of the service, including configuration, database connection,
 * the Paystack client, the message broker, Redis rate limiting, the application services,
 * and the HTTP server. It wires everything together and starts the service.
 *
 * Commands:
 * - serve (default): run the HTTP API.
 * - migrate: apply the schema and seed the default roles.
 * - purge-tokens: delete dead refresh tokens once and exit.
 *
 * @dependencies
 * - github.com/urfave/cli/v2: Command line entry point.
 * - github.com/joho/godotenv: For loading .env files during local development.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - github.com/redis/go-redis/v9: Rate limiting backend.
 * - github.com/prometheus/client_golang: Metrics registry.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/paystackclient, pkg/rabbitmq, pkg/logger.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/transfa/schoolfees-service/internal/api"
	"github.com/transfa/schoolfees-service/internal/app"
	"github.com/transfa/schoolfees-service/internal/auth"
	"github.com/transfa/schoolfees-service/internal/config"
	"github.com/transfa/schoolfees-service/internal/metrics"
	"github.com/transfa/schoolfees-service/internal/store"
	"github.com/transfa/schoolfees-service/pkg/logger"
	"github.com/transfa/schoolfees-service/pkg/paystackclient"
	"github.com/transfa/schoolfees-service/pkg/rabbitmq"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	// Load .env file for local development. In production, env vars are set directly.
	if err := godotenv.Load(); err != nil {
		log.Println("level=info component=bootstrap msg=\"no .env file found; using environment\"")
	}

	cliApp := &cli.App{
		Name:  "schoolfees-service",
		Usage: "School fees payments over mobile money",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: ".", Usage: "Directory holding an optional .env file"},
			&cli.StringFlag{Name: "port", Aliases: []string{"p"}, Usage: "Override SERVER_PORT"},
		},
		Action: serve,
		Commands: []*cli.Command{
			{Name: "serve", Usage: "Run the HTTP API", Action: serve},
			{Name: "migrate", Usage: "Apply the schema and seed the default roles", Action: migrate},
			{Name: "purge-tokens", Usage: "Delete dead refresh tokens past the retention window", Action: purgeTokens},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatalf("level=fatal component=bootstrap err=%v", err)
	}
}

// bootstrap loads the configuration and builds the logger and database pool every command needs.
func bootstrap(c *cli.Context) (config.Config, *zap.Logger, *pgxpool.Pool, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if port := strings.TrimSpace(c.String("port")); port != "" {
		cfg.ServerPort = port
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, nil, err
	}

	logg, err := logger.New(logger.IsDevelopment(cfg.AppEnv))
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	pool, err := newPool(c.Context, cfg.DatabaseURL)
	if err != nil {
		logg.Sync()
		return cfg, nil, nil, err
	}
	logg.Info("database connected", zap.String("component", "bootstrap"))
	return cfg, logg, pool, nil
}

func newPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	poolConfig.MaxConns = 100
	poolConfig.MinConns = 20
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts behind poolers.
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pool, nil
}

func migrate(c *cli.Context) error {
	_, logg, pool, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer logg.Sync()
	defer pool.Close()

	if err := store.Migrate(c.Context, pool); err != nil {
		return err
	}
	logg.Info("schema applied", zap.String("component", "migrate"))
	return nil
}

func purgeTokens(c *cli.Context) error {
	cfg, logg, pool, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer logg.Sync()
	defer pool.Close()

	jobs := app.NewJobs(store.NewPostgresRepository(pool), cfg.TokenPurgeRetention(), logg)
	_, err = jobs.PurgeRefreshTokens(c.Context)
	return err
}

func serve(c *cli.Context) error {
	cfg, logg, pool, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer logg.Sync()
	defer pool.Close()
	bootLog := logger.Component(logg, "bootstrap")

	adminWalletID := uuid.Nil
	if raw := strings.TrimSpace(cfg.PlatformAdminWalletID); raw != "" {
		adminWalletID, err = uuid.Parse(raw)
		if err != nil {
			return fmt.Errorf("PLATFORM_ADMIN_WALLET_ID is not a uuid: %w", err)
		}
	} else {
		bootLog.Warn("platform admin wallet not configured; webhook settlements will be rejected", zap.String("env", "PLATFORM_ADMIN_WALLET_ID"))
	}

	// Initialize the RabbitMQ producer to publish events.
	var publisher rabbitmq.Publisher = &rabbitmq.EventProducerFallback{Logger: logg}
	if strings.TrimSpace(cfg.RabbitMQURL) != "" {
		producer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL, logg)
		if err != nil {
			bootLog.Warn("rabbitmq producer unavailable; using fallback", zap.Error(err))
		} else {
			defer producer.Close()
			publisher = producer
			bootLog.Info("rabbitmq producer connected")
		}
	}

	rateLimiter := newRateLimiter(c.Context, cfg, bootLog)
	if rateLimiter != nil {
		defer rateLimiter.client.Close()
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	repository := store.NewPostgresRepository(pool)
	tokens := auth.NewTokenService(cfg.SecretKey, cfg.AccessTokenTTL(), cfg.RefreshTokenTTL())
	paystack := paystackclient.NewClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey(), cfg.PaystackTimeout(), logg)

	authService := app.NewAuthService(repository, tokens, publisher, cfg.EventsExchange, logg, m)
	paymentService := app.NewPaymentService(repository, paystack, publisher, app.PaymentServiceConfig{
		AdminWalletID:  adminWalletID,
		DefaultEmail:   cfg.PaystackDefaultEmail,
		EventsExchange: cfg.EventsExchange,
	}, logg, m)
	adminService := app.NewAdminService(repository, logg)

	if schedule := strings.TrimSpace(cfg.TokenPurgeSchedule); schedule != "" {
		scheduler := app.NewScheduler(app.NewJobs(repository, cfg.TokenPurgeRetention(), logg), schedule, logg)
		if err := scheduler.Start(); err != nil {
			return err
		}
		defer scheduler.Stop()
	}

	handlers := api.NewHandlers(authService, paymentService, adminService, api.CookieConfig{
		Secure:     cfg.CookieSecure,
		AccessTTL:  cfg.AccessTokenTTL(),
		RefreshTTL: cfg.RefreshTokenTTL(),
	}, logg)

	routerCfg := api.RouterConfig{
		AllowedOrigins:   cfg.AllowedOrigins(),
		LoginLimitPerMin: cfg.LoginRateLimitPerMinute,
		USSDLimitPerMin:  cfg.USSDRateLimitPerMinute,
		USSDPhoneLimit:   cfg.USSDPhoneLimit,
		USSDPhoneWindow:  cfg.USSDPhoneWindow(),
		OTPAttemptLimit:  cfg.OTPAttemptLimit,
		OTPAttemptWindow: cfg.OTPAttemptWindow(),
	}
	if rateLimiter != nil {
		routerCfg.RateLimiter = rateLimiter.limiter
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: api.Routes(handlers, routerCfg),
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Component(logg, "http").Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-stop:
	case err := <-serverErr:
		return fmt.Errorf("server stopped unexpectedly: %w", err)
	}
	logger.Component(logg, "http").Info("shutdown started")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Component(logg, "http").Error("shutdown failed", zap.Error(err))
	}
	return nil
}

type redisRateLimiter struct {
	client  *redis.Client
	limiter *app.RedisRateLimiter
}

// newRateLimiter connects to Redis when limits are enabled. Without Redis the limits are off.
func newRateLimiter(ctx context.Context, cfg config.Config, bootLog *zap.Logger) *redisRateLimiter {
	if !cfg.RateLimitsEnabled() {
		return nil
	}
	if strings.TrimSpace(cfg.RedisURL) == "" {
		bootLog.Warn("redis url missing; rate limiting disabled", zap.String("env", "REDIS_URL"))
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		bootLog.Warn("redis url parse failed; rate limiting disabled", zap.Error(err))
		return nil
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		bootLog.Warn("redis ping failed; rate limiting disabled", zap.Error(err))
		client.Close()
		return nil
	}
	bootLog.Info("redis connected")
	return &redisRateLimiter{client: client, limiter: app.NewRedisRateLimiter(client, cfg.RedisRateLimitPrefix)}
}
