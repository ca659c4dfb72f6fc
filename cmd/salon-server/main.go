package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"salon/backend/internal/cache"
	"salon/backend/internal/config"
	"salon/backend/internal/events"
	"salon/backend/internal/service/bookings"
	"salon/backend/internal/store"
	"salon/backend/internal/store/demo"
	"salon/backend/internal/store/gormstore"
	"salon/backend/internal/store/memory"
	"salon/backend/internal/store/postgres"
	"salon/backend/internal/telemetry"
	grpcTransport "salon/backend/internal/transport/grpc"
)

const serviceName = "salon-server"

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", serviceName),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", serviceName),
	)
	slog.SetDefault(log)

	log.Info("starting",
		slog.String("grpc_addr", cfg.GRPCAddr),
		slog.String("log_level", cfg.LogLevel),
		slog.String("db_driver", cfg.DatabaseDriver),
		slog.Bool("enforce_manual_conflict_check", cfg.EnforceManualConflictCheck),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      cfg.OTelEnabled,
		ServiceName:  serviceName,
		OTLPEndpoint: cfg.OTelEndpoint,
		SampleRatio:  cfg.OTelSampleRatio,
	})
	if err != nil {
		log.Error("telemetry setup failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("telemetry shutdown failed", slog.Any("err", err))
		}
	}()

	repo, closeRepo, err := openRepository(ctx, log, cfg)
	if err != nil {
		log.Error("database setup failed", slog.Any("err", err), slog.String("db_driver", cfg.DatabaseDriver))
		os.Exit(1)
	}
	defer func() {
		if err := closeRepo(); err != nil {
			log.Warn("database close failed", slog.Any("err", err))
		}
	}()

	repo = store.WithReadRetry(repo, store.RetryConfig{MaxTries: cfg.ReadRetryMaxTries}, log)

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Warn("redis close failed", slog.Any("err", err))
			}
		}()
		repo = cache.WithServiceCache(repo, rdb, cache.Config{TTL: cfg.ServiceCacheTTL}, log)
		log.Info("service cache enabled", slog.String("redis_addr", cfg.RedisAddr))
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.KafkaBrokers != "" {
		kp, err := events.NewKafkaPublisher(events.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		if err != nil {
			log.Error("kafka publisher setup failed", slog.Any("err", err))
			os.Exit(1)
		}
		defer closeQuietly(log, "kafka publisher", kp)
		publisher = kp
		log.Info("booking events enabled", slog.String("topic", cfg.KafkaTopic))
	}

	svc := bookings.NewService(repo,
		bookings.WithConfig(bookings.Config{
			EnforceManualConflictCheck: cfg.EnforceManualConflictCheck,
			AssignAttempts:             cfg.AssignAttempts,
		}),
		bookings.WithLogger(log),
		bookings.WithPublisher(publisher),
	)

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcTransport.RequestIDInterceptor(),
			grpcTransport.DefaultTimeoutInterceptor(cfg.GRPCRequestTimeout),
			grpcTransport.LoggingInterceptor(log),
		),
	)
	grpcTransport.RegisterBookingServiceServer(grpcServer, grpcTransport.NewBookingServer(svc, log))

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr))
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- grpcServer.Serve(lis)
	}()

	log.Info("grpc server started", slog.String("grpc_addr", cfg.GRPCAddr))

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		shutdown(log, grpcServer, cfg.ShutdownTimeout)
	case err := <-errCh:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("grpc server stopped with error", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func openRepository(ctx context.Context, log *slog.Logger, cfg config.Config) (store.BookingRepository, func() error, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
		db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
			ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
		})
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() error { return postgres.Close(db) }
		if cfg.AutoMigrate {
			applied, err := postgres.Migrate(ctx, db)
			if err != nil {
				_ = closeDB()
				return nil, nil, err
			}
			log.Info("database migrated", slog.Any("applied", applied))
		}
		return postgres.NewBookingRepo(db), closeDB, nil

	case config.DriverGormPostgres:
		log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
		return openGorm(ctx, log, cfg, gormstore.DialectPostgres, cfg.DatabaseURL)

	case config.DriverSQLite:
		log.Info("opening sqlite database", slog.String("path", cfg.SQLitePath))
		return openGorm(ctx, log, cfg, gormstore.DialectSQLite, cfg.SQLitePath)

	default:
		// Nothing else can populate the memory store, so it always starts
		// with the demo salon.
		log.Warn("using in-memory store with demo data; data is lost on restart")
		s := memory.New()
		s.Seed(demo.Salon(time.Now()))
		return s, func() error { return nil }, nil
	}
}

func openGorm(ctx context.Context, log *slog.Logger, cfg config.Config, dialect, dsn string) (store.BookingRepository, func() error, error) {
	db, err := gormstore.Open(dialect, dsn, gormstore.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() error { return gormstore.Close(db) }
	if dialect == gormstore.DialectSQLite || cfg.AutoMigrate {
		if err := gormstore.AutoMigrate(db); err != nil {
			_ = closeDB()
			return nil, nil, err
		}
	}
	if cfg.SeedDemoData {
		seeded, err := gormstore.SeedDemo(ctx, db, time.Now())
		if err != nil {
			_ = closeDB()
			return nil, nil, err
		}
		log.Info("demo data", slog.Bool("seeded", seeded))
	}
	return gormstore.NewRepository(db), closeDB, nil
}

func closeQuietly(log *slog.Logger, name string, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Warn("close failed", slog.String("component", name), slog.Any("err", err))
	}
}

func shutdown(log *slog.Logger, s *grpc.Server, timeout time.Duration) {
	log.Info("shutting down grpc server", slog.Duration("timeout", timeout))

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		log.Info("grpc server stopped")
	case <-timer.C:
		log.Warn("grpc graceful shutdown timed out; forcing stop")
		s.Stop()
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
