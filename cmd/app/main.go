package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/Domenick1991/carrental/config"
	"github.com/Domenick1991/carrental/internal/bootstrap"
	"github.com/Domenick1991/carrental/internal/cache"
	"github.com/Domenick1991/carrental/internal/kafka"
	"github.com/Domenick1991/carrental/internal/lock"
	"github.com/Domenick1991/carrental/internal/logger"
	"github.com/Domenick1991/carrental/internal/metrics"
	"github.com/Domenick1991/carrental/internal/pricing"
	"github.com/Domenick1991/carrental/internal/repository"
	"github.com/Domenick1991/carrental/internal/service/booking"
	"github.com/Domenick1991/carrental/internal/service/cars"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	if err := run(cfg, lg); err != nil {
		lg.Fatal("service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		return err
	}
	if cfg.Database.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Database.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	health := map[string]bootstrap.HealthCheck{"postgres": pool.Ping}

	var (
		locker   booking.Locker
		carCache cars.CarCache
	)
	if cfg.Redis.Addr != "" {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking)
		defer redisCache.Close()
		locker = redisCache
		carCache = redisCache
		health["redis"] = redisCache.Ping
		lg.Info("using redis car lock", zap.String("addr", cfg.Redis.Addr))
	} else {
		locker = lock.NewKeyedMutex(cfg.Booking.LockWait())
		lg.Warn("redis not configured, car lock is process-local")
	}

	bookingOpts := []booking.BookingServiceOption{booking.WithMetrics(m)}
	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, lg)
		defer producer.Close()
		if err := producer.CheckConnection(ctx); err != nil {
			lg.Warn("kafka unreachable at startup, events will be retried per publish", zap.Error(err))
		}
		bookingOpts = append(bookingOpts, booking.WithProducer(producer, cfg.Kafka.BookingEventsTopic))
	}

	timeout := cfg.Database.QueryTimeout()
	bookingRepo := repository.NewBookingRepository(pool, timeout)
	carRepo := repository.NewCarRepository(pool, timeout)

	calc := pricing.NewCalculator(pricing.Config{
		WeekDays:           cfg.Pricing.WeekDays,
		MonthDays:          cfg.Pricing.MonthDays,
		RoundUpPartialDays: *cfg.Pricing.RoundUpPartialDays,
	})

	bookingService := booking.NewBookingService(
		bookingRepo,
		carRepo,
		repository.NewTxManager(pool, timeout),
		locker,
		calc,
		lg.Named("booking"),
		bookingOpts...,
	)
	carService := cars.NewCarService(carRepo, carCache, lg.Named("cars"), m)

	return bootstrap.Run(ctx, cfg, bootstrap.Deps{
		Cars:     carService,
		Bookings: bookingService,
		Pricing:  calc,
		Logger:   lg,
		Metrics:  m,
		Health:   health,
	})
}
