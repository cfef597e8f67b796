package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kseleznyov/spacebooking/config"
	"github.com/kseleznyov/spacebooking/internal/bootstrap"
	"github.com/kseleznyov/spacebooking/internal/cache"
	"github.com/kseleznyov/spacebooking/internal/kafka"
	"github.com/kseleznyov/spacebooking/internal/repository"
	"github.com/kseleznyov/spacebooking/internal/service/availability"
	"github.com/kseleznyov/spacebooking/internal/service/payments"
	"github.com/kseleznyov/spacebooking/internal/service/reservations"
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.SearchCacheTTL)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	reservationRepo := repository.NewReservationRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	spaceRepo := repository.NewSpaceRepository(pool)

	availabilityService := availability.NewAvailabilityService(reservationRepo, spaceRepo, redisCache)
	reservationService := reservations.NewReservationService(
		reservationRepo,
		paymentRepo,
		spaceRepo,
		availabilityService,
		redisCache,
		producer,
		cfg.Kafka.ReservationsTopic,
		time.Duration(cfg.Booking.SlotLockTTLSeconds)*time.Second,
		reservations.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		reservations.WithReprice(cfg.Booking.RepriceOnReschedule),
	)
	paymentService := payments.NewPaymentService(
		paymentRepo,
		reservationRepo,
		producer,
		cfg.Kafka.ReservationsTopic,
		payments.WithOverpayment(cfg.Booking.AllowOverpayment),
		payments.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	if err := bootstrap.Run(ctx, cfg, reservationService, paymentService, availabilityService); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
