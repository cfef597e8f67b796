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
	"github.com/kseleznyov/spacebooking/internal/email"
	"github.com/kseleznyov/spacebooking/internal/kafka"
	"github.com/kseleznyov/spacebooking/internal/repository"
	"github.com/kseleznyov/spacebooking/internal/service/payments"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	reservationRepo := repository.NewReservationRepository(pool)
	paymentRepo := repository.NewPaymentRepository(pool)
	paymentService := payments.NewPaymentService(
		paymentRepo,
		reservationRepo,
		producer,
		cfg.Kafka.ReservationsTopic,
		payments.WithOverpayment(cfg.Booking.AllowOverpayment),
		payments.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	emailSender := email.NewSender()

	go func() {
		if err := consumer.ConsumeEvents(ctx, emailSender.Send); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	reminderTicker := time.NewTicker(cfg.Worker.ReminderSweepInterval())
	defer reminderTicker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-reminderTicker.C:
			sent, err := paymentService.SendPaymentReminders(ctx)
			if err != nil {
				log.Printf("payment reminder sweep error: %v", err)
				continue
			}
			if sent > 0 {
				log.Printf("sent %d payment reminders", sent)
			}
		case s := <-sig:
			log.Printf("received signal %v, shutting down", s)
			return
		}
	}
}
