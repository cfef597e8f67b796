package payments

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/kseleznyov/spacebooking/internal/domain"
	"github.com/kseleznyov/spacebooking/internal/kafka"
	"github.com/kseleznyov/spacebooking/internal/repository"
)

type PaymentUseCase interface {
	Record(ctx context.Context, input RecordPaymentInput) (*domain.Payment, error)
	Get(ctx context.Context, id string) (*domain.Payment, error)
	ListByReservation(ctx context.Context, reservationID string) ([]domain.Payment, error)
	MarkPaid(ctx context.Context, id string, externalRef *string) (*domain.Payment, error)
	Delete(ctx context.Context, id string) error
	Summarize(ctx context.Context, reservationID string) (*Summary, error)
	SendPaymentReminders(ctx context.Context) (int, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type RecordPaymentInput struct {
	ReservationID string
	Amount        float64
	Method        string
	Purpose       string
	ExternalRef   string
	// Paid records the payment as already settled (e.g. cash at the desk).
	Paid bool
}

// Summary is a reservation's ledger rollup. Remaining never goes below zero:
// overpaying leaves the balance settled, not negative.
type Summary struct {
	ReservationID string
	Total         float64
	Paid          float64
	Pending       float64
	Remaining     float64
}

type PaymentServiceOption func(*PaymentService)

// WithOverpayment controls whether the recorded ledger (paid + pending) may
// exceed the reservation's committed total. Allowed by default.
func WithOverpayment(allowed bool) PaymentServiceOption {
	return func(s *PaymentService) {
		s.allowOverpayment = allowed
	}
}

func WithNotificationsTopic(topic string) PaymentServiceOption {
	return func(s *PaymentService) {
		s.notificationsTopic = topic
	}
}

type PaymentService struct {
	payments           repository.PaymentRepository
	reservations       repository.ReservationRepository
	producer           Producer
	eventsTopic        string
	notificationsTopic string
	allowOverpayment   bool
}

func NewPaymentService(
	payments repository.PaymentRepository,
	reservations repository.ReservationRepository,
	producer Producer,
	eventsTopic string,
	opts ...PaymentServiceOption,
) *PaymentService {
	service := &PaymentService{
		payments:         payments,
		reservations:     reservations,
		producer:         producer,
		eventsTopic:      eventsTopic,
		allowOverpayment: true,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *PaymentService) Record(ctx context.Context, input RecordPaymentInput) (*domain.Payment, error) {
	if input.ReservationID == "" {
		return nil, fmt.Errorf("%w: reservation_id is required", domain.ErrValidation)
	}
	if input.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	if input.Method == "" {
		return nil, fmt.Errorf("%w: method is required", domain.ErrValidation)
	}

	reservation, err := s.reservations.GetByID(ctx, input.ReservationID)
	if err != nil {
		return nil, err
	}
	if reservation.Status == domain.ReservationStatusCancelled {
		return nil, domain.ErrReservationClosed
	}

	if !s.allowOverpayment {
		sums, err := s.payments.SumByStatus(ctx, input.ReservationID)
		if err != nil {
			return nil, err
		}
		recorded := domain.RoundMoney(sums.Paid + sums.Pending + input.Amount)
		if recorded > reservation.TotalAmount {
			return nil, fmt.Errorf("%w: %.2f recorded against total %.2f",
				domain.ErrOverpayment, recorded, reservation.TotalAmount)
		}
	}

	payment := &domain.Payment{
		ID:            uuid.NewString(),
		ReservationID: input.ReservationID,
		Amount:        domain.RoundMoney(input.Amount),
		Method:        input.Method,
		Status:        domain.PaymentStatusPending,
		Purpose:       input.Purpose,
		ExternalRef:   input.ExternalRef,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	if input.Paid {
		payment, err = s.payments.MarkPaid(ctx, payment.ID, nil)
		if err != nil {
			return nil, err
		}
		s.publish(ctx, kafka.EventPaymentPaid, reservation, payment)
		return payment, nil
	}

	s.publish(ctx, kafka.EventPaymentRecorded, reservation, payment)
	return payment, nil
}

func (s *PaymentService) Get(ctx context.Context, id string) (*domain.Payment, error) {
	return s.payments.GetByID(ctx, id)
}

func (s *PaymentService) ListByReservation(ctx context.Context, reservationID string) ([]domain.Payment, error) {
	return s.payments.ListByReservation(ctx, reservationID)
}

func (s *PaymentService) MarkPaid(ctx context.Context, id string, externalRef *string) (*domain.Payment, error) {
	payment, err := s.payments.MarkPaid(ctx, id, externalRef)
	if err != nil {
		return nil, err
	}

	reservation, err := s.reservations.GetByID(ctx, payment.ReservationID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, kafka.EventPaymentPaid, reservation, payment)
	return payment, nil
}

func (s *PaymentService) Delete(ctx context.Context, id string) error {
	return s.payments.Delete(ctx, id)
}

func (s *PaymentService) Summarize(ctx context.Context, reservationID string) (*Summary, error) {
	reservation, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	sums, err := s.payments.SumByStatus(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	remaining := reservation.TotalAmount - sums.Paid
	if remaining < 0 {
		remaining = 0
	}
	return &Summary{
		ReservationID: reservationID,
		Total:         reservation.TotalAmount,
		Paid:          domain.RoundMoney(sums.Paid),
		Pending:       domain.RoundMoney(sums.Pending),
		Remaining:     domain.RoundMoney(remaining),
	}, nil
}

// SendPaymentReminders publishes one reminder event per confirmed reservation
// with an outstanding balance. Returns the number of reminders sent.
func (s *PaymentService) SendPaymentReminders(ctx context.Context) (int, error) {
	balances, err := s.reservations.ListConfirmedWithBalance(ctx)
	if err != nil {
		return 0, err
	}

	topic := s.notificationsTopic
	if topic == "" {
		topic = s.eventsTopic
	}

	sent := 0
	for _, b := range balances {
		remaining := b.Remaining()
		if remaining <= 0 {
			continue
		}

		event := kafka.BookingEvent{
			Type:          kafka.EventPaymentReminder,
			ReservationID: b.ReservationID,
			SpaceID:       b.SpaceID,
			CustomerID:    b.CustomerID,
			Date:          b.Date.Format(domain.DateFormat),
			TotalAmount:   b.TotalAmount,
			Remaining:     remaining,
			OccurredAt:    time.Now(),
		}
		if err := s.producer.Publish(ctx, topic, b.ReservationID, event); err != nil {
			log.Printf("WARNING: failed to publish payment reminder for reservation %s: %v", b.ReservationID, err)
			continue
		}
		sent++
	}
	return sent, nil
}

func (s *PaymentService) publish(ctx context.Context, eventType string, r *domain.Reservation, p *domain.Payment) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}

	event := kafka.BookingEvent{
		Type:          eventType,
		ReservationID: r.ID,
		SpaceID:       r.SpaceID,
		CustomerID:    r.CustomerID,
		Date:          r.Date.Format(domain.DateFormat),
		Status:        string(r.Status),
		TotalAmount:   r.TotalAmount,
		PaymentID:     p.ID,
		Amount:        p.Amount,
		Method:        p.Method,
		OccurredAt:    time.Now(),
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, r.ID, event); err != nil {
		log.Printf("WARNING: failed to publish %s event for payment %s: %v", eventType, p.ID, err)
	}
}

var _ PaymentUseCase = (*PaymentService)(nil)
