package reservations

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/kseleznyov/spacebooking/internal/domain"
	"github.com/kseleznyov/spacebooking/internal/kafka"
	"github.com/kseleznyov/spacebooking/internal/repository"
)

type ReservationUseCase interface {
	Create(ctx context.Context, input CreateReservationInput) (*domain.Reservation, error)
	Reschedule(ctx context.Context, id string, input RescheduleInput) (*domain.Reservation, error)
	Confirm(ctx context.Context, id string) (*domain.Reservation, error)
	Cancel(ctx context.Context, id string) (*domain.Reservation, error)
	Get(ctx context.Context, id string) (*domain.Reservation, []domain.Payment, error)
	List(ctx context.Context, f repository.ReservationFilters) ([]domain.Reservation, error)
	ListByDay(ctx context.Context, date time.Time, branchID string) ([]domain.Reservation, error)
}

// Availability answers "is this space free for this slot", excluding one
// reservation id during reschedules.
type Availability interface {
	IsAvailable(ctx context.Context, spaceID string, date time.Time, slot domain.TimeSlot, excludeID string) (bool, error)
}

// SlotLocker serializes check-then-write sequences per (space, date). A nil
// locker skips the lock; the storage exclusion constraint still holds.
type SlotLocker interface {
	AcquireSlotLock(ctx context.Context, spaceID string, date time.Time, ttl time.Duration) (bool, error)
	ReleaseSlotLock(ctx context.Context, spaceID string, date time.Time) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type CreateReservationInput struct {
	SpaceID            string
	BranchID           string
	CustomerID         string
	Date               time.Time
	Slot               domain.TimeSlot
	DepositRequiredPct float64
	Notes              string
}

// RescheduleInput is a partial update; nil fields keep stored values. Any
// change to the date or times is merged with the stored schedule, validated,
// and re-checked for conflicts before it is written.
type RescheduleInput struct {
	Date               *time.Time
	Start              *domain.TimeOfDay
	End                *domain.TimeOfDay
	Notes              *string
	DepositRequiredPct *float64
}

type ReservationServiceOption func(*ReservationService)

func WithNotificationsTopic(topic string) ReservationServiceOption {
	return func(s *ReservationService) {
		s.notificationsTopic = topic
	}
}

// WithReprice recomputes total_amount from the space's current rate when a
// reschedule changes the slot. Off by default: the total stays locked at
// creation time.
func WithReprice(enabled bool) ReservationServiceOption {
	return func(s *ReservationService) {
		s.repriceOnReschedule = enabled
	}
}

type ReservationService struct {
	reservations        repository.ReservationRepository
	payments            repository.PaymentRepository
	spaces              repository.SpaceRepository
	availability        Availability
	locker              SlotLocker
	producer            Producer
	eventsTopic         string
	notificationsTopic  string
	slotLockTTL         time.Duration
	repriceOnReschedule bool
}

func NewReservationService(
	reservations repository.ReservationRepository,
	payments repository.PaymentRepository,
	spaces repository.SpaceRepository,
	availability Availability,
	locker SlotLocker,
	producer Producer,
	eventsTopic string,
	slotLockTTL time.Duration,
	opts ...ReservationServiceOption,
) *ReservationService {
	service := &ReservationService{
		reservations: reservations,
		payments:     payments,
		spaces:       spaces,
		availability: availability,
		locker:       locker,
		producer:     producer,
		eventsTopic:  eventsTopic,
		slotLockTTL:  slotLockTTL,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *ReservationService) Create(ctx context.Context, input CreateReservationInput) (*domain.Reservation, error) {
	if input.SpaceID == "" || input.BranchID == "" || input.CustomerID == "" {
		return nil, fmt.Errorf("%w: space_id, branch_id and customer_id are required", domain.ErrValidation)
	}
	if input.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", domain.ErrValidation)
	}
	if !input.Slot.Valid() {
		return nil, fmt.Errorf("%w: end_time must be after start_time", domain.ErrValidation)
	}

	unlock, err := s.lockSlot(ctx, input.SpaceID, input.Date)
	if err != nil {
		return nil, err
	}
	defer unlock()

	free, err := s.availability.IsAvailable(ctx, input.SpaceID, input.Date, input.Slot, "")
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, domain.ErrSlotUnavailable
	}

	space, err := s.spaces.GetByID(ctx, input.SpaceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidSpace
		}
		return nil, err
	}
	if !space.Active {
		return nil, domain.ErrInvalidSpace
	}

	reservation := &domain.Reservation{
		ID:                 uuid.NewString(),
		SpaceID:            input.SpaceID,
		BranchID:           input.BranchID,
		CustomerID:         input.CustomerID,
		Date:               input.Date,
		Slot:               input.Slot,
		Status:             domain.ReservationStatusPending,
		TotalAmount:        domain.RoundMoney(domain.Quote(space.BasePricePerHour, input.Slot)),
		DepositRequiredPct: input.DepositRequiredPct,
		Notes:              input.Notes,
	}

	// The insert can still lose to a concurrent writer that committed after
	// our availability read; the exclusion constraint reports that as
	// ErrSlotUnavailable.
	if err := s.reservations.Create(ctx, reservation); err != nil {
		return nil, err
	}

	s.publish(ctx, kafka.EventReservationCreated, reservation)
	return reservation, nil
}

func (s *ReservationService) Reschedule(ctx context.Context, id string, input RescheduleInput) (*domain.Reservation, error) {
	current, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.ReservationStatusCancelled {
		return nil, domain.ErrReservationClosed
	}

	upd := repository.ScheduleUpdate{
		Date:               input.Date,
		Start:              input.Start,
		End:                input.End,
		Notes:              input.Notes,
		DepositRequiredPct: input.DepositRequiredPct,
	}

	if input.Date != nil || input.Start != nil || input.End != nil {
		// Merge the partial update with the stored schedule so a lone
		// start_time or end_time is validated against its counterpart.
		newSlot := current.Slot
		if input.Start != nil {
			newSlot.Start = *input.Start
		}
		if input.End != nil {
			newSlot.End = *input.End
		}
		if !newSlot.Valid() {
			return nil, fmt.Errorf("%w: end_time must be after start_time", domain.ErrValidation)
		}
		newDate := current.Date
		if input.Date != nil {
			newDate = *input.Date
		}

		unlock, err := s.lockSlot(ctx, current.SpaceID, newDate)
		if err != nil {
			return nil, err
		}
		defer unlock()

		free, err := s.availability.IsAvailable(ctx, current.SpaceID, newDate, newSlot, id)
		if err != nil {
			return nil, err
		}
		if !free {
			return nil, domain.ErrSlotUnavailable
		}

		if s.repriceOnReschedule {
			space, err := s.spaces.GetByID(ctx, current.SpaceID)
			if err != nil {
				return nil, err
			}
			total := domain.RoundMoney(domain.Quote(space.BasePricePerHour, newSlot))
			upd.TotalAmount = &total
		}
	}

	updated, err := s.reservations.UpdateSchedule(ctx, id, upd)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, kafka.EventReservationRescheduled, updated)
	return updated, nil
}

func (s *ReservationService) Confirm(ctx context.Context, id string) (*domain.Reservation, error) {
	current, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.ReservationStatusCancelled {
		return nil, domain.ErrReservationClosed
	}
	if current.Status == domain.ReservationStatusConfirmed {
		return current, nil
	}

	updated, err := s.reservations.UpdateStatus(ctx, id, domain.ReservationStatusConfirmed)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, kafka.EventReservationConfirmed, updated)
	return updated, nil
}

func (s *ReservationService) Cancel(ctx context.Context, id string) (*domain.Reservation, error) {
	current, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == domain.ReservationStatusCancelled {
		return current, nil
	}

	// Cancelling frees the interval at once: availability queries skip
	// CANCELLED rows and the exclusion constraint ignores them.
	updated, err := s.reservations.UpdateStatus(ctx, id, domain.ReservationStatusCancelled)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, kafka.EventReservationCancelled, updated)
	return updated, nil
}

func (s *ReservationService) Get(ctx context.Context, id string) (*domain.Reservation, []domain.Payment, error) {
	reservation, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	payments, err := s.payments.ListByReservation(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return reservation, payments, nil
}

func (s *ReservationService) List(ctx context.Context, f repository.ReservationFilters) ([]domain.Reservation, error) {
	return s.reservations.List(ctx, f)
}

func (s *ReservationService) ListByDay(ctx context.Context, date time.Time, branchID string) ([]domain.Reservation, error) {
	return s.reservations.ListByDay(ctx, date, branchID)
}

// lockSlot takes the per-(space, date) lock and returns its release func.
// Without a locker configured it is a no-op.
func (s *ReservationService) lockSlot(ctx context.Context, spaceID string, date time.Time) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}

	ok, err := s.locker.AcquireSlotLock(ctx, spaceID, date, s.slotLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrSlotUnavailable
	}
	return func() {
		_ = s.locker.ReleaseSlotLock(ctx, spaceID, date)
	}, nil
}

func (s *ReservationService) publish(ctx context.Context, eventType string, r *domain.Reservation) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}

	event := kafka.BookingEvent{
		Type:          eventType,
		ReservationID: r.ID,
		SpaceID:       r.SpaceID,
		CustomerID:    r.CustomerID,
		Date:          r.Date.Format(domain.DateFormat),
		StartTime:     r.Slot.Start.String(),
		EndTime:       r.Slot.End.String(),
		Status:        string(r.Status),
		TotalAmount:   r.TotalAmount,
		OccurredAt:    time.Now(),
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, r.ID, event); err != nil {
		log.Printf("WARNING: failed to publish %s event for reservation %s: %v", eventType, r.ID, err)
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, r.ID, event); err != nil {
			log.Printf("WARNING: failed to publish %s notification for reservation %s: %v", eventType, r.ID, err)
		}
	}
}

var _ ReservationUseCase = (*ReservationService)(nil)
