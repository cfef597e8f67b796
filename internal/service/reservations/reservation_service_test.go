package reservations

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/kseleznyov/spacebooking/internal/domain"
	"github.com/kseleznyov/spacebooking/internal/repository"
	"github.com/kseleznyov/spacebooking/internal/service/availability"
)

type MockReservationRepository struct {
	mock.Mock
}

func (m *MockReservationRepository) Create(ctx context.Context, r *domain.Reservation) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockReservationRepository) List(ctx context.Context, f repository.ReservationFilters) ([]domain.Reservation, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]domain.Reservation), args.Error(1)
}

func (m *MockReservationRepository) ListByDay(ctx context.Context, date time.Time, branchID string) ([]domain.Reservation, error) {
	args := m.Called(ctx, date, branchID)
	return args.Get(0).([]domain.Reservation), args.Error(1)
}

func (m *MockReservationRepository) ListForDay(ctx context.Context, spaceID string, date time.Time, excludeID string) ([]domain.Reservation, error) {
	args := m.Called(ctx, spaceID, date, excludeID)
	return args.Get(0).([]domain.Reservation), args.Error(1)
}

func (m *MockReservationRepository) UpdateSchedule(ctx context.Context, id string, upd repository.ScheduleUpdate) (*domain.Reservation, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockReservationRepository) UpdateStatus(ctx context.Context, id string, status domain.ReservationStatus) (*domain.Reservation, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockReservationRepository) ListConfirmedWithBalance(ctx context.Context) ([]domain.ReservationBalance, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.ReservationBalance), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) ListByReservation(ctx context.Context, reservationID string) ([]domain.Payment, error) {
	args := m.Called(ctx, reservationID)
	return args.Get(0).([]domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) MarkPaid(ctx context.Context, id string, externalRef *string) (*domain.Payment, error) {
	args := m.Called(ctx, id, externalRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPaymentRepository) SumByStatus(ctx context.Context, reservationID string) (repository.PaymentSums, error) {
	args := m.Called(ctx, reservationID)
	return args.Get(0).(repository.PaymentSums), args.Error(1)
}

type MockSpaceRepository struct {
	mock.Mock
}

func (m *MockSpaceRepository) GetByID(ctx context.Context, id string) (*domain.Space, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Space), args.Error(1)
}

func (m *MockSpaceRepository) Search(ctx context.Context, f repository.SpaceSearchFilters) ([]domain.SpaceSearchRow, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]domain.SpaceSearchRow), args.Error(1)
}

type MockAvailability struct {
	mock.Mock
}

func (m *MockAvailability) IsAvailable(ctx context.Context, spaceID string, date time.Time, slot domain.TimeSlot, excludeID string) (bool, error) {
	args := m.Called(ctx, spaceID, date, slot, excludeID)
	return args.Bool(0), args.Error(1)
}

type MockSlotLocker struct {
	mock.Mock
}

func (m *MockSlotLocker) AcquireSlotLock(ctx context.Context, spaceID string, date time.Time, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, spaceID, date, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockSlotLocker) ReleaseSlotLock(ctx context.Context, spaceID string, date time.Time) error {
	args := m.Called(ctx, spaceID, date)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

type fixture struct {
	reservations *MockReservationRepository
	payments     *MockPaymentRepository
	spaces       *MockSpaceRepository
	availability *MockAvailability
	locker       *MockSlotLocker
	producer     *MockProducer
	service      *ReservationService
}

func newFixture(opts ...ReservationServiceOption) *fixture {
	f := &fixture{
		reservations: &MockReservationRepository{},
		payments:     &MockPaymentRepository{},
		spaces:       &MockSpaceRepository{},
		availability: &MockAvailability{},
		locker:       &MockSlotLocker{},
		producer:     &MockProducer{},
	}
	f.service = NewReservationService(
		f.reservations, f.payments, f.spaces, f.availability, f.locker, f.producer,
		"reservation-events", time.Minute, opts...,
	)
	return f
}

func makeSlot(startMin, endMin int) domain.TimeSlot {
	return domain.TimeSlot{Start: domain.TimeOfDay(startMin), End: domain.TimeOfDay(endMin)}
}

var testDate = time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)

func validInput() CreateReservationInput {
	return CreateReservationInput{
		SpaceID:    "space-1",
		BranchID:   "branch-1",
		CustomerID: "customer-1",
		Date:       testDate,
		Slot:       makeSlot(9*60, 11*60),
	}
}

func TestReservationService_Create_Success(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	input := validInput()

	f.locker.On("AcquireSlotLock", ctx, "space-1", testDate, time.Minute).Return(true, nil).Once()
	f.locker.On("ReleaseSlotLock", ctx, "space-1", testDate).Return(nil).Once()
	f.availability.On("IsAvailable", ctx, "space-1", testDate, input.Slot, "").Return(true, nil).Once()
	f.spaces.On("GetByID", ctx, "space-1").Return(&domain.Space{ID: "space-1", BasePricePerHour: 100, Active: true}, nil).Once()
	f.reservations.On("Create", ctx, mock.AnythingOfType("*domain.Reservation")).Return(nil).Once()
	f.producer.On("Publish", ctx, "reservation-events", mock.Anything, mock.Anything).Return(nil).Once()

	reservation, err := f.service.Create(ctx, input)

	assert.NoError(t, err)
	assert.NotNil(t, reservation)
	assert.NotEmpty(t, reservation.ID)
	assert.Equal(t, domain.ReservationStatusPending, reservation.Status)
	// 2 hours at 100/hr, committed at creation.
	assert.Equal(t, 200.0, reservation.TotalAmount)

	f.reservations.AssertExpectations(t)
	f.locker.AssertExpectations(t)
	f.producer.AssertExpectations(t)
}

func TestReservationService_Create_ValidationErrors(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	testCases := []struct {
		name  string
		morph func(*CreateReservationInput)
	}{
		{"missing space", func(i *CreateReservationInput) { i.SpaceID = "" }},
		{"missing branch", func(i *CreateReservationInput) { i.BranchID = "" }},
		{"missing customer", func(i *CreateReservationInput) { i.CustomerID = "" }},
		{"zero date", func(i *CreateReservationInput) { i.Date = time.Time{} }},
		{"end equals start", func(i *CreateReservationInput) { i.Slot = makeSlot(9*60, 9*60) }},
		{"end before start", func(i *CreateReservationInput) { i.Slot = makeSlot(11*60, 9*60) }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.morph(&input)

			reservation, err := f.service.Create(ctx, input)

			assert.Nil(t, reservation)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	f.reservations.AssertNotCalled(t, "Create")
	f.locker.AssertNotCalled(t, "AcquireSlotLock")
}

func TestReservationService_Create_SlotTaken(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	input := validInput()

	f.locker.On("AcquireSlotLock", ctx, "space-1", testDate, time.Minute).Return(true, nil).Once()
	f.locker.On("ReleaseSlotLock", ctx, "space-1", testDate).Return(nil).Once()
	f.availability.On("IsAvailable", ctx, "space-1", testDate, input.Slot, "").Return(false, nil).Once()

	reservation, err := f.service.Create(ctx, input)

	assert.Nil(t, reservation)
	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
	f.reservations.AssertNotCalled(t, "Create")
}

func TestReservationService_Create_LockHeldByOther(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.locker.On("AcquireSlotLock", ctx, "space-1", testDate, time.Minute).Return(false, nil).Once()

	reservation, err := f.service.Create(ctx, validInput())

	assert.Nil(t, reservation)
	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
	f.availability.AssertNotCalled(t, "IsAvailable")
}

func TestReservationService_Create_UnknownSpace(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	input := validInput()

	f.locker.On("AcquireSlotLock", ctx, "space-1", testDate, time.Minute).Return(true, nil).Once()
	f.locker.On("ReleaseSlotLock", ctx, "space-1", testDate).Return(nil).Once()
	f.availability.On("IsAvailable", ctx, "space-1", testDate, input.Slot, "").Return(true, nil).Once()
	f.spaces.On("GetByID", ctx, "space-1").Return(nil, domain.ErrNotFound).Once()

	reservation, err := f.service.Create(ctx, input)

	assert.Nil(t, reservation)
	assert.ErrorIs(t, err, domain.ErrInvalidSpace)
}

func TestReservationService_Create_InactiveSpace(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	input := validInput()

	f.locker.On("AcquireSlotLock", ctx, "space-1", testDate, time.Minute).Return(true, nil).Once()
	f.locker.On("ReleaseSlotLock", ctx, "space-1", testDate).Return(nil).Once()
	f.availability.On("IsAvailable", ctx, "space-1", testDate, input.Slot, "").Return(true, nil).Once()
	f.spaces.On("GetByID", ctx, "space-1").Return(&domain.Space{ID: "space-1", Active: false}, nil).Once()

	reservation, err := f.service.Create(ctx, input)

	assert.Nil(t, reservation)
	assert.ErrorIs(t, err, domain.ErrInvalidSpace)
	f.reservations.AssertNotCalled(t, "Create")
}

func TestReservationService_Create_LosesCommitRace(t *testing.T) {
	// The pre-check passed but a concurrent writer committed first; the
	// repository surfaces the exclusion-constraint violation.
	f := newFixture()
	ctx := context.Background()
	input := validInput()

	f.locker.On("AcquireSlotLock", ctx, "space-1", testDate, time.Minute).Return(true, nil).Once()
	f.locker.On("ReleaseSlotLock", ctx, "space-1", testDate).Return(nil).Once()
	f.availability.On("IsAvailable", ctx, "space-1", testDate, input.Slot, "").Return(true, nil).Once()
	f.spaces.On("GetByID", ctx, "space-1").Return(&domain.Space{ID: "space-1", BasePricePerHour: 100, Active: true}, nil).Once()
	f.reservations.On("Create", ctx, mock.Anything).Return(domain.ErrSlotUnavailable).Once()

	reservation, err := f.service.Create(ctx, input)

	assert.Nil(t, reservation)
	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
	f.producer.AssertNotCalled(t, "Publish")
}

func TestReservationService_Create_NoLockerConfigured(t *testing.T) {
	f := newFixture()
	f.service.locker = nil
	ctx := context.Background()
	input := validInput()

	f.availability.On("IsAvailable", ctx, "space-1", testDate, input.Slot, "").Return(true, nil).Once()
	f.spaces.On("GetByID", ctx, "space-1").Return(&domain.Space{ID: "space-1", BasePricePerHour: 50, Active: true}, nil).Once()
	f.reservations.On("Create", ctx, mock.Anything).Return(nil).Once()
	f.producer.On("Publish", ctx, "reservation-events", mock.Anything, mock.Anything).Return(nil).Once()

	reservation, err := f.service.Create(ctx, input)

	assert.NoError(t, err)
	assert.Equal(t, 100.0, reservation.TotalAmount)
}

func TestReservationService_Reschedule_Conflict(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	current := &domain.Reservation{ID: "r2", SpaceID: "space-1", Status: domain.ReservationStatusPending, Slot: makeSlot(12*60, 14*60), Date: testDate}
	newStart, newEnd := domain.TimeOfDay(10*60), domain.TimeOfDay(13*60)

	f.reservations.On("GetByID", ctx, "r2").Return(current, nil).Once()
	f.locker.On("AcquireSlotLock", ctx, "space-1", testDate, time.Minute).Return(true, nil).Once()
	f.locker.On("ReleaseSlotLock", ctx, "space-1", testDate).Return(nil).Once()
	f.availability.On("IsAvailable", ctx, "space-1", testDate, makeSlot(10*60, 13*60), "r2").Return(false, nil).Once()

	updated, err := f.service.Reschedule(ctx, "r2", RescheduleInput{Date: &testDate, Start: &newStart, End: &newEnd})

	assert.Nil(t, updated)
	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
	f.reservations.AssertNotCalled(t, "UpdateSchedule")
}

func TestReservationService_Reschedule_Success(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	current := &domain.Reservation{ID: "r2", SpaceID: "space-1", Status: domain.ReservationStatusPending, Slot: makeSlot(12*60, 14*60), Date: testDate, TotalAmount: 200}
	newStart, newEnd := domain.TimeOfDay(11*60), domain.TimeOfDay(13*60)
	updated := &domain.Reservation{ID: "r2", SpaceID: "space-1", Status: domain.ReservationStatusPending, Slot: makeSlot(11*60, 13*60), Date: testDate, TotalAmount: 200}

	f.reservations.On("GetByID", ctx, "r2").Return(current, nil).Once()
	f.locker.On("AcquireSlotLock", ctx, "space-1", testDate, time.Minute).Return(true, nil).Once()
	f.locker.On("ReleaseSlotLock", ctx, "space-1", testDate).Return(nil).Once()
	f.availability.On("IsAvailable", ctx, "space-1", testDate, makeSlot(11*60, 13*60), "r2").Return(true, nil).Once()
	f.reservations.On("UpdateSchedule", ctx, "r2", mock.MatchedBy(func(upd repository.ScheduleUpdate) bool {
		// Without repricing the committed total must stay untouched.
		return upd.TotalAmount == nil && upd.Date != nil && *upd.Start == newStart && *upd.End == newEnd
	})).Return(updated, nil).Once()
	f.producer.On("Publish", ctx, "reservation-events", "r2", mock.Anything).Return(nil).Once()

	got, err := f.service.Reschedule(ctx, "r2", RescheduleInput{Date: &testDate, Start: &newStart, End: &newEnd})

	assert.NoError(t, err)
	assert.Equal(t, 200.0, got.TotalAmount)
	f.reservations.AssertExpectations(t)
}

func TestReservationService_Reschedule_PartialSkipsAvailability(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	current := &domain.Reservation{ID: "r1", SpaceID: "space-1", Status: domain.ReservationStatusConfirmed}
	notes := "projector needed"
	updated := &domain.Reservation{ID: "r1", SpaceID: "space-1", Status: domain.ReservationStatusConfirmed, Notes: notes}

	f.reservations.On("GetByID", ctx, "r1").Return(current, nil).Once()
	f.reservations.On("UpdateSchedule", ctx, "r1", mock.Anything).Return(updated, nil).Once()
	f.producer.On("Publish", ctx, "reservation-events", "r1", mock.Anything).Return(nil).Once()

	got, err := f.service.Reschedule(ctx, "r1", RescheduleInput{Notes: &notes})

	assert.NoError(t, err)
	assert.Equal(t, notes, got.Notes)
	f.availability.AssertNotCalled(t, "IsAvailable")
	f.locker.AssertNotCalled(t, "AcquireSlotLock")
}

func TestReservationService_Reschedule_InvertedTimesRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	current := &domain.Reservation{ID: "r1", SpaceID: "space-1", Status: domain.ReservationStatusPending, Date: testDate, Slot: makeSlot(12*60, 14*60)}
	newStart, newEnd := domain.TimeOfDay(11*60), domain.TimeOfDay(10*60)

	f.reservations.On("GetByID", ctx, "r1").Return(current, nil).Once()

	updated, err := f.service.Reschedule(ctx, "r1", RescheduleInput{Start: &newStart, End: &newEnd})

	assert.Nil(t, updated)
	assert.ErrorIs(t, err, domain.ErrValidation)
	f.reservations.AssertNotCalled(t, "UpdateSchedule")
	f.locker.AssertNotCalled(t, "AcquireSlotLock")
}

func TestReservationService_Reschedule_LoneEndBeforeStoredStartRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// Stored slot is 12:00-14:00; an end_time of 11:00 alone inverts it.
	current := &domain.Reservation{ID: "r1", SpaceID: "space-1", Status: domain.ReservationStatusPending, Date: testDate, Slot: makeSlot(12*60, 14*60)}
	newEnd := domain.TimeOfDay(11 * 60)

	f.reservations.On("GetByID", ctx, "r1").Return(current, nil).Once()

	updated, err := f.service.Reschedule(ctx, "r1", RescheduleInput{End: &newEnd})

	assert.Nil(t, updated)
	assert.ErrorIs(t, err, domain.ErrValidation)
	f.reservations.AssertNotCalled(t, "UpdateSchedule")
}

func TestReservationService_Reschedule_TimeOnlyChangeRechecksAvailability(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	current := &domain.Reservation{ID: "r1", SpaceID: "space-1", Status: domain.ReservationStatusPending, Date: testDate, Slot: makeSlot(12*60, 14*60)}
	newEnd := domain.TimeOfDay(13 * 60)
	updated := &domain.Reservation{ID: "r1", SpaceID: "space-1", Status: domain.ReservationStatusPending, Date: testDate, Slot: makeSlot(12*60, 13*60)}

	f.reservations.On("GetByID", ctx, "r1").Return(current, nil).Once()
	f.locker.On("AcquireSlotLock", ctx, "space-1", testDate, time.Minute).Return(true, nil).Once()
	f.locker.On("ReleaseSlotLock", ctx, "space-1", testDate).Return(nil).Once()
	// The merged schedule (stored date, stored start, new end) is re-checked.
	f.availability.On("IsAvailable", ctx, "space-1", testDate, makeSlot(12*60, 13*60), "r1").Return(true, nil).Once()
	f.reservations.On("UpdateSchedule", ctx, "r1", mock.Anything).Return(updated, nil).Once()
	f.producer.On("Publish", ctx, "reservation-events", "r1", mock.Anything).Return(nil).Once()

	got, err := f.service.Reschedule(ctx, "r1", RescheduleInput{End: &newEnd})

	assert.NoError(t, err)
	assert.Equal(t, makeSlot(12*60, 13*60), got.Slot)
	f.availability.AssertExpectations(t)
}

func TestReservationService_Reschedule_RepriceEnabled(t *testing.T) {
	f := newFixture(WithReprice(true))
	ctx := context.Background()

	current := &domain.Reservation{ID: "r1", SpaceID: "space-1", Status: domain.ReservationStatusPending, TotalAmount: 200}
	newStart, newEnd := domain.TimeOfDay(9*60), domain.TimeOfDay(10*60)
	updated := &domain.Reservation{ID: "r1", SpaceID: "space-1", Status: domain.ReservationStatusPending, TotalAmount: 150}

	f.reservations.On("GetByID", ctx, "r1").Return(current, nil).Once()
	f.locker.On("AcquireSlotLock", ctx, "space-1", testDate, time.Minute).Return(true, nil).Once()
	f.locker.On("ReleaseSlotLock", ctx, "space-1", testDate).Return(nil).Once()
	f.availability.On("IsAvailable", ctx, "space-1", testDate, makeSlot(9*60, 10*60), "r1").Return(true, nil).Once()
	f.spaces.On("GetByID", ctx, "space-1").Return(&domain.Space{ID: "space-1", BasePricePerHour: 150, Active: true}, nil).Once()
	f.reservations.On("UpdateSchedule", ctx, "r1", mock.MatchedBy(func(upd repository.ScheduleUpdate) bool {
		return upd.TotalAmount != nil && *upd.TotalAmount == 150.0
	})).Return(updated, nil).Once()
	f.producer.On("Publish", ctx, "reservation-events", "r1", mock.Anything).Return(nil).Once()

	got, err := f.service.Reschedule(ctx, "r1", RescheduleInput{Date: &testDate, Start: &newStart, End: &newEnd})

	assert.NoError(t, err)
	assert.Equal(t, 150.0, got.TotalAmount)
}

func TestReservationService_Reschedule_NotFound(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.reservations.On("GetByID", ctx, "missing").Return(nil, domain.ErrNotFound).Once()

	updated, err := f.service.Reschedule(ctx, "missing", RescheduleInput{})

	assert.Nil(t, updated)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReservationService_Reschedule_CancelledIsTerminal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.reservations.On("GetByID", ctx, "r1").Return(&domain.Reservation{ID: "r1", Status: domain.ReservationStatusCancelled}, nil).Once()

	updated, err := f.service.Reschedule(ctx, "r1", RescheduleInput{})

	assert.Nil(t, updated)
	assert.ErrorIs(t, err, domain.ErrReservationClosed)
	f.reservations.AssertNotCalled(t, "UpdateSchedule")
}

func TestReservationService_Confirm_Success(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	pending := &domain.Reservation{ID: "r1", Status: domain.ReservationStatusPending}
	confirmed := &domain.Reservation{ID: "r1", Status: domain.ReservationStatusConfirmed}

	f.reservations.On("GetByID", ctx, "r1").Return(pending, nil).Once()
	f.reservations.On("UpdateStatus", ctx, "r1", domain.ReservationStatusConfirmed).Return(confirmed, nil).Once()
	f.producer.On("Publish", ctx, "reservation-events", "r1", mock.Anything).Return(nil).Once()

	got, err := f.service.Confirm(ctx, "r1")

	assert.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusConfirmed, got.Status)
}

func TestReservationService_Confirm_Idempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	confirmed := &domain.Reservation{ID: "r1", Status: domain.ReservationStatusConfirmed}
	f.reservations.On("GetByID", ctx, "r1").Return(confirmed, nil).Once()

	got, err := f.service.Confirm(ctx, "r1")

	assert.NoError(t, err)
	assert.Equal(t, confirmed, got)
	f.reservations.AssertNotCalled(t, "UpdateStatus")
}

func TestReservationService_Confirm_CancelledIsTerminal(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.reservations.On("GetByID", ctx, "r1").Return(&domain.Reservation{ID: "r1", Status: domain.ReservationStatusCancelled}, nil).Once()

	got, err := f.service.Confirm(ctx, "r1")

	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrReservationClosed)
}

func TestReservationService_Cancel_Success(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	pending := &domain.Reservation{ID: "r1", Status: domain.ReservationStatusPending}
	cancelled := &domain.Reservation{ID: "r1", Status: domain.ReservationStatusCancelled}

	f.reservations.On("GetByID", ctx, "r1").Return(pending, nil).Once()
	f.reservations.On("UpdateStatus", ctx, "r1", domain.ReservationStatusCancelled).Return(cancelled, nil).Once()
	f.producer.On("Publish", ctx, "reservation-events", "r1", mock.Anything).Return(nil).Once()

	got, err := f.service.Cancel(ctx, "r1")

	assert.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusCancelled, got.Status)
}

func TestReservationService_Cancel_Idempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	cancelled := &domain.Reservation{ID: "r1", Status: domain.ReservationStatusCancelled}
	f.reservations.On("GetByID", ctx, "r1").Return(cancelled, nil).Twice()

	first, err := f.service.Cancel(ctx, "r1")
	assert.NoError(t, err)
	second, err := f.service.Cancel(ctx, "r1")
	assert.NoError(t, err)

	assert.Equal(t, domain.ReservationStatusCancelled, first.Status)
	assert.Equal(t, domain.ReservationStatusCancelled, second.Status)
	f.reservations.AssertNotCalled(t, "UpdateStatus")
}

func TestReservationService_Cancel_NotFound(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.reservations.On("GetByID", ctx, "missing").Return(nil, domain.ErrNotFound).Once()

	got, err := f.service.Cancel(ctx, "missing")

	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReservationService_Get_WithPayments(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	reservation := &domain.Reservation{ID: "r1", TotalAmount: 200}
	payments := []domain.Payment{{ID: "p1", Amount: 60, Status: domain.PaymentStatusPaid}}

	f.reservations.On("GetByID", ctx, "r1").Return(reservation, nil).Once()
	f.payments.On("ListByReservation", ctx, "r1").Return(payments, nil).Once()

	gotReservation, gotPayments, err := f.service.Get(ctx, "r1")

	assert.NoError(t, err)
	assert.Equal(t, reservation, gotReservation)
	assert.Equal(t, payments, gotPayments)
}

// exclusionReservationRepo mimics the storage exclusion constraint: inserts
// run under a mutex and an overlapping non-cancelled row rejects the write,
// the way the gist constraint does at commit.
type exclusionReservationRepo struct {
	mu   sync.Mutex
	rows []domain.Reservation
}

func (r *exclusionReservationRepo) Create(ctx context.Context, res *domain.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rows {
		if existing.SpaceID == res.SpaceID && existing.Date.Equal(res.Date) &&
			existing.Status != domain.ReservationStatusCancelled && existing.Slot.Overlaps(res.Slot) {
			return domain.ErrSlotUnavailable
		}
	}
	r.rows = append(r.rows, *res)
	return nil
}

func (r *exclusionReservationRepo) ListForDay(ctx context.Context, spaceID string, date time.Time, excludeID string) ([]domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Reservation, 0)
	for _, existing := range r.rows {
		if existing.SpaceID == spaceID && existing.Date.Equal(date) &&
			existing.Status != domain.ReservationStatusCancelled && existing.ID != excludeID {
			out = append(out, existing)
		}
	}
	return out, nil
}

func (r *exclusionReservationRepo) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	return nil, domain.ErrNotFound
}

func (r *exclusionReservationRepo) List(ctx context.Context, f repository.ReservationFilters) ([]domain.Reservation, error) {
	return nil, nil
}

func (r *exclusionReservationRepo) ListByDay(ctx context.Context, date time.Time, branchID string) ([]domain.Reservation, error) {
	return nil, nil
}

func (r *exclusionReservationRepo) UpdateSchedule(ctx context.Context, id string, upd repository.ScheduleUpdate) (*domain.Reservation, error) {
	return nil, domain.ErrNotFound
}

func (r *exclusionReservationRepo) UpdateStatus(ctx context.Context, id string, status domain.ReservationStatus) (*domain.Reservation, error) {
	return nil, domain.ErrNotFound
}

func (r *exclusionReservationRepo) ListConfirmedWithBalance(ctx context.Context) ([]domain.ReservationBalance, error) {
	return nil, nil
}

var _ repository.ReservationRepository = (*exclusionReservationRepo)(nil)

func TestReservationService_Create_ConcurrentAttemptsSingleWinner(t *testing.T) {
	repo := &exclusionReservationRepo{}
	spaces := &MockSpaceRepository{}
	spaces.On("GetByID", mock.Anything, "space-1").
		Return(&domain.Space{ID: "space-1", BasePricePerHour: 100, Active: true}, nil)

	// No slot locker: every goroutine may pass the availability pre-check,
	// so only the store-level exclusion decides the winner.
	service := NewReservationService(
		repo, &MockPaymentRepository{}, spaces,
		availability.NewAvailabilityService(repo, spaces, nil),
		nil, nil, "", time.Minute,
	)

	const attempts = 8
	ctx := context.Background()
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.Create(ctx, validInput())
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrSlotUnavailable)
	}
	assert.Equal(t, 1, winners, "exactly one concurrent creator must win the slot")
	assert.Len(t, repo.rows, 1)
}

func TestReservationService_PublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	input := validInput()

	f.locker.On("AcquireSlotLock", ctx, "space-1", testDate, time.Minute).Return(true, nil).Once()
	f.locker.On("ReleaseSlotLock", ctx, "space-1", testDate).Return(nil).Once()
	f.availability.On("IsAvailable", ctx, "space-1", testDate, input.Slot, "").Return(true, nil).Once()
	f.spaces.On("GetByID", ctx, "space-1").Return(&domain.Space{ID: "space-1", BasePricePerHour: 100, Active: true}, nil).Once()
	f.reservations.On("Create", ctx, mock.Anything).Return(nil).Once()
	f.producer.On("Publish", ctx, "reservation-events", mock.Anything, mock.Anything).Return(errors.New("kafka down")).Once()

	reservation, err := f.service.Create(ctx, input)

	assert.NoError(t, err)
	assert.NotNil(t, reservation)
}
