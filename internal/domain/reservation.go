package domain

import "time"

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "PENDING"
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
)

// Reservation is a claim on a space for one date/time interval. TotalAmount
// is computed once at creation from the space's hourly rate and never
// recomputed, even if the rate changes later.
type Reservation struct {
	ID                 string
	SpaceID            string
	BranchID           string
	CustomerID         string
	Date               time.Time
	Slot               TimeSlot
	Status             ReservationStatus
	TotalAmount        float64
	DepositRequiredPct float64
	Notes              string
	CreatedAt          time.Time
	UpdatedAt          time.Time

	// Join columns filled by list queries.
	SpaceName  string
	BranchName string
}

// ReservationBalance pairs a reservation with its settled payment sum, used
// by the payment-reminder sweep.
type ReservationBalance struct {
	ReservationID string
	CustomerID    string
	SpaceID       string
	Date          time.Time
	TotalAmount   float64
	PaidAmount    float64
}

func (b ReservationBalance) Remaining() float64 {
	if r := b.TotalAmount - b.PaidAmount; r > 0 {
		return RoundMoney(r)
	}
	return 0
}
