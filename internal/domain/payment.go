package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
)

// Payment is one installment against a reservation's committed total. A PAID
// payment is immutable: it can never be deleted or reverted.
type Payment struct {
	ID            string
	ReservationID string
	Amount        float64
	Method        string
	Status        PaymentStatus
	Purpose       string
	ExternalRef   string
	PaidAt        *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
