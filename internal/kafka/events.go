package kafka

import "time"

// Event types published to the reservations and notifications topics.
const (
	EventReservationCreated     = "reservation_created"
	EventReservationConfirmed   = "reservation_confirmed"
	EventReservationCancelled   = "reservation_cancelled"
	EventReservationRescheduled = "reservation_rescheduled"
	EventPaymentRecorded        = "payment_recorded"
	EventPaymentPaid            = "payment_paid"
	EventPaymentReminder        = "payment_reminder"
)

// BookingEvent is the single payload for all topics; payment fields are zero
// for reservation events and vice versa.
type BookingEvent struct {
	Type          string    `json:"type"`
	ReservationID string    `json:"reservation_id"`
	SpaceID       string    `json:"space_id,omitempty"`
	CustomerID    string    `json:"customer_id,omitempty"`
	Date          string    `json:"date,omitempty"`
	StartTime     string    `json:"start_time,omitempty"`
	EndTime       string    `json:"end_time,omitempty"`
	Status        string    `json:"status,omitempty"`
	TotalAmount   float64   `json:"total_amount,omitempty"`
	PaymentID     string    `json:"payment_id,omitempty"`
	Amount        float64   `json:"amount,omitempty"`
	Method        string    `json:"method,omitempty"`
	Remaining     float64   `json:"remaining,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}
