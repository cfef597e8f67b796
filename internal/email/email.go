package email

import (
	"context"
	"fmt"

	"github.com/kseleznyov/spacebooking/internal/kafka"
)

type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	switch event.Type {
	case kafka.EventPaymentReminder:
		fmt.Printf("send email to customer %s: reservation %s on %s has %.2f outstanding\n",
			event.CustomerID, event.ReservationID, event.Date, event.Remaining)
	case kafka.EventPaymentRecorded, kafka.EventPaymentPaid:
		fmt.Printf("send email to customer %s about %s of %.2f for reservation %s\n",
			event.CustomerID, event.Type, event.Amount, event.ReservationID)
	default:
		fmt.Printf("send email to customer %s about %s for reservation %s on %s %s-%s\n",
			event.CustomerID, event.Type, event.ReservationID, event.Date, event.StartTime, event.EndTime)
	}
	return nil
}
