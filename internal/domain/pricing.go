package domain

import "math"

// Quote computes the committed price for a slot: hourly rate times fractional
// hours (a 90-minute slot bills 1.5 hours). No rounding happens here; amounts
// are rounded to cents only where they are persisted or rendered.
func Quote(hourlyRate float64, slot TimeSlot) float64 {
	return hourlyRate * slot.DurationHours()
}

// RoundMoney rounds to two decimal places.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
