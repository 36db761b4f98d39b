package parking

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// FreeParkingDuration is the grace period billed at zero.
	FreeParkingDuration = 30 * time.Minute

	LoyaltyDiscountPercent = 5
)

var (
	CarRatePerHour  = decimal.RequireFromString("1.5")
	BikeRatePerHour = decimal.RequireFromString("1.0")

	millisPerHour = decimal.NewFromInt(time.Hour.Milliseconds())
	hundred       = decimal.NewFromInt(100)
)

// FareCalculator prices a stay. It has no state and no side effects.
type FareCalculator struct{}

func NewFareCalculator() *FareCalculator {
	return &FareCalculator{}
}

func RatePerHour(category Category) (decimal.Decimal, error) {
	switch category {
	case Car:
		return CarRatePerHour, nil
	case Bike:
		return BikeRatePerHour, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnknownCategory, string(category))
	}
}

// ForTicket prices a ticket whose exit time has been stamped.
func (fc *FareCalculator) ForTicket(t *Ticket) (decimal.Decimal, error) {
	if t.OutTime == nil {
		return decimal.Zero, ErrMissingExitTime
	}
	if t.OutTime.Before(t.InTime) {
		return decimal.Zero, fmt.Errorf("%w: out %s, in %s",
			ErrNegativeDuration, t.OutTime.Format(time.RFC3339), t.InTime.Format(time.RFC3339))
	}
	return fc.Compute(t.OutTime.Sub(t.InTime), t.Spot.Category, t.DiscountPercent)
}

// Compute bills partial hours proportionally: hours × rate × (100-discount)/100.
// Stays shorter than FreeParkingDuration cost nothing.
func (fc *FareCalculator) Compute(d time.Duration, category Category, discountPercent int) (decimal.Decimal, error) {
	if d < 0 {
		return decimal.Zero, ErrNegativeDuration
	}
	if discountPercent < 0 || discountPercent > 100 {
		return decimal.Zero, fmt.Errorf("%w: %d", ErrInvalidDiscount, discountPercent)
	}
	rate, err := RatePerHour(category)
	if err != nil {
		return decimal.Zero, err
	}

	if d < FreeParkingDuration {
		return decimal.Zero, nil
	}

	hours := decimal.NewFromInt(d.Milliseconds()).Div(millisPerHour)
	return hours.Mul(rate).
		Mul(decimal.NewFromInt(int64(100 - discountPercent))).
		Div(hundred), nil
}
