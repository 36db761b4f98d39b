package parking

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketState is derived from the exit timestamp.
type TicketState string

const (
	Parked   TicketState = "PARKED"
	Departed TicketState = "DEPARTED"
)

// Ticket records one visit. It is created Parked at entry and becomes
// Departed exactly once, when the exit time and price are set.
type Ticket struct {
	ID              int
	Spot            Spot
	VehicleID       string
	InTime          time.Time
	OutTime         *time.Time
	Price           decimal.Decimal
	DiscountPercent int
}

func NewTicket(spot Spot, vehicleID string, inTime time.Time, discountPercent int) *Ticket {
	return &Ticket{
		Spot:            spot,
		VehicleID:       vehicleID,
		InTime:          inTime,
		Price:           decimal.Zero,
		DiscountPercent: discountPercent,
	}
}

func (t *Ticket) State() TicketState {
	if t.OutTime == nil {
		return Parked
	}
	return Departed
}

// Duration is the elapsed stay. It is zero while the vehicle is parked.
func (t *Ticket) Duration() time.Duration {
	if t.OutTime == nil {
		return 0
	}
	return t.OutTime.Sub(t.InTime)
}
