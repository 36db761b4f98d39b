package mysql

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"parking-system/internal/parking"
)

type spotRow struct {
	ParkingNumber int    `db:"parking_number"`
	Type          string `db:"type"`
	Available     bool   `db:"available"`
}

func (r spotRow) toSpot() parking.Spot {
	return parking.Spot{
		ID:        r.ParkingNumber,
		Category:  parking.Category(r.Type),
		Available: r.Available,
	}
}

// ticketRow is a ticket joined with its spot.
type ticketRow struct {
	ID               int             `db:"id"`
	VehicleRegNumber string          `db:"vehicle_reg_number"`
	Price            decimal.Decimal `db:"price"`
	InTime           time.Time       `db:"in_time"`
	OutTime          sql.NullTime    `db:"out_time"`
	DiscountPc       int             `db:"discount_pc"`
	spotRow
}

func (r ticketRow) toTicket() *parking.Ticket {
	t := &parking.Ticket{
		ID:              r.ID,
		Spot:            r.toSpot(),
		VehicleID:       r.VehicleRegNumber,
		InTime:          r.InTime,
		Price:           r.Price,
		DiscountPercent: r.DiscountPc,
	}
	if r.OutTime.Valid {
		out := r.OutTime.Time
		t.OutTime = &out
	}
	return t
}

func nullTime(t *parking.Ticket) sql.NullTime {
	if t.OutTime == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.OutTime.UTC(), Valid: true}
}
