package postgres

import (
	"time"

	"github.com/shopspring/decimal"

	"parking-system/internal/parking"
)

type spotRow struct {
	ID        int    `gorm:"primaryKey;column:parking_number;autoIncrement:false"`
	Type      string `gorm:"column:type;size:10;not null;index"`
	Available bool   `gorm:"column:available;not null"`
}

func (spotRow) TableName() string {
	return "parking"
}

type ticketRow struct {
	ID               int             `gorm:"primaryKey"`
	ParkingNumber    int             `gorm:"not null;index"`
	Spot             spotRow         `gorm:"foreignKey:ParkingNumber;references:ID"`
	VehicleRegNumber string          `gorm:"size:32;not null;index"`
	Price            decimal.Decimal `gorm:"type:numeric(12,4);not null"`
	InTime           time.Time       `gorm:"not null"`
	OutTime          *time.Time
	DiscountPc       int `gorm:"not null"`
}

func (ticketRow) TableName() string {
	return "ticket"
}

func (r spotRow) toSpot() parking.Spot {
	return parking.Spot{
		ID:        r.ID,
		Category:  parking.Category(r.Type),
		Available: r.Available,
	}
}

func (r ticketRow) toTicket() *parking.Ticket {
	return &parking.Ticket{
		ID:              r.ID,
		Spot:            r.Spot.toSpot(),
		VehicleID:       r.VehicleRegNumber,
		InTime:          r.InTime,
		OutTime:         r.OutTime,
		Price:           r.Price,
		DiscountPercent: r.DiscountPc,
	}
}

func newTicketRow(t *parking.Ticket) *ticketRow {
	return &ticketRow{
		ParkingNumber:    t.Spot.ID,
		VehicleRegNumber: t.VehicleID,
		Price:            t.Price,
		InTime:           t.InTime,
		OutTime:          t.OutTime,
		DiscountPc:       t.DiscountPercent,
	}
}
