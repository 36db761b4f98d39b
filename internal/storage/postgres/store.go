package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"parking-system/internal/parking"
)

var ErrSpotNotFound = errors.New("parking spot not found")

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) NextAvailable(ctx context.Context, category parking.Category) (int, error) {
	var next sql.NullInt64
	err := s.db.WithContext(ctx).
		Model(&spotRow{}).
		Select("MIN(parking_number)").
		Where("type = ? AND available = ?", category.String(), true).
		Scan(&next).Error
	if err != nil {
		return parking.NoSpotAvailable, err
	}
	if !next.Valid {
		return parking.NoSpotAvailable, nil
	}
	return int(next.Int64), nil
}

// UpdateSpot occupies a spot only if it is still free, so concurrent
// entries racing for the same spot cannot both succeed.
func (s *Store) UpdateSpot(ctx context.Context, spot parking.Spot) error {
	query := s.db.WithContext(ctx).Model(&spotRow{}).Where("parking_number = ?", spot.ID)
	if !spot.Available {
		query = query.Where("available = ?", true)
	}

	result := query.Update("available", spot.Available)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}

	var existing spotRow
	err := s.db.WithContext(ctx).First(&existing, "parking_number = ?", spot.ID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %d", ErrSpotNotFound, spot.ID)
	}
	if err != nil {
		return err
	}
	if !spot.Available && !existing.Available {
		return parking.ErrSpotTaken
	}
	return nil
}

func (s *Store) ListSpots(ctx context.Context) ([]parking.Spot, error) {
	var rows []spotRow
	if err := s.db.WithContext(ctx).Order("parking_number").Find(&rows).Error; err != nil {
		return nil, err
	}
	spots := make([]parking.Spot, 0, len(rows))
	for _, r := range rows {
		spots = append(spots, r.toSpot())
	}
	return spots, nil
}

func (s *Store) SaveTicket(ctx context.Context, ticket *parking.Ticket) error {
	row := newTicketRow(ticket)
	if err := s.db.WithContext(ctx).Omit("Spot").Create(row).Error; err != nil {
		return err
	}
	ticket.ID = row.ID
	return nil
}

func (s *Store) TicketByVehicle(ctx context.Context, vehicleID string) (*parking.Ticket, error) {
	var row ticketRow
	err := s.db.WithContext(ctx).
		Joins("Spot").
		Where("ticket.vehicle_reg_number = ?", vehicleID).
		Order("ticket.in_time DESC").
		Order("ticket.id DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, parking.ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toTicket(), nil
}

func (s *Store) UpdateTicket(ctx context.Context, ticket *parking.Ticket) error {
	result := s.db.WithContext(ctx).
		Model(&ticketRow{}).
		Where("id = ?", ticket.ID).
		Updates(map[string]any{
			"price":    ticket.Price,
			"out_time": ticket.OutTime,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: ticket %d", parking.ErrTicketNotFound, ticket.ID)
	}
	return nil
}

// Reset frees every spot and deletes all tickets.
func (s *Store) Reset(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("UPDATE parking SET available = TRUE").Error; err != nil {
			return err
		}
		return tx.Exec("DELETE FROM ticket").Error
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return ping(ctx, s.db)
}

func (s *Store) Close() error {
	return closeDB(s.db)
}
