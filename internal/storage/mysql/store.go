package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"parking-system/internal/parking"
)

var ErrSpotNotFound = errors.New("parking spot not found")

type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate(ctx context.Context) error {
	for _, q := range []string{createParkingTable, createTicketTable} {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// Seed inserts car spots then bike spots, numbered from 1, when the
// parking table is empty.
func (s *Store) Seed(ctx context.Context, carSpots, bikeSpots int) error {
	var count int
	if err := s.db.GetContext(ctx, &count, countSpots); err != nil {
		return fmt.Errorf("count parking spots: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	id := 1
	for _, batch := range []struct {
		category parking.Category
		n        int
	}{{parking.Car, carSpots}, {parking.Bike, bikeSpots}} {
		for i := 0; i < batch.n; i++ {
			if _, err := tx.ExecContext(ctx, insertSpot, id, batch.category.String()); err != nil {
				return err
			}
			id++
		}
	}
	return tx.Commit()
}

func (s *Store) NextAvailable(ctx context.Context, category parking.Category) (int, error) {
	var next sql.NullInt64
	if err := s.db.GetContext(ctx, &next, nextParkingSpot, category.String()); err != nil {
		return parking.NoSpotAvailable, err
	}
	if !next.Valid {
		return parking.NoSpotAvailable, nil
	}
	return int(next.Int64), nil
}

func (s *Store) UpdateSpot(ctx context.Context, spot parking.Spot) error {
	query := releaseParkingSpot
	if !spot.Available {
		query = occupyParkingSpot
	}

	res, err := s.db.ExecContext(ctx, query, spot.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	// MySQL reports 0 affected rows when the value did not change, so look
	// at the row to tell "missing" from "already occupied".
	var available bool
	err = s.db.GetContext(ctx, &available, spotAvailability, spot.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %d", ErrSpotNotFound, spot.ID)
	}
	if err != nil {
		return err
	}
	if !spot.Available && !available {
		return parking.ErrSpotTaken
	}
	return nil
}

func (s *Store) ListSpots(ctx context.Context) ([]parking.Spot, error) {
	var rows []spotRow
	if err := s.db.SelectContext(ctx, &rows, listSpots); err != nil {
		return nil, err
	}
	spots := make([]parking.Spot, 0, len(rows))
	for _, r := range rows {
		spots = append(spots, r.toSpot())
	}
	return spots, nil
}

func (s *Store) SaveTicket(ctx context.Context, ticket *parking.Ticket) error {
	res, err := s.db.ExecContext(ctx, saveTicket,
		ticket.Spot.ID,
		ticket.VehicleID,
		ticket.Price,
		ticket.InTime.UTC(),
		nullTime(ticket),
		ticket.DiscountPercent,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ticket.ID = int(id)
	return nil
}

func (s *Store) TicketByVehicle(ctx context.Context, vehicleID string) (*parking.Ticket, error) {
	var row ticketRow
	err := s.db.GetContext(ctx, &row, ticketByVehicle, vehicleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, parking.ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toTicket(), nil
}

func (s *Store) UpdateTicket(ctx context.Context, ticket *parking.Ticket) error {
	res, err := s.db.ExecContext(ctx, updateTicket, ticket.Price, nullTime(ticket), ticket.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: ticket %d", parking.ErrTicketNotFound, ticket.ID)
	}
	return nil
}

// Reset frees every spot and deletes all tickets.
func (s *Store) Reset(ctx context.Context) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, resetSpots); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, deleteTickets); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
