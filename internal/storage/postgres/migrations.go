package postgres

import (
	"context"
	"fmt"

	"parking-system/internal/parking"
)

func (s *Store) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(
		&spotRow{},
		&ticketRow{},
	)
}

// Seed creates carSpots car spots and bikeSpots bike spots when the
// parking table is empty. An already seeded lot is left untouched.
func (s *Store) Seed(ctx context.Context, carSpots, bikeSpots int) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&spotRow{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count parking spots: %w", err)
	}
	if count > 0 {
		return nil
	}

	rows := make([]spotRow, 0, carSpots+bikeSpots)
	id := 1
	for i := 0; i < carSpots; i++ {
		rows = append(rows, spotRow{ID: id, Type: parking.Car.String(), Available: true})
		id++
	}
	for i := 0; i < bikeSpots; i++ {
		rows = append(rows, spotRow{ID: id, Type: parking.Bike.String(), Available: true})
		id++
	}
	if len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&rows).Error
}
