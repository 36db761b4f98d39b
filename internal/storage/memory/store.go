// Package memory keeps spots and tickets in process memory. It is the
// default store for the console and for tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"parking-system/internal/parking"
)

var ErrSpotNotFound = errors.New("parking spot not found")

type Store struct {
	mu           sync.Mutex
	spots        []*parking.Spot
	tickets      []*parking.Ticket
	nextTicketID int
}

// New seeds carSpots car spots followed by bikeSpots bike spots, numbered
// from 1.
func New(carSpots, bikeSpots int) *Store {
	spots := make([]parking.Spot, 0, carSpots+bikeSpots)
	id := 1
	for i := 0; i < carSpots; i++ {
		spots = append(spots, *parking.NewSpot(id, parking.Car))
		id++
	}
	for i := 0; i < bikeSpots; i++ {
		spots = append(spots, *parking.NewSpot(id, parking.Bike))
		id++
	}
	return NewWithSpots(spots...)
}

func NewWithSpots(spots ...parking.Spot) *Store {
	s := &Store{nextTicketID: 1}
	for _, spot := range spots {
		s.spots = append(s.spots, &spot)
	}
	sort.Slice(s.spots, func(i, j int) bool {
		return s.spots[i].ID < s.spots[j].ID
	})
	return s
}

func (s *Store) NextAvailable(_ context.Context, category parking.Category) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, spot := range s.spots {
		if spot.Category == category && spot.Available {
			return spot.ID, nil
		}
	}
	return parking.NoSpotAvailable, nil
}

func (s *Store) UpdateSpot(_ context.Context, spot parking.Spot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.findSpot(spot.ID)
	if existing == nil {
		return fmt.Errorf("%w: %d", ErrSpotNotFound, spot.ID)
	}
	if !spot.Available && !existing.Available {
		return parking.ErrSpotTaken
	}
	existing.Available = spot.Available
	return nil
}

func (s *Store) ListSpots(_ context.Context) ([]parking.Spot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	spots := make([]parking.Spot, 0, len(s.spots))
	for _, spot := range s.spots {
		spots = append(spots, *spot)
	}
	return spots, nil
}

func (s *Store) SaveTicket(_ context.Context, ticket *parking.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ticket.ID = s.nextTicketID
	s.nextTicketID++
	s.tickets = append(s.tickets, copyTicket(ticket))
	return nil
}

// TicketByVehicle returns the ticket with the latest entry time.
func (s *Store) TicketByVehicle(_ context.Context, vehicleID string) (*parking.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *parking.Ticket
	for _, t := range s.tickets {
		if t.VehicleID != vehicleID {
			continue
		}
		if latest == nil || !t.InTime.Before(latest.InTime) {
			latest = t
		}
	}
	if latest == nil {
		return nil, parking.ErrTicketNotFound
	}
	return copyTicket(latest), nil
}

// UpdateTicket stores the exit time and price of an existing ticket.
func (s *Store) UpdateTicket(_ context.Context, ticket *parking.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tickets {
		if t.ID == ticket.ID {
			updated := copyTicket(ticket)
			t.OutTime = updated.OutTime
			t.Price = updated.Price
			return nil
		}
	}
	return fmt.Errorf("%w: ticket %d", parking.ErrTicketNotFound, ticket.ID)
}

// Reset frees every spot and drops all tickets.
func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, spot := range s.spots {
		spot.Available = true
	}
	s.tickets = nil
	s.nextTicketID = 1
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	return nil
}

func (s *Store) findSpot(id int) *parking.Spot {
	for _, spot := range s.spots {
		if spot.ID == id {
			return spot
		}
	}
	return nil
}

func copyTicket(t *parking.Ticket) *parking.Ticket {
	c := *t
	if t.OutTime != nil {
		out := *t.OutTime
		c.OutTime = &out
	}
	return &c
}
