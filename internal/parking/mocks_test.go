package parking

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type mockSpotStore struct {
	mock.Mock
}

func (m *mockSpotStore) NextAvailable(ctx context.Context, category Category) (int, error) {
	args := m.Called(ctx, category)
	return args.Int(0), args.Error(1)
}

func (m *mockSpotStore) UpdateSpot(ctx context.Context, spot Spot) error {
	args := m.Called(ctx, spot)
	return args.Error(0)
}

type mockTicketStore struct {
	mock.Mock
}

func (m *mockTicketStore) SaveTicket(ctx context.Context, ticket *Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *mockTicketStore) TicketByVehicle(ctx context.Context, vehicleID string) (*Ticket, error) {
	args := m.Called(ctx, vehicleID)
	if t, ok := args.Get(0).(*Ticket); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockTicketStore) UpdateTicket(ctx context.Context, ticket *Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

// scriptedInput answers with fixed values and counts how often it was asked.
type scriptedInput struct {
	selection     int
	vehicleID     string
	vehicleErr    error
	selectionRead int
	vehicleRead   int
}

func (in *scriptedInput) ReadSelection() int {
	in.selectionRead++
	return in.selection
}

func (in *scriptedInput) ReadVehicleID() (string, error) {
	in.vehicleRead++
	if in.vehicleErr != nil {
		return "", in.vehicleErr
	}
	return in.vehicleID, nil
}

func fixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}
