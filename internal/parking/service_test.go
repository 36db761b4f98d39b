package parking

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("connection refused")

type serviceFixture struct {
	spots   *mockSpotStore
	tickets *mockTicketStore
	service *Service
}

func newServiceFixture(now time.Time, opts ...Option) *serviceFixture {
	f := &serviceFixture{
		spots:   &mockSpotStore{},
		tickets: &mockTicketStore{},
	}
	f.service = NewService(f.spots, f.tickets, fixedClock(now), opts...)
	return f
}

func (f *serviceFixture) assertExpectations(t *testing.T) {
	t.Helper()
	f.spots.AssertExpectations(t)
	f.tickets.AssertExpectations(t)
}

func occupied(id int, category Category) Spot {
	return Spot{ID: id, Category: category, Available: false}
}

func free(id int, category Category) Spot {
	return Spot{ID: id, Category: category, Available: true}
}

func TestProcessIncomingVehicle(t *testing.T) {
	f := newServiceFixture(baseTime)
	ctx := context.Background()

	f.spots.On("NextAvailable", mock.Anything, Car).Return(1, nil).Once()
	f.spots.On("UpdateSpot", mock.Anything, occupied(1, Car)).Return(nil).Once()
	f.tickets.On("TicketByVehicle", mock.Anything, "ABCDEF").Return(nil, ErrTicketNotFound).Once()
	f.tickets.On("SaveTicket", mock.Anything, mock.MatchedBy(func(t *Ticket) bool {
		return t.Spot == occupied(1, Car) &&
			t.VehicleID == "ABCDEF" &&
			t.InTime.Equal(baseTime) &&
			t.OutTime == nil &&
			t.Price.IsZero() &&
			t.DiscountPercent == 0
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*Ticket).ID = 7
	}).Return(nil).Once()

	receipt, err := f.service.ProcessIncomingVehicle(ctx, &scriptedInput{selection: SelectCar, vehicleID: "ABCDEF"})
	require.NoError(t, err)

	assert.Equal(t, 1, receipt.SpotID)
	assert.Equal(t, Car, receipt.Category)
	assert.Equal(t, "ABCDEF", receipt.VehicleID)
	assert.Equal(t, baseTime, receipt.InTime)
	assert.Equal(t, 0, receipt.DiscountPercent)
	assert.Equal(t, 7, receipt.Ticket.ID)
	assert.Equal(t, Parked, receipt.Ticket.State())
	f.assertExpectations(t)
}

func TestProcessIncomingVehicleBike(t *testing.T) {
	f := newServiceFixture(baseTime)

	f.spots.On("NextAvailable", mock.Anything, Bike).Return(4, nil).Once()
	f.spots.On("UpdateSpot", mock.Anything, occupied(4, Bike)).Return(nil).Once()
	f.tickets.On("TicketByVehicle", mock.Anything, "BIKE01").Return(nil, ErrTicketNotFound).Once()
	f.tickets.On("SaveTicket", mock.Anything, mock.AnythingOfType("*parking.Ticket")).Return(nil).Once()

	receipt, err := f.service.ProcessIncomingVehicle(context.Background(), &scriptedInput{selection: SelectBike, vehicleID: "BIKE01"})
	require.NoError(t, err)
	assert.Equal(t, 4, receipt.SpotID)
	assert.Equal(t, Bike, receipt.Ticket.Spot.Category)
	f.assertExpectations(t)
}

func TestProcessIncomingVehicleReturningCustomer(t *testing.T) {
	f := newServiceFixture(baseTime)
	previous := &Ticket{ID: 3, Spot: free(2, Car), VehicleID: "ABCDEF", InTime: baseTime.Add(-48 * time.Hour)}

	f.spots.On("NextAvailable", mock.Anything, Car).Return(1, nil).Once()
	f.spots.On("UpdateSpot", mock.Anything, occupied(1, Car)).Return(nil).Once()
	f.tickets.On("TicketByVehicle", mock.Anything, "ABCDEF").Return(previous, nil).Once()
	f.tickets.On("SaveTicket", mock.Anything, mock.MatchedBy(func(t *Ticket) bool {
		return t.DiscountPercent == LoyaltyDiscountPercent
	})).Return(nil).Once()

	receipt, err := f.service.ProcessIncomingVehicle(context.Background(), &scriptedInput{selection: SelectCar, vehicleID: "ABCDEF"})
	require.NoError(t, err)
	assert.Equal(t, LoyaltyDiscountPercent, receipt.DiscountPercent)
	f.assertExpectations(t)
}

func TestProcessIncomingVehicleDiscountLookupFails(t *testing.T) {
	f := newServiceFixture(baseTime)

	f.spots.On("NextAvailable", mock.Anything, Car).Return(1, nil).Once()
	f.spots.On("UpdateSpot", mock.Anything, occupied(1, Car)).Return(nil).Once()
	f.tickets.On("TicketByVehicle", mock.Anything, "ABCDEF").Return(nil, errStoreDown).Once()
	f.tickets.On("SaveTicket", mock.Anything, mock.MatchedBy(func(t *Ticket) bool {
		return t.DiscountPercent == 0
	})).Return(nil).Once()

	receipt, err := f.service.ProcessIncomingVehicle(context.Background(), &scriptedInput{selection: SelectCar, vehicleID: "ABCDEF"})
	require.NoError(t, err)
	assert.Equal(t, 0, receipt.DiscountPercent)
	f.assertExpectations(t)
}

func TestProcessIncomingVehicleInvalidSelection(t *testing.T) {
	for _, selection := range []int{-1, 0, 3, 42} {
		f := newServiceFixture(baseTime)
		in := &scriptedInput{selection: selection, vehicleID: "ABCDEF"}

		_, err := f.service.ProcessIncomingVehicle(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidCategory)
		assert.Equal(t, KindValidation, KindOf(err))
		assert.Equal(t, 0, in.vehicleRead)
		f.spots.AssertNotCalled(t, "NextAvailable", mock.Anything, mock.Anything)
	}
}

func TestProcessIncomingVehicleLotFull(t *testing.T) {
	for _, spotID := range []int{NoSpotAvailable, 0} {
		f := newServiceFixture(baseTime)
		in := &scriptedInput{selection: SelectCar, vehicleID: "ABCDEF"}

		f.spots.On("NextAvailable", mock.Anything, Car).Return(spotID, nil).Once()

		_, err := f.service.ProcessIncomingVehicle(context.Background(), in)
		assert.ErrorIs(t, err, ErrNoSpotAvailable)
		assert.Equal(t, KindCapacity, KindOf(err))
		assert.Equal(t, 0, in.vehicleRead)
		f.spots.AssertNotCalled(t, "UpdateSpot", mock.Anything, mock.Anything)
		f.tickets.AssertNotCalled(t, "SaveTicket", mock.Anything, mock.Anything)
	}
}

func TestProcessIncomingVehicleSpotLookupFails(t *testing.T) {
	f := newServiceFixture(baseTime)

	f.spots.On("NextAvailable", mock.Anything, Car).Return(0, errStoreDown).Once()

	_, err := f.service.ProcessIncomingVehicle(context.Background(), &scriptedInput{selection: SelectCar})
	assert.ErrorIs(t, err, ErrSpotLookup)
	assert.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, KindCollaborator, KindOf(err))
	f.tickets.AssertNotCalled(t, "SaveTicket", mock.Anything, mock.Anything)
}

func TestProcessIncomingVehicleSpotTaken(t *testing.T) {
	f := newServiceFixture(baseTime)
	in := &scriptedInput{selection: SelectCar, vehicleID: "ABCDEF"}

	f.spots.On("NextAvailable", mock.Anything, Car).Return(1, nil).Once()
	f.spots.On("UpdateSpot", mock.Anything, occupied(1, Car)).Return(ErrSpotTaken).Once()

	_, err := f.service.ProcessIncomingVehicle(context.Background(), in)
	assert.ErrorIs(t, err, ErrSpotTaken)
	assert.Equal(t, KindCapacity, KindOf(err))
	assert.Equal(t, 0, in.vehicleRead)
	f.tickets.AssertNotCalled(t, "SaveTicket", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestProcessIncomingVehicleSpotUpdateFails(t *testing.T) {
	f := newServiceFixture(baseTime)
	in := &scriptedInput{selection: SelectCar, vehicleID: "ABCDEF"}

	f.spots.On("NextAvailable", mock.Anything, Car).Return(1, nil).Once()
	f.spots.On("UpdateSpot", mock.Anything, occupied(1, Car)).Return(errStoreDown).Once()
	f.tickets.On("TicketByVehicle", mock.Anything, "ABCDEF").Return(nil, ErrTicketNotFound).Once()
	f.tickets.On("SaveTicket", mock.Anything, mock.MatchedBy(func(t *Ticket) bool {
		return t.Spot == occupied(1, Car) && t.VehicleID == "ABCDEF"
	})).Return(nil).Once()

	receipt, err := f.service.ProcessIncomingVehicle(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 1, in.vehicleRead)
	assert.Equal(t, 1, receipt.SpotID)
	assert.Equal(t, "ABCDEF", receipt.VehicleID)
	assert.ErrorIs(t, receipt.SpotPersistErr, ErrSpotUpdate)
	assert.ErrorIs(t, receipt.SpotPersistErr, errStoreDown)
	assert.Equal(t, KindCollaborator, KindOf(receipt.SpotPersistErr))
	f.assertExpectations(t)
}

func TestProcessIncomingVehicleSpotPersistErrEmptyOnSuccess(t *testing.T) {
	f := newServiceFixture(baseTime)

	f.spots.On("NextAvailable", mock.Anything, Bike).Return(3, nil).Once()
	f.spots.On("UpdateSpot", mock.Anything, occupied(3, Bike)).Return(nil).Once()
	f.tickets.On("TicketByVehicle", mock.Anything, "XY12").Return(nil, ErrTicketNotFound).Once()
	f.tickets.On("SaveTicket", mock.Anything, mock.Anything).Return(nil).Once()

	receipt, err := f.service.ProcessIncomingVehicle(context.Background(), &scriptedInput{selection: SelectBike, vehicleID: "XY12"})
	require.NoError(t, err)
	assert.NoError(t, receipt.SpotPersistErr)
}

func TestProcessIncomingVehicleBlankRegistrationLeavesSpotOccupied(t *testing.T) {
	f := newServiceFixture(baseTime)
	in := &scriptedInput{selection: SelectCar, vehicleErr: ErrInvalidVehicleID}

	f.spots.On("NextAvailable", mock.Anything, Car).Return(1, nil).Once()
	f.spots.On("UpdateSpot", mock.Anything, occupied(1, Car)).Return(nil).Once()

	_, err := f.service.ProcessIncomingVehicle(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidVehicleID)
	assert.Equal(t, KindValidation, KindOf(err))
	f.spots.AssertNotCalled(t, "UpdateSpot", mock.Anything, free(1, Car))
	f.tickets.AssertNotCalled(t, "SaveTicket", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestProcessIncomingVehicleReadErrorIsInvalidVehicleID(t *testing.T) {
	f := newServiceFixture(baseTime)
	in := &scriptedInput{selection: SelectCar, vehicleErr: errors.New("stdin closed")}

	f.spots.On("NextAvailable", mock.Anything, Car).Return(1, nil).Once()
	f.spots.On("UpdateSpot", mock.Anything, occupied(1, Car)).Return(nil).Once()

	_, err := f.service.ProcessIncomingVehicle(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidVehicleID)
}

func TestProcessIncomingVehicleReleaseOnAbort(t *testing.T) {
	f := newServiceFixture(baseTime, WithReleaseOnAbort(true))
	in := &scriptedInput{selection: SelectCar, vehicleErr: ErrInvalidVehicleID}

	f.spots.On("NextAvailable", mock.Anything, Car).Return(1, nil).Once()
	f.spots.On("UpdateSpot", mock.Anything, occupied(1, Car)).Return(nil).Once()
	f.spots.On("UpdateSpot", mock.Anything, free(1, Car)).Return(nil).Once()

	_, err := f.service.ProcessIncomingVehicle(context.Background(), in)
	assert.ErrorIs(t, err, ErrInvalidVehicleID)
	f.assertExpectations(t)
}

func TestProcessIncomingVehicleTicketSaveFails(t *testing.T) {
	f := newServiceFixture(baseTime, WithReleaseOnAbort(true))

	f.spots.On("NextAvailable", mock.Anything, Car).Return(1, nil).Once()
	f.spots.On("UpdateSpot", mock.Anything, occupied(1, Car)).Return(nil).Once()
	f.spots.On("UpdateSpot", mock.Anything, free(1, Car)).Return(nil).Once()
	f.tickets.On("TicketByVehicle", mock.Anything, "ABCDEF").Return(nil, ErrTicketNotFound).Once()
	f.tickets.On("SaveTicket", mock.Anything, mock.Anything).Return(errStoreDown).Once()

	_, err := f.service.ProcessIncomingVehicle(context.Background(), &scriptedInput{selection: SelectCar, vehicleID: "ABCDEF"})
	assert.ErrorIs(t, err, ErrTicketSave)
	assert.Equal(t, KindCollaborator, KindOf(err))
	f.assertExpectations(t)
}

func parkedTicket(discount int) *Ticket {
	return &Ticket{
		ID:              7,
		Spot:            occupied(1, Car),
		VehicleID:       "ABCDEF",
		InTime:          baseTime,
		DiscountPercent: discount,
	}
}

func TestProcessExitingVehicle(t *testing.T) {
	outTime := baseTime.Add(time.Hour)
	f := newServiceFixture(outTime)

	f.tickets.On("TicketByVehicle", mock.Anything, "ABCDEF").Return(parkedTicket(0), nil).Once()
	f.tickets.On("UpdateTicket", mock.Anything, mock.MatchedBy(func(t *Ticket) bool {
		return t.ID == 7 && t.OutTime != nil && t.OutTime.Equal(outTime) && t.Price.String() == "1.5"
	})).Return(nil).Once()
	f.spots.On("UpdateSpot", mock.Anything, free(1, Car)).Return(nil).Once()

	receipt, err := f.service.ProcessExitingVehicle(context.Background(), &scriptedInput{vehicleID: "ABCDEF"})
	require.NoError(t, err)

	assertAmount(t, "1.5", receipt.Price)
	assert.Equal(t, 1, receipt.SpotID)
	assert.Equal(t, outTime, receipt.OutTime)
	assert.Equal(t, time.Hour, receipt.Duration)
	assert.Equal(t, Departed, receipt.Ticket.State())
	assert.True(t, receipt.Ticket.Spot.Available)
	f.assertExpectations(t)
}

func TestProcessExitingVehicleWithDiscount(t *testing.T) {
	f := newServiceFixture(baseTime.Add(time.Hour))

	f.tickets.On("TicketByVehicle", mock.Anything, "ABCDEF").Return(parkedTicket(LoyaltyDiscountPercent), nil).Once()
	f.tickets.On("UpdateTicket", mock.Anything, mock.Anything).Return(nil).Once()
	f.spots.On("UpdateSpot", mock.Anything, free(1, Car)).Return(nil).Once()

	receipt, err := f.service.ProcessExitingVehicle(context.Background(), &scriptedInput{vehicleID: "ABCDEF"})
	require.NoError(t, err)
	assertAmount(t, "1.425", receipt.Price)
}

func TestProcessExitingVehicleUnderGracePeriod(t *testing.T) {
	f := newServiceFixture(baseTime.Add(20 * time.Minute))

	f.tickets.On("TicketByVehicle", mock.Anything, "ABCDEF").Return(parkedTicket(0), nil).Once()
	f.tickets.On("UpdateTicket", mock.Anything, mock.Anything).Return(nil).Once()
	f.spots.On("UpdateSpot", mock.Anything, free(1, Car)).Return(nil).Once()

	receipt, err := f.service.ProcessExitingVehicle(context.Background(), &scriptedInput{vehicleID: "ABCDEF"})
	require.NoError(t, err)
	assert.True(t, receipt.Price.IsZero())
}

func TestProcessExitingVehicleBlankRegistration(t *testing.T) {
	f := newServiceFixture(baseTime)

	_, err := f.service.ProcessExitingVehicle(context.Background(), &scriptedInput{vehicleErr: ErrInvalidVehicleID})
	assert.ErrorIs(t, err, ErrInvalidVehicleID)
	f.tickets.AssertNotCalled(t, "TicketByVehicle", mock.Anything, mock.Anything)
}

func TestProcessExitingVehicleUnknownVehicle(t *testing.T) {
	f := newServiceFixture(baseTime)

	f.tickets.On("TicketByVehicle", mock.Anything, "NOPE").Return(nil, ErrTicketNotFound).Once()

	_, err := f.service.ProcessExitingVehicle(context.Background(), &scriptedInput{vehicleID: "NOPE"})
	assert.ErrorIs(t, err, ErrTicketNotFound)
	assert.Equal(t, KindValidation, KindOf(err))
	f.tickets.AssertNotCalled(t, "UpdateTicket", mock.Anything, mock.Anything)
	f.spots.AssertNotCalled(t, "UpdateSpot", mock.Anything, mock.Anything)
}

func TestProcessExitingVehicleTicketLookupFails(t *testing.T) {
	f := newServiceFixture(baseTime)

	f.tickets.On("TicketByVehicle", mock.Anything, "ABCDEF").Return(nil, errStoreDown).Once()

	_, err := f.service.ProcessExitingVehicle(context.Background(), &scriptedInput{vehicleID: "ABCDEF"})
	assert.ErrorIs(t, err, ErrTicketLookup)
	assert.Equal(t, KindCollaborator, KindOf(err))
}

func TestProcessExitingVehicleAlreadyDeparted(t *testing.T) {
	f := newServiceFixture(baseTime.Add(2 * time.Hour))
	ticket := parkedTicket(0)
	out := baseTime.Add(time.Hour)
	ticket.OutTime = &out

	f.tickets.On("TicketByVehicle", mock.Anything, "ABCDEF").Return(ticket, nil).Once()

	_, err := f.service.ProcessExitingVehicle(context.Background(), &scriptedInput{vehicleID: "ABCDEF"})
	assert.ErrorIs(t, err, ErrAlreadyDeparted)
	f.tickets.AssertNotCalled(t, "UpdateTicket", mock.Anything, mock.Anything)
	f.spots.AssertNotCalled(t, "UpdateSpot", mock.Anything, mock.Anything)
}

func TestProcessExitingVehicleClockBeforeEntry(t *testing.T) {
	f := newServiceFixture(baseTime.Add(-time.Minute))
	ticket := parkedTicket(0)

	f.tickets.On("TicketByVehicle", mock.Anything, "ABCDEF").Return(ticket, nil).Once()

	_, err := f.service.ProcessExitingVehicle(context.Background(), &scriptedInput{vehicleID: "ABCDEF"})
	assert.ErrorIs(t, err, ErrNegativeDuration)
	assert.Equal(t, KindPrecondition, KindOf(err))
	assert.Nil(t, ticket.OutTime)
	f.tickets.AssertNotCalled(t, "UpdateTicket", mock.Anything, mock.Anything)
}

func TestProcessExitingVehicleTicketUpdateFailsKeepsSpot(t *testing.T) {
	f := newServiceFixture(baseTime.Add(time.Hour))

	f.tickets.On("TicketByVehicle", mock.Anything, "ABCDEF").Return(parkedTicket(0), nil).Once()
	f.tickets.On("UpdateTicket", mock.Anything, mock.Anything).Return(errStoreDown).Once()

	_, err := f.service.ProcessExitingVehicle(context.Background(), &scriptedInput{vehicleID: "ABCDEF"})
	assert.ErrorIs(t, err, ErrTicketUpdate)
	assert.Equal(t, KindCollaborator, KindOf(err))
	f.spots.AssertNotCalled(t, "UpdateSpot", mock.Anything, mock.Anything)
}

func TestProcessExitingVehicleTicketVanishedOnUpdate(t *testing.T) {
	f := newServiceFixture(baseTime.Add(time.Hour))

	f.tickets.On("TicketByVehicle", mock.Anything, "ABCDEF").Return(parkedTicket(0), nil).Once()
	f.tickets.On("UpdateTicket", mock.Anything, mock.Anything).Return(fmt.Errorf("%w: ticket 7", ErrTicketNotFound)).Once()

	_, err := f.service.ProcessExitingVehicle(context.Background(), &scriptedInput{vehicleID: "ABCDEF"})
	assert.ErrorIs(t, err, ErrTicketUpdate)
	assert.Equal(t, KindCollaborator, KindOf(err))
	f.spots.AssertNotCalled(t, "UpdateSpot", mock.Anything, mock.Anything)
	f.assertExpectations(t)
}

func TestProcessExitingVehicleSpotReleaseFails(t *testing.T) {
	f := newServiceFixture(baseTime.Add(time.Hour))

	f.tickets.On("TicketByVehicle", mock.Anything, "ABCDEF").Return(parkedTicket(0), nil).Once()
	f.tickets.On("UpdateTicket", mock.Anything, mock.Anything).Return(nil).Once()
	f.spots.On("UpdateSpot", mock.Anything, free(1, Car)).Return(errStoreDown).Once()

	_, err := f.service.ProcessExitingVehicle(context.Background(), &scriptedInput{vehicleID: "ABCDEF"})
	assert.ErrorIs(t, err, ErrSpotUpdate)
	f.assertExpectations(t)
}

func TestNewServiceDefaultsToSystemClock(t *testing.T) {
	s := NewService(&mockSpotStore{}, &mockTicketStore{}, nil)

	before := time.Now()
	now := s.clock.Now()
	assert.False(t, now.Before(before))
}
