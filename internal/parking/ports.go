package parking

import (
	"context"
	"time"
)

// SpotStore persists spots. NextAvailable returns the lowest free spot id
// of the category, or NoSpotAvailable. UpdateSpot must refuse to occupy a
// spot that is already occupied (ErrSpotTaken) so that two concurrent
// entries never share a spot.
type SpotStore interface {
	NextAvailable(ctx context.Context, category Category) (int, error)
	UpdateSpot(ctx context.Context, spot Spot) error
}

// TicketStore persists tickets. TicketByVehicle returns the most recent
// ticket for the vehicle or ErrTicketNotFound.
type TicketStore interface {
	SaveTicket(ctx context.Context, ticket *Ticket) error
	TicketByVehicle(ctx context.Context, vehicleID string) (*Ticket, error)
	UpdateTicket(ctx context.Context, ticket *Ticket) error
}

// InputReader supplies the driver's answers. ReadSelection returns -1 when
// the input is not a number; ReadVehicleID fails on blank input.
type InputReader interface {
	ReadSelection() int
	ReadVehicleID() (string, error)
}

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)
