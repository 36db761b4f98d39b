package parking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
)

type EntryReceipt struct {
	Ticket          *Ticket
	SpotID          int
	Category        Category
	VehicleID       string
	InTime          time.Time
	DiscountPercent int

	// SpotPersistErr is set when the ticket was issued but the spot could
	// not be recorded as occupied. It wraps ErrSpotUpdate.
	SpotPersistErr error
}

type ExitReceipt struct {
	Ticket    *Ticket
	SpotID    int
	VehicleID string
	Price     decimal.Decimal
	OutTime   time.Time
	Duration  time.Duration
}

// Service runs the entry and exit lifecycle of a visit. It holds no state
// between calls; spot and ticket state lives in the stores.
type Service struct {
	spots          SpotStore
	tickets        TicketStore
	clock          Clock
	fares          *FareCalculator
	discounts      *DiscountEvaluator
	logger         zerolog.Logger
	releaseOnAbort bool
}

type Option func(*Service)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithReleaseOnAbort makes an entry that fails after its spot was claimed
// mark the spot available again. Without it the spot stays occupied.
func WithReleaseOnAbort(release bool) Option {
	return func(s *Service) {
		s.releaseOnAbort = release
	}
}

func NewService(spots SpotStore, tickets TicketStore, clock Clock, opts ...Option) *Service {
	if clock == nil {
		clock = SystemClock
	}
	s := &Service{
		spots:     spots,
		tickets:   tickets,
		clock:     clock,
		fares:     NewFareCalculator(),
		discounts: NewDiscountEvaluator(tickets),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// log tags the service logger with the active trace.
func (s *Service) log(ctx context.Context) zerolog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return s.logger
	}
	return s.logger.With().
		Str("traceId", sc.TraceID().String()).
		Str("spanId", sc.SpanID().String()).
		Logger()
}

// ProcessIncomingVehicle allocates a spot and opens a ticket.
//
// The spot is persisted as occupied before the registration number is read.
// A failed spot write is logged and reported on the receipt, and the entry
// carries on with the spot treated as occupied. Only ErrSpotTaken stops it.
// If a later step fails the spot stays occupied unless WithReleaseOnAbort
// was set; there is no other rollback.
func (s *Service) ProcessIncomingVehicle(ctx context.Context, in InputReader) (*EntryReceipt, error) {
	log := s.log(ctx)

	category, err := CategoryFromSelection(in.ReadSelection())
	if err != nil {
		log.Warn().Err(err).Msg("error parsing user input for type of vehicle")
		return nil, err
	}

	spotID, err := s.spots.NextAvailable(ctx, category)
	if err != nil {
		log.Error().Err(err).Str("category", category.String()).Msg("error fetching next available parking spot")
		return nil, fmt.Errorf("%w: %w", ErrSpotLookup, err)
	}
	if spotID <= 0 {
		log.Warn().Str("category", category.String()).Msg("parking spots might be full")
		return nil, fmt.Errorf("%w: no %s spot available", ErrNoSpotAvailable, category)
	}

	spot := Spot{ID: spotID, Category: category, Available: true}
	spot.Occupy()
	var persistErr error
	if err := s.spots.UpdateSpot(ctx, spot); err != nil {
		if errors.Is(err, ErrSpotTaken) {
			log.Warn().Int("spot_id", spot.ID).Msg("parking spot was taken by a concurrent entry")
			return nil, fmt.Errorf("%w: spot %d", ErrSpotTaken, spot.ID)
		}
		log.Error().Err(err).Int("spot_id", spot.ID).Msg("unable to mark parking spot as occupied, continuing entry")
		persistErr = fmt.Errorf("%w: %w", ErrSpotUpdate, err)
	}

	receipt, err := s.openTicket(ctx, in, spot)
	if err != nil {
		s.abortEntry(ctx, spot)
		return nil, err
	}
	receipt.SpotPersistErr = persistErr
	return receipt, nil
}

func (s *Service) openTicket(ctx context.Context, in InputReader, spot Spot) (*EntryReceipt, error) {
	log := s.log(ctx)

	vehicleID, err := in.ReadVehicleID()
	if err != nil {
		log.Warn().Err(err).Int("spot_id", spot.ID).Msg("unable to read vehicle registration number")
		if !errors.Is(err, ErrInvalidVehicleID) {
			err = fmt.Errorf("%w: %w", ErrInvalidVehicleID, err)
		}
		return nil, err
	}

	inTime := s.clock.Now()

	discount, err := s.discounts.Evaluate(ctx, vehicleID)
	if err != nil {
		log.Error().Err(err).Str("vehicle_id", vehicleID).Msg("unable to check ticket history, no discount applied")
		discount = 0
	}

	ticket := NewTicket(spot, vehicleID, inTime, discount)
	if err := s.tickets.SaveTicket(ctx, ticket); err != nil {
		log.Error().Err(err).Str("vehicle_id", vehicleID).Int("spot_id", spot.ID).Msg("unable to save ticket")
		return nil, fmt.Errorf("%w: %w", ErrTicketSave, err)
	}

	log.Info().
		Int("ticket_id", ticket.ID).
		Int("spot_id", spot.ID).
		Str("vehicle_id", vehicleID).
		Int("discount_percent", discount).
		Msg("vehicle entered")

	return &EntryReceipt{
		Ticket:          ticket,
		SpotID:          spot.ID,
		Category:        spot.Category,
		VehicleID:       vehicleID,
		InTime:          inTime,
		DiscountPercent: discount,
	}, nil
}

func (s *Service) abortEntry(ctx context.Context, spot Spot) {
	log := s.log(ctx)

	if !s.releaseOnAbort {
		log.Warn().Int("spot_id", spot.ID).Msg("entry aborted, spot left occupied")
		return
	}
	spot.Release()
	if err := s.spots.UpdateSpot(ctx, spot); err != nil {
		log.Error().Err(err).Int("spot_id", spot.ID).Msg("unable to release spot after aborted entry")
		return
	}
	log.Info().Int("spot_id", spot.ID).Msg("entry aborted, spot released")
}

// ProcessExitingVehicle closes the vehicle's ticket, prices it and frees
// the spot. The spot is only released once the priced ticket is stored.
func (s *Service) ProcessExitingVehicle(ctx context.Context, in InputReader) (*ExitReceipt, error) {
	log := s.log(ctx)

	vehicleID, err := in.ReadVehicleID()
	if err != nil {
		log.Warn().Err(err).Msg("unable to read vehicle registration number")
		if !errors.Is(err, ErrInvalidVehicleID) {
			err = fmt.Errorf("%w: %w", ErrInvalidVehicleID, err)
		}
		return nil, err
	}

	ticket, err := s.tickets.TicketByVehicle(ctx, vehicleID)
	switch {
	case errors.Is(err, ErrTicketNotFound) || (err == nil && ticket == nil):
		log.Warn().Str("vehicle_id", vehicleID).Msg("no ticket found for exiting vehicle")
		return nil, fmt.Errorf("%w: %s", ErrTicketNotFound, vehicleID)
	case err != nil:
		log.Error().Err(err).Str("vehicle_id", vehicleID).Msg("unable to fetch ticket")
		return nil, fmt.Errorf("%w: %w", ErrTicketLookup, err)
	}
	if ticket.State() == Departed {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyDeparted, vehicleID)
	}

	outTime := s.clock.Now()
	ticket.OutTime = &outTime

	price, err := s.fares.ForTicket(ticket)
	if err != nil {
		log.Error().Err(err).Int("ticket_id", ticket.ID).Msg("unable to compute fare")
		ticket.OutTime = nil
		return nil, err
	}
	ticket.Price = price

	if err := s.tickets.UpdateTicket(ctx, ticket); err != nil {
		log.Error().Err(err).Int("ticket_id", ticket.ID).Msg("unable to update ticket information")
		return nil, fmt.Errorf("%w: %w", ErrTicketUpdate, err)
	}

	spot := ticket.Spot
	spot.Release()
	if err := s.spots.UpdateSpot(ctx, spot); err != nil {
		log.Error().Err(err).Int("spot_id", spot.ID).Msg("ticket closed but spot could not be released")
		return nil, fmt.Errorf("%w: %w", ErrSpotUpdate, err)
	}
	ticket.Spot = spot

	log.Info().
		Int("ticket_id", ticket.ID).
		Int("spot_id", spot.ID).
		Str("vehicle_id", vehicleID).
		Str("price", price.StringFixed(2)).
		Msg("vehicle exited")

	return &ExitReceipt{
		Ticket:    ticket,
		SpotID:    spot.ID,
		VehicleID: vehicleID,
		Price:     price,
		OutTime:   outTime,
		Duration:  ticket.Duration(),
	}, nil
}
