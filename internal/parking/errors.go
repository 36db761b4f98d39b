package parking

import "errors"

// Validation errors: bad input from the driver or an unknown vehicle.
var (
	ErrInvalidCategory  = errors.New("invalid vehicle type")
	ErrInvalidVehicleID = errors.New("invalid vehicle registration number")
	ErrTicketNotFound   = errors.New("no ticket found for vehicle")
	ErrAlreadyDeparted  = errors.New("vehicle has already exited")
)

// Capacity errors.
var (
	ErrNoSpotAvailable = errors.New("parking lot is full")
	ErrSpotTaken       = errors.New("parking spot is already occupied")
)

// Precondition errors raised by the fare calculator. They mean the
// calculator was called out of order or with corrupted data.
var (
	ErrMissingExitTime  = errors.New("exit time is not set")
	ErrNegativeDuration = errors.New("exit time is before entry time")
	ErrUnknownCategory  = errors.New("unknown parking category")
	ErrInvalidDiscount  = errors.New("discount percentage out of range")
)

// Collaborator failures. Store errors are wrapped behind these.
var (
	ErrSpotLookup   = errors.New("unable to fetch next available spot")
	ErrSpotUpdate   = errors.New("unable to update parking spot")
	ErrTicketSave   = errors.New("unable to save ticket")
	ErrTicketUpdate = errors.New("unable to update ticket")
	ErrTicketLookup = errors.New("unable to fetch ticket")
)

type ErrorKind string

const (
	KindNone         ErrorKind = ""
	KindValidation   ErrorKind = "validation"
	KindCapacity     ErrorKind = "capacity"
	KindPrecondition ErrorKind = "precondition"
	KindCollaborator ErrorKind = "collaborator"
)

// KindOf classifies an error returned by the Service so callers can tell
// "lot full" apart from "bad input" or a storage outage. Collaborator
// sentinels are checked first: a store may wrap a domain sentinel (a
// missing row on update) underneath them.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrSpotLookup),
		errors.Is(err, ErrSpotUpdate),
		errors.Is(err, ErrTicketSave),
		errors.Is(err, ErrTicketUpdate),
		errors.Is(err, ErrTicketLookup):
		return KindCollaborator
	case errors.Is(err, ErrInvalidCategory),
		errors.Is(err, ErrInvalidVehicleID),
		errors.Is(err, ErrTicketNotFound),
		errors.Is(err, ErrAlreadyDeparted):
		return KindValidation
	case errors.Is(err, ErrNoSpotAvailable),
		errors.Is(err, ErrSpotTaken):
		return KindCapacity
	case errors.Is(err, ErrMissingExitTime),
		errors.Is(err, ErrNegativeDuration),
		errors.Is(err, ErrUnknownCategory),
		errors.Is(err, ErrInvalidDiscount):
		return KindPrecondition
	default:
		return KindCollaborator
	}
}
