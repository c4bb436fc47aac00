package atc

import "errors"

var (
	ErrNilAircraft    = errors.New("nil aircraft")
	ErrNilStand       = errors.New("nil stand")
	ErrUnknownStand   = errors.New("stand does not belong to this airport")
	ErrStandOccupied  = errors.New("stand already occupied")
	ErrNoStands       = errors.New("airport has no stands")
	ErrInvalidAirport = errors.New("invalid airport")
	ErrUnknownAirport = errors.New("unknown airport")
	ErrDuplicateName  = errors.New("duplicate airport name")
)
