package entities

import "errors"

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrDespatchNotFound = errors.New("despatch advice not found")
	ErrShipmentExists   = errors.New("shipment id already exists")

	// ErrIncompleteLine is returned when a despatch line request is
	// missing one of its seven required keys.
	ErrIncompleteLine = errors.New("insufficient information entered")

	// ErrInvalidQuantity covers every coercion failure in a despatch
	// line request. The message is part of the client contract and
	// must not change.
	ErrInvalidQuantity = errors.New("Please re-enter an amount for quantity.")
)
