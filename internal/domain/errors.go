package domain

import "errors"

var (
	// ErrNotFound is returned when a debt or debtor id is unknown.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for rejected input: non-positive payment
	// amounts, duplicate invoice numbers, unparsable phone numbers.
	ErrValidation = errors.New("validation failed")

	// ErrBlacklisted is returned when outreach is attempted towards a
	// blacklisted debtor.
	ErrBlacklisted = errors.New("debtor is blacklisted")
)
