package domain

import "errors"

var (
	// ErrVenueUnavailable marks a quote failure for a single venue (no route
	// or no liquidity). It is an expected, non-fatal outcome during a scan.
	ErrVenueUnavailable = errors.New("venue unavailable")

	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrRateLimited         = errors.New("rate limited")
	ErrSigningFailed       = errors.New("signing failed")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrLockHeld            = errors.New("lock already held")
)
