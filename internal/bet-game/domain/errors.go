package domain

import "errors"

var (
	ErrUpstreamUnavailable = errors.New("price upstream unavailable")
	ErrUnknownCurrency     = errors.New("currency not supported")
	ErrNotFound            = errors.New("not found")
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrConflict            = errors.New("conflict")
)
