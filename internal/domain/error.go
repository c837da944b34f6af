package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrPersistence        = errors.New("persistence failure")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrUnsupportedJobType = errors.New("unsupported job type")
	ErrInvalidTransition  = errors.New("invalid job status transition")
	ErrDispatchBusy       = errors.New("another dispatcher holds the batch lock")
	ErrProvider           = errors.New("sentiment provider failure")
)
