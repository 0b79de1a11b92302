package storage

import "errors"

// Common storage errors
var (
	// ErrRecordNotFound indicates that a synced record was not found
	ErrRecordNotFound = errors.New("record not found")

	// ErrRecordExists indicates that a record with this id already exists for the user
	ErrRecordExists = errors.New("record already exists")

	// ErrCheckpointNotFound indicates that no checkpoint exists for (user, device)
	ErrCheckpointNotFound = errors.New("checkpoint not found")

	// ErrUnknownTable indicates that the table is not in the sync allowlist
	ErrUnknownTable = errors.New("unknown table")
)
