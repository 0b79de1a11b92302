package sync

import "errors"

// Per-operation failure reasons. These abort only the one operation,
// never the whole round, and are reported in failed_operations.
var (
	// ErrTableNotAllowed indicates the target table is not in the sync allowlist
	ErrTableNotAllowed = errors.New("table is not synchronizable")

	// ErrOwnershipViolation indicates the payload carries another user's owner id
	ErrOwnershipViolation = errors.New("cannot modify data belonging to another user")

	// ErrMissingRecordID indicates the payload carries no entity id
	ErrMissingRecordID = errors.New("operation payload missing record id")

	// ErrInvalidPayload indicates the operation payload is not a JSON object
	ErrInvalidPayload = errors.New("operation payload is not a valid JSON object")

	// ErrUnknownOperation indicates an operation kind outside create/update/delete
	ErrUnknownOperation = errors.New("unknown operation kind")

	// ErrRecordNotFound indicates an update referenced a record that does not exist
	ErrRecordNotFound = errors.New("record not found")
)
