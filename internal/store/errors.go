package store

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyExists is returned by idempotent inserts for a known key,
	// together with the stored record.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotFound means the referenced group, contact or entry is absent.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized means the caller administers no tracked group.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrBlacklisted rejects a contact insert for a blacklisted user.
	ErrBlacklisted = errors.New("blacklisted")
	// ErrInvalid marks a malformed request argument.
	ErrInvalid = errors.New("invalid argument")
)

// IOError is a failed read or write of a collection. No durable change
// happened for single-document operations that return it.
type IOError struct {
	Collection string
	Op         string
	Err        error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Outcome classifies the result of an operation for callers that report
// to end users.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeAlreadyExists
	OutcomeNotFound
	OutcomeUnauthorized
	OutcomeBlacklisted
	OutcomeInvalid
	OutcomeStoreFailure
)

var outcomeNames = [...]string{
	OutcomeSuccess:       "success",
	OutcomeAlreadyExists: "already_exists",
	OutcomeNotFound:      "not_found",
	OutcomeUnauthorized:  "unauthorized",
	OutcomeBlacklisted:   "blacklisted",
	OutcomeInvalid:       "invalid",
	OutcomeStoreFailure:  "store_failure",
}

func (o Outcome) String() string {
	if o < 0 || int(o) >= len(outcomeNames) {
		return "unknown"
	}
	return outcomeNames[o]
}

// OutcomeOf maps an operation error to its outcome. Unknown errors count as
// store failures.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrAlreadyExists):
		return OutcomeAlreadyExists
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, ErrUnauthorized):
		return OutcomeUnauthorized
	case errors.Is(err, ErrBlacklisted):
		return OutcomeBlacklisted
	case errors.Is(err, ErrInvalid):
		return OutcomeInvalid
	default:
		return OutcomeStoreFailure
	}
}
