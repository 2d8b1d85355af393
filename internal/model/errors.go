package model

import "errors"

// Domain errors. Callers wrap these with fmt.Errorf("%w: ...") to add a
// human-readable message; KindOf recovers the stable kind.
var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidTransition    = errors.New("invalid transition")
	ErrRegistrationClosed   = errors.New("registration is closed")
	ErrAlreadyRegistered    = errors.New("already registered for this event")
	ErrCapacityInsufficient = errors.New("capacity insufficient")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrValidation           = errors.New("validation failed")
)

// Kind is the stable, programmatic name of an error class.
type Kind string

const (
	KindNotFound             Kind = "not_found"
	KindInvalidTransition    Kind = "invalid_transition"
	KindRegistrationClosed   Kind = "registration_closed"
	KindAlreadyRegistered    Kind = "already_registered"
	KindCapacityInsufficient Kind = "capacity_insufficient"
	KindUnauthorized         Kind = "unauthorized"
	KindValidation           Kind = "validation"
	KindInternal             Kind = "internal"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrNotFound, KindNotFound},
	{ErrInvalidTransition, KindInvalidTransition},
	{ErrRegistrationClosed, KindRegistrationClosed},
	{ErrAlreadyRegistered, KindAlreadyRegistered},
	{ErrCapacityInsufficient, KindCapacityInsufficient},
	{ErrUnauthorized, KindUnauthorized},
	{ErrValidation, KindValidation},
}

// KindOf classifies err. Errors outside the domain taxonomy are KindInternal.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
