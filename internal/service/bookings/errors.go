package bookings

import (
	"errors"

	"salon/backend/internal/availability"
)

var (
	ErrServiceNotFound  = errors.New("service not found")
	ErrStaffNotFound    = errors.New("staff member not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrStaffUnavailable = errors.New("staff member unavailable")
	ErrNoCapacity       = availability.ErrNoCapacity
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}
