// Package availability decides whether a staff member can take a booking
// and picks a staff member when the caller does not name one.
package availability

import (
	"context"
	"errors"
	"fmt"

	"salon/backend/internal/domain"
	"salon/backend/internal/store"
)

type Reason string

const (
	ReasonNone            Reason = ""
	ReasonDayOff          Reason = "day_off"
	ReasonOutsideShortDay Reason = "outside_short_day"
	ReasonConflict        Reason = "conflict"
)

var ErrInvalidQuery = errors.New("invalid availability query")

type Query struct {
	StaffID         int64
	Date            domain.Date
	Start           domain.ClockTime
	DurationMinutes int
}

func (q Query) Interval() domain.Interval {
	return domain.NewInterval(q.Start, q.DurationMinutes)
}

func (q Query) Validate() error {
	if q.DurationMinutes <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidQuery)
	}
	if !q.Start.Valid() {
		return fmt.Errorf("%w: start out of range", ErrInvalidQuery)
	}
	if !q.Interval().WithinDay() {
		return fmt.Errorf("%w: interval must end by 24:00", ErrInvalidQuery)
	}
	return nil
}

type Result struct {
	Available bool
	Reason    Reason
	// ConflictingBookingID is set when Reason is ReasonConflict.
	ConflictingBookingID int64
}

// Checker is side-effect free; calling Check repeatedly without intervening
// writes yields the same result.
type Checker struct {
	BufferMinutes int
}

func NewChecker() Checker {
	return Checker{BufferMinutes: domain.BufferMinutes}
}

func (c Checker) Check(ctx context.Context, r store.ScheduleReader, q Query) (Result, error) {
	if err := q.Validate(); err != nil {
		return Result{}, err
	}
	candidate := q.Interval()

	exceptions, err := r.ListExceptions(ctx, q.StaffID, q.Date)
	if err != nil {
		return Result{}, fmt.Errorf("list exceptions: %w", err)
	}
	for _, ex := range exceptions {
		if ex.Type == domain.ExceptionDayOff {
			return Result{Reason: ReasonDayOff}, nil
		}
	}
	for _, ex := range exceptions {
		if w, ok := ex.Window(); ok && !w.Contains(candidate) {
			return Result{Reason: ReasonOutsideShortDay}, nil
		}
	}

	booked, err := r.ListActiveBookings(ctx, q.StaffID, q.Date)
	if err != nil {
		return Result{}, fmt.Errorf("list bookings: %w", err)
	}
	for _, b := range booked {
		if domain.Conflicts(candidate, b.Interval(), c.BufferMinutes) {
			return Result{Reason: ReasonConflict, ConflictingBookingID: b.BookingID}, nil
		}
	}

	return Result{Available: true}, nil
}
