package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownStatus     = errors.New("unknown booking status")
)

func ParseBookingStatus(s string) (BookingStatus, error) {
	switch st := BookingStatus(s); st {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

func (s BookingStatus) Terminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

// CheckTransition enforces pending -> confirmed -> completed and
// pending|confirmed -> cancelled. Re-applying the current non-terminal status
// is allowed and changes nothing.
func (s BookingStatus) CheckTransition(to BookingStatus) error {
	if _, err := ParseBookingStatus(string(to)); err != nil {
		return err
	}
	if s.Terminal() {
		return fmt.Errorf("%w: %s is final", ErrInvalidTransition, s)
	}
	if s == to {
		return nil
	}
	switch {
	case s == BookingStatusPending && to == BookingStatusConfirmed,
		s == BookingStatusConfirmed && to == BookingStatusCompleted,
		to == BookingStatusCancelled:
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, to)
}

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID         int64         `bun:"id,pk,autoincrement"`
	CustomerID int64         `bun:"customer_id,notnull"`
	StaffID    int64         `bun:"employee_id,notnull"`
	ServiceID  *int64        `bun:"service_id"`
	Date       Date          `bun:"date,notnull"`
	StartTime  ClockTime     `bun:"time,notnull,type:varchar(5)"`
	Status     BookingStatus `bun:"status,notnull"`
	CreatedAt  time.Time     `bun:"created_at,notnull"`
	UpdatedAt  time.Time     `bun:"updated_at,notnull"`
}

func (b *Booking) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if b.Status == "" {
			b.Status = BookingStatusPending
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		b.UpdatedAt = now
	}
	return nil
}

// BookingView is a booking joined with display names, as listed to callers.
type BookingView struct {
	Booking
	CustomerName    string
	StaffName       string
	ServiceName     string
	DurationMinutes int
	Price           float64
}

type BookingFilter struct {
	CustomerID int64
	StaffID    int64
	Limit      int
}
