package store

import (
	"context"

	"salon/backend/internal/domain"
)

// ScheduleReader is the read side the availability checker and assigner need.
type ScheduleReader interface {
	// ListStaff returns staff members ordered by ascending id.
	ListStaff(ctx context.Context) ([]domain.StaffMember, error)
	GetStaff(ctx context.Context, staffID int64) (domain.StaffMember, error)
	ListExceptions(ctx context.Context, staffID int64, date domain.Date) ([]domain.AvailabilityException, error)
	// ListActiveBookings excludes cancelled bookings. Bookings without a
	// service occupy zero minutes.
	ListActiveBookings(ctx context.Context, staffID int64, date domain.Date) ([]domain.BookedInterval, error)
}

type ScheduleTx interface {
	ScheduleReader

	InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)
	GetBookingForUpdate(ctx context.Context, bookingID int64) (domain.Booking, error)
	UpdateBookingStatus(ctx context.Context, bookingID int64, status domain.BookingStatus) error
}

type BookingRepository interface {
	ScheduleReader

	GetService(ctx context.Context, serviceID int64) (domain.Service, error)
	// GetCustomer returns ErrNotFound unless customerID is a user with the
	// customer role.
	GetCustomer(ctx context.Context, customerID int64) (domain.Customer, error)
	GetBooking(ctx context.Context, bookingID int64) (domain.Booking, error)
	ListBookings(ctx context.Context, filter domain.BookingFilter) ([]domain.BookingView, error)

	// InStaffDayTransaction runs fn exclusively for one (staff, date) pair so
	// a check followed by an insert cannot interleave with another admission.
	InStaffDayTransaction(ctx context.Context, staffID int64, date domain.Date, fn func(ctx context.Context, tx ScheduleTx) error) error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx ScheduleTx) error) error
}
