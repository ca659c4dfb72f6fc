package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"salon/backend/internal/domain"
)

type RetryConfig struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// WithReadRetry retries the idempotent reads of repo on transient failures.
// Writes and transactions are passed through untouched.
func WithReadRetry(repo BookingRepository, cfg RetryConfig, log *slog.Logger) BookingRepository {
	if cfg.MaxTries <= 1 {
		return repo
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 50 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &retryingRepository{
		BookingRepository: repo,
		cfg:               cfg,
		log:               log.With(slog.String("component", "store.retry")),
	}
}

type retryingRepository struct {
	BookingRepository

	cfg RetryConfig
	log *slog.Logger
}

func retryRead[T any](ctx context.Context, r *retryingRepository, op string, fn func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialInterval
	b.MaxInterval = r.cfg.MaxInterval

	return backoff.Retry(ctx, func() (T, error) {
		v, err := fn()
		if err != nil && !retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.cfg.MaxTries),
		backoff.WithNotify(func(err error, wait time.Duration) {
			r.log.Warn("store read failed; retrying", slog.String("op", op), slog.Any("err", err), slog.Duration("wait", wait))
		}),
	)
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrInvalidReference),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

func (r *retryingRepository) ListStaff(ctx context.Context) ([]domain.StaffMember, error) {
	return retryRead(ctx, r, "list_staff", func() ([]domain.StaffMember, error) {
		return r.BookingRepository.ListStaff(ctx)
	})
}

func (r *retryingRepository) GetStaff(ctx context.Context, staffID int64) (domain.StaffMember, error) {
	return retryRead(ctx, r, "get_staff", func() (domain.StaffMember, error) {
		return r.BookingRepository.GetStaff(ctx, staffID)
	})
}

func (r *retryingRepository) ListExceptions(ctx context.Context, staffID int64, date domain.Date) ([]domain.AvailabilityException, error) {
	return retryRead(ctx, r, "list_exceptions", func() ([]domain.AvailabilityException, error) {
		return r.BookingRepository.ListExceptions(ctx, staffID, date)
	})
}

func (r *retryingRepository) ListActiveBookings(ctx context.Context, staffID int64, date domain.Date) ([]domain.BookedInterval, error) {
	return retryRead(ctx, r, "list_active_bookings", func() ([]domain.BookedInterval, error) {
		return r.BookingRepository.ListActiveBookings(ctx, staffID, date)
	})
}

func (r *retryingRepository) GetService(ctx context.Context, serviceID int64) (domain.Service, error) {
	return retryRead(ctx, r, "get_service", func() (domain.Service, error) {
		return r.BookingRepository.GetService(ctx, serviceID)
	})
}

func (r *retryingRepository) GetCustomer(ctx context.Context, customerID int64) (domain.Customer, error) {
	return retryRead(ctx, r, "get_customer", func() (domain.Customer, error) {
		return r.BookingRepository.GetCustomer(ctx, customerID)
	})
}

func (r *retryingRepository) GetBooking(ctx context.Context, bookingID int64) (domain.Booking, error) {
	return retryRead(ctx, r, "get_booking", func() (domain.Booking, error) {
		return r.BookingRepository.GetBooking(ctx, bookingID)
	})
}

func (r *retryingRepository) ListBookings(ctx context.Context, filter domain.BookingFilter) ([]domain.BookingView, error) {
	return retryRead(ctx, r, "list_bookings", func() ([]domain.BookingView, error) {
		return r.BookingRepository.ListBookings(ctx, filter)
	})
}
