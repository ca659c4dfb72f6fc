package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"salon/backend/internal/domain"
	"salon/backend/internal/store"
)

func TestMapWriteError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "unique", err: &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}, want: store.ErrConflict},
		{name: "exclusion", err: fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23P01"}), want: store.ErrConflict},
		{name: "foreign key", err: &pgconn.PgError{Code: "23503", ConstraintName: "bookings_service_id_fkey"}, want: store.ErrInvalidReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapWriteError(tt.err); !errors.Is(got, tt.want) {
				t.Fatalf("mapWriteError = %v, want %v", got, tt.want)
			}
		})
	}

	other := errors.New("connection reset")
	if got := mapWriteError(other); got != other {
		t.Fatalf("mapWriteError = %v, want passthrough", got)
	}
}

func TestNotFound(t *testing.T) {
	if got := notFound(fmt.Errorf("scan: %w", sql.ErrNoRows)); got != store.ErrNotFound {
		t.Fatalf("notFound = %v, want %v", got, store.ErrNotFound)
	}
	other := errors.New("boom")
	if got := notFound(other); got != other {
		t.Fatalf("notFound = %v, want passthrough", got)
	}
}

func TestBookingViewRow_View(t *testing.T) {
	svcID := int64(3)
	r := bookingViewRow{
		ID:           9,
		CustomerID:   6,
		StaffID:      2,
		ServiceID:    &svcID,
		Date:         "2024-01-01",
		Time:         domain.MustClockTime("10:30"),
		Status:       domain.BookingStatusConfirmed,
		CustomerName: "amal",
		StaffName:    "sarah",
		ServiceName:  "manicure",
		Duration:     30,
		Price:        80,
	}
	v := r.view()
	if v.ID != 9 || v.StaffID != 2 || v.StartTime.String() != "10:30" || *v.ServiceID != 3 {
		t.Fatalf("view booking = %+v", v.Booking)
	}
	if v.CustomerName != "amal" || v.StaffName != "sarah" || v.ServiceName != "manicure" || v.DurationMinutes != 30 || v.Price != 80 {
		t.Fatalf("view names = %+v", v)
	}
}
