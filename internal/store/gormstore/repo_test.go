package gormstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/gorm"

	"salon/backend/internal/domain"
	"salon/backend/internal/store"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := Open(DialectSQLite, ":memory:", PoolConfig{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = Close(db) })
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := SeedDemo(context.Background(), db, time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return NewRepository(db)
}

func TestSeedDemo_Idempotent(t *testing.T) {
	repo := newTestRepo(t)
	seeded, err := SeedDemo(context.Background(), repo.db, time.Now())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if seeded {
		t.Fatalf("expected second seed to be a no-op")
	}
}

func TestRepository_ListStaffOrderedEmployeesOnly(t *testing.T) {
	repo := newTestRepo(t)
	if isPostgres(repo.db) {
		t.Fatalf("isPostgres = true for sqlite")
	}

	staff, err := repo.ListStaff(context.Background())
	if err != nil {
		t.Fatalf("ListStaff error: %v", err)
	}
	if len(staff) != 4 {
		t.Fatalf("staff = %d, want 4", len(staff))
	}
	for i, want := range []int64{2, 3, 4, 5} {
		if staff[i].ID != want {
			t.Fatalf("staff[%d].ID = %d, want %d", i, staff[i].ID, want)
		}
	}
	if len(staff[0].Schedule) != 6 || staff[0].Schedule[0] != "09:00" {
		t.Fatalf("schedule = %v", staff[0].Schedule)
	}

	if _, err := repo.GetStaff(context.Background(), 6); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("GetStaff(customer) err = %v, want %v", err, store.ErrNotFound)
	}
}

func TestRepository_ServiceAndBookingLookups(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	svc, err := repo.GetService(ctx, 4)
	if err != nil {
		t.Fatalf("GetService error: %v", err)
	}
	if svc.DurationMinutes != 120 {
		t.Fatalf("duration = %d, want 120", svc.DurationMinutes)
	}
	if _, err := repo.GetService(ctx, 42); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, store.ErrNotFound)
	}

	active, err := repo.ListActiveBookings(ctx, 2, "2024-01-01")
	if err != nil {
		t.Fatalf("ListActiveBookings error: %v", err)
	}
	if len(active) != 1 || active[0].Start.String() != "10:00" || active[0].DurationMinutes != 60 {
		t.Fatalf("active = %+v", active)
	}
}

func TestRepository_InsertAndTransition(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	var inserted domain.Booking
	svcID := int64(6)
	err := repo.InStaffDayTransaction(ctx, 4, "2024-01-02", func(ctx context.Context, tx store.ScheduleTx) error {
		b, err := tx.InsertBooking(ctx, domain.Booking{
			CustomerID: 8,
			StaffID:    4,
			ServiceID:  &svcID,
			Date:       "2024-01-02",
			StartTime:  domain.MustClockTime("12:15"),
		})
		inserted = b
		return err
	})
	if err != nil {
		t.Fatalf("InStaffDayTransaction error: %v", err)
	}
	if inserted.ID == 0 || inserted.Status != domain.BookingStatusPending {
		t.Fatalf("inserted = %+v", inserted)
	}

	got, err := repo.GetBooking(ctx, inserted.ID)
	if err != nil {
		t.Fatalf("GetBooking error: %v", err)
	}
	if got.StartTime.String() != "12:15" || got.Date != "2024-01-02" || got.StaffID != 4 {
		t.Fatalf("round trip = %+v", got)
	}

	err = repo.InTransaction(ctx, func(ctx context.Context, tx store.ScheduleTx) error {
		return tx.UpdateBookingStatus(ctx, inserted.ID, domain.BookingStatusCancelled)
	})
	if err != nil {
		t.Fatalf("UpdateBookingStatus error: %v", err)
	}
	active, err := repo.ListActiveBookings(ctx, 4, "2024-01-02")
	if err != nil {
		t.Fatalf("ListActiveBookings error: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("active after cancel = %d, want 0", len(active))
	}

	err = repo.InTransaction(ctx, func(ctx context.Context, tx store.ScheduleTx) error {
		return tx.UpdateBookingStatus(ctx, 999, domain.BookingStatusCancelled)
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want %v", err, store.ErrNotFound)
	}
}

func TestRepository_RollbackOnError(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	boom := errors.New("boom")

	svcID := int64(1)
	err := repo.InStaffDayTransaction(ctx, 2, "2024-01-03", func(ctx context.Context, tx store.ScheduleTx) error {
		if _, err := tx.InsertBooking(ctx, domain.Booking{CustomerID: 6, StaffID: 2, ServiceID: &svcID, Date: "2024-01-03", StartTime: domain.MustClockTime("09:00")}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	active, err := repo.ListActiveBookings(ctx, 2, "2024-01-03")
	if err != nil {
		t.Fatalf("ListActiveBookings error: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("active = %d, want 0 after rollback", len(active))
	}
}

func TestRepository_ListBookingsWithNames(t *testing.T) {
	repo := newTestRepo(t)

	views, err := repo.ListBookings(context.Background(), domain.BookingFilter{CustomerID: 6})
	if err != nil {
		t.Fatalf("ListBookings error: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("views = %d, want 2", len(views))
	}
	if views[0].StartTime.String() != "10:00" || views[1].StartTime.String() != "14:00" {
		t.Fatalf("order = %s, %s", views[0].StartTime, views[1].StartTime)
	}
	if views[0].CustomerName != "Amal Mohammed" || views[0].StaffName != "Sarah (hair styling)" || views[0].ServiceName != "Haircut" {
		t.Fatalf("names = %+v", views[0])
	}
	if views[0].Status != domain.BookingStatusConfirmed {
		t.Fatalf("status = %q, want confirmed", views[0].Status)
	}
}

func TestRepository_ListBookingsCarriesBookingColumns(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	var created domain.Booking
	err := repo.InTransaction(ctx, func(ctx context.Context, tx store.ScheduleTx) error {
		var err error
		created, err = tx.InsertBooking(ctx, domain.Booking{
			CustomerID: 8,
			StaffID:    4,
			Date:       "2024-01-02",
			StartTime:  domain.MustClockTime("08:30"),
			Status:     domain.BookingStatusPending,
		})
		return err
	})
	if err != nil {
		t.Fatalf("InsertBooking error: %v", err)
	}

	views, err := repo.ListBookings(ctx, domain.BookingFilter{StaffID: 4})
	if err != nil {
		t.Fatalf("ListBookings error: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("views = %d, want 2", len(views))
	}
	got := views[0]
	if got.ID != created.ID || got.CustomerID != 8 || got.StaffID != 4 {
		t.Fatalf("booking = %+v, want id %d customer 8 staff 4", got.Booking, created.ID)
	}
	if got.Date != "2024-01-02" || got.StartTime.String() != "08:30" || got.Status != domain.BookingStatusPending {
		t.Fatalf("slot = %s %s %s", got.Date, got.StartTime, got.Status)
	}
	if got.ServiceID != nil || got.ServiceName != "" || got.DurationMinutes != 0 {
		t.Fatalf("serviceless booking = %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("created_at not scanned")
	}
	if got.CustomerName != "Huda Saleh" || got.StaffName != "Noor (nails)" {
		t.Fatalf("names = %q/%q", got.CustomerName, got.StaffName)
	}
}

func TestRepository_GetCustomerRequiresCustomerRole(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	c, err := repo.GetCustomer(ctx, 7)
	if err != nil {
		t.Fatalf("GetCustomer error: %v", err)
	}
	if c.Name != "Maha Abdullah" {
		t.Fatalf("name = %q, want Maha Abdullah", c.Name)
	}
	for _, id := range []int64{1, 2, 99999} {
		if _, err := repo.GetCustomer(ctx, id); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("GetCustomer(%d) err = %v, want ErrNotFound", id, err)
		}
	}
}

func TestMapWriteError_ForeignKeyIsInvalidReference(t *testing.T) {
	err := mapWriteError(fmt.Errorf("create: %w", gorm.ErrForeignKeyViolated))
	if !errors.Is(err, store.ErrInvalidReference) {
		t.Fatalf("err = %v, want %v", err, store.ErrInvalidReference)
	}
	if errors.Is(err, store.ErrNotFound) {
		t.Fatalf("foreign key violation must not read as not found")
	}
}

func TestRepository_ExceptionWindow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	start, end := domain.MustClockTime("09:00"), domain.MustClockTime("13:00")
	if _, err := repo.AddException(ctx, domain.AvailabilityException{StaffID: 3, Date: "2024-01-01", Type: domain.ExceptionShortDay, StartTime: &start, EndTime: &end}); err != nil {
		t.Fatalf("AddException error: %v", err)
	}

	exs, err := repo.ListExceptions(ctx, 3, "2024-01-01")
	if err != nil {
		t.Fatalf("ListExceptions error: %v", err)
	}
	if len(exs) != 1 {
		t.Fatalf("exceptions = %d, want 1", len(exs))
	}
	w, ok := exs[0].Window()
	if !ok || w.Start != start || w.End != end {
		t.Fatalf("window = %+v, %v", w, ok)
	}
}
