package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"salon/backend/internal/domain"
	"salon/backend/internal/store"
)

type BookingRepo struct {
	queries
	db *bun.DB
}

func NewBookingRepo(db *bun.DB) *BookingRepo {
	return &BookingRepo{queries: queries{db: db}, db: db}
}

// queries holds the reads shared by the repository and its transactions.
type queries struct {
	db bun.IDB
}

type scheduleTx struct {
	queries
	tx bun.Tx
}

func (r *BookingRepo) InStaffDayTransaction(ctx context.Context, staffID int64, date domain.Date, fn func(ctx context.Context, tx store.ScheduleTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockStaffDay(ctx, tx, staffID, date); err != nil {
			return err
		}
		return fn(ctx, scheduleTx{queries: queries{db: tx}, tx: tx})
	})
}

func (r *BookingRepo) InTransaction(ctx context.Context, fn func(ctx context.Context, tx store.ScheduleTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, scheduleTx{queries: queries{db: tx}, tx: tx})
	})
}

func lockStaffDay(ctx context.Context, tx bun.Tx, staffID int64, date domain.Date) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", store.StaffDayKey(staffID, date)).Exec(ctx)
	return err
}

func (q queries) ListStaff(ctx context.Context) ([]domain.StaffMember, error) {
	var rows []domain.StaffMember
	err := q.db.NewSelect().
		Model(&rows).
		Where("u.role = ?", domain.RoleEmployee).
		OrderExpr("u.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (q queries) GetStaff(ctx context.Context, staffID int64) (domain.StaffMember, error) {
	var m domain.StaffMember
	err := q.db.NewSelect().
		Model(&m).
		Where("u.id = ?", staffID).
		Where("u.role = ?", domain.RoleEmployee).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.StaffMember{}, notFound(err)
	}
	return m, nil
}

func (q queries) ListExceptions(ctx context.Context, staffID int64, date domain.Date) ([]domain.AvailabilityException, error) {
	var rows []domain.AvailabilityException
	err := q.db.NewSelect().
		Model(&rows).
		Where("employee_id = ?", staffID).
		Where("date = ?", date).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type bookedRow struct {
	ID       int64            `bun:"id"`
	Time     domain.ClockTime `bun:"time"`
	Duration int              `bun:"duration"`
}

func (q queries) ListActiveBookings(ctx context.Context, staffID int64, date domain.Date) ([]domain.BookedInterval, error) {
	var rows []bookedRow
	err := q.db.NewSelect().
		TableExpr("bookings AS b").
		ColumnExpr("b.id, b.time").
		ColumnExpr("COALESCE(s.duration, 0) AS duration").
		Join("LEFT JOIN services AS s ON s.id = b.service_id").
		Where("b.employee_id = ?", staffID).
		Where("b.date = ?", date).
		Where("b.status <> ?", domain.BookingStatusCancelled).
		OrderExpr("b.time ASC, b.id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	out := make([]domain.BookedInterval, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.BookedInterval{BookingID: r.ID, Start: r.Time, DurationMinutes: r.Duration})
	}
	return out, nil
}

func (q queries) GetService(ctx context.Context, serviceID int64) (domain.Service, error) {
	var s domain.Service
	err := q.db.NewSelect().
		Model(&s).
		Where("id = ?", serviceID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Service{}, notFound(err)
	}
	return s, nil
}

func (q queries) GetCustomer(ctx context.Context, customerID int64) (domain.Customer, error) {
	var c domain.Customer
	err := q.db.NewSelect().
		Model(&c).
		Where("u.id = ?", customerID).
		Where("u.role = ?", domain.RoleCustomer).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Customer{}, notFound(err)
	}
	return c, nil
}

func (q queries) GetBooking(ctx context.Context, bookingID int64) (domain.Booking, error) {
	var b domain.Booking
	err := q.db.NewSelect().
		Model(&b).
		Where("id = ?", bookingID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Booking{}, notFound(err)
	}
	return b, nil
}

type bookingViewRow struct {
	ID           int64                `bun:"id"`
	CustomerID   int64                `bun:"customer_id"`
	StaffID      int64                `bun:"employee_id"`
	ServiceID    *int64               `bun:"service_id"`
	Date         domain.Date          `bun:"date"`
	Time         domain.ClockTime     `bun:"time"`
	Status       domain.BookingStatus `bun:"status"`
	CreatedAt    time.Time            `bun:"created_at"`
	UpdatedAt    time.Time            `bun:"updated_at"`
	CustomerName string               `bun:"customer_name"`
	StaffName    string               `bun:"staff_name"`
	ServiceName  string               `bun:"service_name"`
	Duration     int                  `bun:"duration"`
	Price        float64              `bun:"price"`
}

func (r bookingViewRow) view() domain.BookingView {
	return domain.BookingView{
		Booking: domain.Booking{
			ID:         r.ID,
			CustomerID: r.CustomerID,
			StaffID:    r.StaffID,
			ServiceID:  r.ServiceID,
			Date:       r.Date,
			StartTime:  r.Time,
			Status:     r.Status,
			CreatedAt:  r.CreatedAt,
			UpdatedAt:  r.UpdatedAt,
		},
		CustomerName:    r.CustomerName,
		StaffName:       r.StaffName,
		ServiceName:     r.ServiceName,
		DurationMinutes: r.Duration,
		Price:           r.Price,
	}
}

func (q queries) ListBookings(ctx context.Context, filter domain.BookingFilter) ([]domain.BookingView, error) {
	var rows []bookingViewRow
	sel := q.db.NewSelect().
		TableExpr("bookings AS b").
		ColumnExpr("b.id, b.customer_id, b.employee_id, b.service_id, b.date, b.time, b.status, b.created_at, b.updated_at").
		ColumnExpr("COALESCE(c.name, '') AS customer_name").
		ColumnExpr("COALESCE(e.name, '') AS staff_name").
		ColumnExpr("COALESCE(s.name, '') AS service_name").
		ColumnExpr("COALESCE(s.duration, 0) AS duration").
		ColumnExpr("COALESCE(s.price, 0) AS price").
		Join("LEFT JOIN users AS c ON c.id = b.customer_id").
		Join("LEFT JOIN users AS e ON e.id = b.employee_id").
		Join("LEFT JOIN services AS s ON s.id = b.service_id")
	if filter.CustomerID != 0 {
		sel = sel.Where("b.customer_id = ?", filter.CustomerID)
	}
	if filter.StaffID != 0 {
		sel = sel.Where("b.employee_id = ?", filter.StaffID)
	}
	sel = sel.OrderExpr("b.date DESC, b.time ASC, b.id ASC")
	if filter.Limit > 0 {
		sel = sel.Limit(filter.Limit)
	}
	if err := sel.Scan(ctx, &rows); err != nil {
		return nil, err
	}

	out := make([]domain.BookingView, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.view())
	}
	return out, nil
}

func (t scheduleTx) InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	m := domain.Booking{
		CustomerID: b.CustomerID,
		StaffID:    b.StaffID,
		ServiceID:  b.ServiceID,
		Date:       b.Date,
		StartTime:  b.StartTime,
		Status:     b.Status,
	}
	if _, err := t.tx.NewInsert().Model(&m).Returning("id, created_at, updated_at").Exec(ctx); err != nil {
		return domain.Booking{}, mapWriteError(err)
	}
	return m, nil
}

func (t scheduleTx) GetBookingForUpdate(ctx context.Context, bookingID int64) (domain.Booking, error) {
	var b domain.Booking
	err := t.tx.NewSelect().
		Model(&b).
		Where("id = ?", bookingID).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		return domain.Booking{}, notFound(err)
	}
	return b, nil
}

func (t scheduleTx) UpdateBookingStatus(ctx context.Context, bookingID int64, status domain.BookingStatus) error {
	res, err := t.tx.NewUpdate().
		Table("bookings").
		Set("status = ?", status).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", bookingID).
		Exec(ctx)
	if err != nil {
		return mapWriteError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23P01":
			return fmt.Errorf("%w: %s", store.ErrConflict, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", store.ErrInvalidReference, pgErr.ConstraintName)
		}
	}
	return err
}

var _ store.BookingRepository = (*BookingRepo)(nil)
