package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"salon/backend/internal/domain"
	"salon/backend/internal/store"
)

type Repository struct {
	queries
	db       *gorm.DB
	dayLocks *store.KeyedMutex
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		queries:  queries{db: db},
		db:       db,
		dayLocks: store.NewKeyedMutex(),
	}
}

type queries struct {
	db *gorm.DB
}

type scheduleTx struct {
	queries
}

func isPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == DialectPostgres
}

// InStaffDayTransaction serializes admissions for one (staff, date) within
// this process; on postgres it also takes a transaction-scoped advisory lock
// so separate processes serialize too.
func (r *Repository) InStaffDayTransaction(ctx context.Context, staffID int64, date domain.Date, fn func(ctx context.Context, tx store.ScheduleTx) error) error {
	key := store.StaffDayKey(staffID, date)
	unlock := r.dayLocks.Lock(key)
	defer unlock()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if isPostgres(tx) {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error; err != nil {
				return err
			}
		}
		return fn(ctx, scheduleTx{queries: queries{db: tx}})
	})
}

func (r *Repository) InTransaction(ctx context.Context, fn func(ctx context.Context, tx store.ScheduleTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, scheduleTx{queries: queries{db: tx}})
	})
}

func (q queries) ListStaff(ctx context.Context) ([]domain.StaffMember, error) {
	var rows []userRow
	err := q.db.WithContext(ctx).
		Where("role = ?", domain.RoleEmployee).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.StaffMember, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (q queries) GetStaff(ctx context.Context, staffID int64) (domain.StaffMember, error) {
	var row userRow
	err := q.db.WithContext(ctx).
		Where("id = ? AND role = ?", staffID, domain.RoleEmployee).
		First(&row).Error
	if err != nil {
		return domain.StaffMember{}, notFound(err)
	}
	return row.toDomain(), nil
}

func (q queries) ListExceptions(ctx context.Context, staffID int64, date domain.Date) ([]domain.AvailabilityException, error) {
	var rows []exceptionRow
	err := q.db.WithContext(ctx).
		Where("employee_id = ? AND date = ?", staffID, date.String()).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.AvailabilityException, 0, len(rows))
	for _, r := range rows {
		e, err := r.toDomain()
		if err != nil {
			return nil, fmt.Errorf("exception %d: %w", r.ID, err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (q queries) ListActiveBookings(ctx context.Context, staffID int64, date domain.Date) ([]domain.BookedInterval, error) {
	var rows []struct {
		ID       int64
		Time     string
		Duration int
	}
	err := q.db.WithContext(ctx).
		Table("bookings AS b").
		Select("b.id, b.time, COALESCE(s.duration, 0) AS duration").
		Joins("LEFT JOIN services AS s ON s.id = b.service_id").
		Where("b.employee_id = ? AND b.date = ? AND b.status <> ?", staffID, date.String(), string(domain.BookingStatusCancelled)).
		Order("b.time ASC, b.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.BookedInterval, 0, len(rows))
	for _, r := range rows {
		start, err := domain.ParseClockTime(r.Time)
		if err != nil {
			return nil, fmt.Errorf("booking %d: %w", r.ID, err)
		}
		out = append(out, domain.BookedInterval{BookingID: r.ID, Start: start, DurationMinutes: r.Duration})
	}
	return out, nil
}

func (q queries) GetService(ctx context.Context, serviceID int64) (domain.Service, error) {
	var row serviceRow
	if err := q.db.WithContext(ctx).First(&row, "id = ?", serviceID).Error; err != nil {
		return domain.Service{}, notFound(err)
	}
	return row.toDomain(), nil
}

func (q queries) GetCustomer(ctx context.Context, customerID int64) (domain.Customer, error) {
	var row userRow
	err := q.db.WithContext(ctx).
		Where("id = ? AND role = ?", customerID, domain.RoleCustomer).
		First(&row).Error
	if err != nil {
		return domain.Customer{}, notFound(err)
	}
	return domain.Customer{ID: row.ID, Name: row.Name}, nil
}

func (q queries) GetBooking(ctx context.Context, bookingID int64) (domain.Booking, error) {
	var row bookingRow
	if err := q.db.WithContext(ctx).First(&row, "id = ?", bookingID).Error; err != nil {
		return domain.Booking{}, notFound(err)
	}
	return row.toDomain()
}

// bookingViewRow lists every column explicitly: gorm does not fill fields
// promoted through an unexported embedded struct when scanning.
type bookingViewRow struct {
	ID           int64
	CustomerID   int64
	EmployeeID   int64
	ServiceID    *int64
	Date         string
	Time         string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CustomerName string
	StaffName    string
	ServiceName  string
	Duration     int
	Price        float64
}

func (r bookingViewRow) view() (domain.BookingView, error) {
	b, err := bookingRow{
		ID:         r.ID,
		CustomerID: r.CustomerID,
		EmployeeID: r.EmployeeID,
		ServiceID:  r.ServiceID,
		Date:       r.Date,
		Time:       r.Time,
		Status:     r.Status,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}.toDomain()
	if err != nil {
		return domain.BookingView{}, fmt.Errorf("booking %d: %w", r.ID, err)
	}
	return domain.BookingView{
		Booking:         b,
		CustomerName:    r.CustomerName,
		StaffName:       r.StaffName,
		ServiceName:     r.ServiceName,
		DurationMinutes: r.Duration,
		Price:           r.Price,
	}, nil
}

func (q queries) ListBookings(ctx context.Context, filter domain.BookingFilter) ([]domain.BookingView, error) {
	sel := q.db.WithContext(ctx).
		Table("bookings AS b").
		Select(`b.id, b.customer_id, b.employee_id, b.service_id, b.date, b.time, b.status, b.created_at, b.updated_at,
			COALESCE(c.name, '') AS customer_name,
			COALESCE(e.name, '') AS staff_name,
			COALESCE(s.name, '') AS service_name,
			COALESCE(s.duration, 0) AS duration,
			COALESCE(s.price, 0) AS price`).
		Joins("LEFT JOIN users AS c ON c.id = b.customer_id").
		Joins("LEFT JOIN users AS e ON e.id = b.employee_id").
		Joins("LEFT JOIN services AS s ON s.id = b.service_id")
	if filter.CustomerID != 0 {
		sel = sel.Where("b.customer_id = ?", filter.CustomerID)
	}
	if filter.StaffID != 0 {
		sel = sel.Where("b.employee_id = ?", filter.StaffID)
	}
	sel = sel.Order("b.date DESC, b.time ASC, b.id ASC")
	if filter.Limit > 0 {
		sel = sel.Limit(filter.Limit)
	}

	var rows []bookingViewRow
	if err := sel.Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]domain.BookingView, 0, len(rows))
	for _, r := range rows {
		v, err := r.view()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (t scheduleTx) InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	row := newBookingRow(b)
	row.ID = 0
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.Booking{}, mapWriteError(err)
	}
	return row.toDomain()
}

func (t scheduleTx) GetBookingForUpdate(ctx context.Context, bookingID int64) (domain.Booking, error) {
	q := t.db.WithContext(ctx)
	if isPostgres(q) {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row bookingRow
	if err := q.First(&row, "id = ?", bookingID).Error; err != nil {
		return domain.Booking{}, notFound(err)
	}
	return row.toDomain()
}

func (t scheduleTx) UpdateBookingStatus(ctx context.Context, bookingID int64, status domain.BookingStatus) error {
	res := t.db.WithContext(ctx).
		Model(&bookingRow{}).
		Where("id = ?", bookingID).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return mapWriteError(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

func mapWriteError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", store.ErrConflict, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", store.ErrInvalidReference, err)
	}
	return err
}

var _ store.BookingRepository = (*Repository)(nil)

// AddException records a day_off or short_day for a staff member.
func (r *Repository) AddException(ctx context.Context, e domain.AvailabilityException) (domain.AvailabilityException, error) {
	row := exceptionRow{
		EmployeeID: e.StaffID,
		Date:       e.Date.String(),
		Type:       string(e.Type),
		StartTime:  clockString(e.StartTime),
		EndTime:    clockString(e.EndTime),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.AvailabilityException{}, mapWriteError(err)
	}
	e.ID = row.ID
	return e, nil
}
