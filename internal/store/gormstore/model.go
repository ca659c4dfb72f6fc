package gormstore

import (
	"time"

	"gorm.io/datatypes"

	"salon/backend/internal/domain"
)

// users
type userRow struct {
	ID       int64                       `gorm:"primaryKey;autoIncrement"`
	Name     string                      `gorm:"type:varchar(255);not null"`
	Username string                      `gorm:"type:varchar(64);not null;uniqueIndex"`
	Role     string                      `gorm:"type:varchar(16);not null;index"`
	Schedule datatypes.JSONSlice[string] `gorm:"column:schedule"`
}

func (userRow) TableName() string { return "users" }

func (r userRow) toDomain() domain.StaffMember {
	return domain.StaffMember{
		ID:       r.ID,
		Name:     r.Name,
		Username: r.Username,
		Role:     r.Role,
		Schedule: []string(r.Schedule),
	}
}

// services
type serviceRow struct {
	ID       int64   `gorm:"primaryKey;autoIncrement"`
	Name     string  `gorm:"type:varchar(255);not null"`
	Duration int     `gorm:"not null"`
	Price    float64 `gorm:"not null"`
}

func (serviceRow) TableName() string { return "services" }

func (r serviceRow) toDomain() domain.Service {
	return domain.Service{ID: r.ID, Name: r.Name, DurationMinutes: r.Duration, Price: r.Price}
}

// bookings
type bookingRow struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	CustomerID int64     `gorm:"not null;index"`
	EmployeeID int64     `gorm:"not null;index:idx_bookings_employee_date"`
	ServiceID  *int64    `gorm:"index"`
	Date       string    `gorm:"type:varchar(10);not null;index:idx_bookings_employee_date"`
	Time       string    `gorm:"type:varchar(5);not null"`
	Status     string    `gorm:"type:varchar(16);not null"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

func (bookingRow) TableName() string { return "bookings" }

func newBookingRow(b domain.Booking) bookingRow {
	st := b.Status
	if st == "" {
		st = domain.BookingStatusPending
	}
	return bookingRow{
		ID:         b.ID,
		CustomerID: b.CustomerID,
		EmployeeID: b.StaffID,
		ServiceID:  b.ServiceID,
		Date:       b.Date.String(),
		Time:       b.StartTime.String(),
		Status:     string(st),
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

func (r bookingRow) toDomain() (domain.Booking, error) {
	start, err := domain.ParseClockTime(r.Time)
	if err != nil {
		return domain.Booking{}, err
	}
	return domain.Booking{
		ID:         r.ID,
		CustomerID: r.CustomerID,
		StaffID:    r.EmployeeID,
		ServiceID:  r.ServiceID,
		Date:       domain.Date(r.Date),
		StartTime:  start,
		Status:     domain.BookingStatus(r.Status),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}, nil
}

// availability_exceptions
type exceptionRow struct {
	ID         int64   `gorm:"primaryKey;autoIncrement"`
	EmployeeID int64   `gorm:"not null;index:idx_exceptions_employee_date"`
	Date       string  `gorm:"type:varchar(10);not null;index:idx_exceptions_employee_date"`
	Type       string  `gorm:"type:varchar(16);not null"`
	StartTime  *string `gorm:"type:varchar(5)"`
	EndTime    *string `gorm:"type:varchar(5)"`
}

func (exceptionRow) TableName() string { return "availability_exceptions" }

func (r exceptionRow) toDomain() (domain.AvailabilityException, error) {
	e := domain.AvailabilityException{
		ID:      r.ID,
		StaffID: r.EmployeeID,
		Date:    domain.Date(r.Date),
		Type:    domain.ExceptionType(r.Type),
	}
	var err error
	if e.StartTime, err = optionalClock(r.StartTime); err != nil {
		return domain.AvailabilityException{}, err
	}
	if e.EndTime, err = optionalClock(r.EndTime); err != nil {
		return domain.AvailabilityException{}, err
	}
	return e, nil
}

func optionalClock(s *string) (*domain.ClockTime, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	c, err := domain.ParseClockTime(*s)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func clockString(c *domain.ClockTime) *string {
	if c == nil {
		return nil
	}
	s := c.String()
	return &s
}
