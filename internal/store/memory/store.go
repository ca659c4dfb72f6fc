// Package memory is an in-process BookingRepository used by tests and the
// "memory" database driver.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"salon/backend/internal/domain"
	"salon/backend/internal/store"
	"salon/backend/internal/store/demo"
)

type Store struct {
	mu         sync.RWMutex
	staff      map[int64]domain.StaffMember
	customers  map[int64]string
	services   map[int64]domain.Service
	exceptions map[string][]domain.AvailabilityException // staff/date key
	bookings   map[int64]*domain.Booking
	byDay      map[string][]int64 // staff/date key -> booking ids
	nextID     int64

	dayLocks *store.KeyedMutex
	txLock   sync.Mutex
	now      func() time.Time
}

func New() *Store {
	return &Store{
		staff:      make(map[int64]domain.StaffMember),
		customers:  make(map[int64]string),
		services:   make(map[int64]domain.Service),
		exceptions: make(map[string][]domain.AvailabilityException),
		bookings:   make(map[int64]*domain.Booking),
		byDay:      make(map[string][]int64),
		dayLocks:   store.NewKeyedMutex(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) AddStaff(m domain.StaffMember) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.Role == "" {
		m.Role = domain.RoleEmployee
	}
	s.staff[m.ID] = m
}

func (s *Store) AddCustomer(id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers[id] = name
}

func (s *Store) AddService(svc domain.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[svc.ID] = svc
}

func (s *Store) AddException(e domain.AvailabilityException) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := store.StaffDayKey(e.StaffID, e.Date)
	s.exceptions[key] = append(s.exceptions[key], e)
}

// Seed loads a demo dataset. Bookings keep their ids when set.
func (s *Store) Seed(d demo.Dataset) {
	for _, m := range d.Staff {
		s.AddStaff(m)
	}
	for _, c := range d.Customers {
		s.AddCustomer(c.ID, c.Name)
	}
	for _, svc := range d.Services {
		s.AddService(svc)
	}
	for _, b := range d.Bookings {
		s.AddBooking(b)
	}
}

// AddBooking stores b as is, bypassing admission checks.
func (s *Store) AddBooking(b domain.Booking) domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(b)
}

func (s *Store) insertLocked(b domain.Booking) domain.Booking {
	if b.ID == 0 {
		s.nextID++
		b.ID = s.nextID
	} else if b.ID > s.nextID {
		s.nextID = b.ID
	}
	if b.Status == "" {
		b.Status = domain.BookingStatusPending
	}
	now := s.now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	cp := b
	s.bookings[b.ID] = &cp
	key := store.StaffDayKey(b.StaffID, b.Date)
	s.byDay[key] = append(s.byDay[key], b.ID)
	return b
}

func (s *Store) ListStaff(ctx context.Context) ([]domain.StaffMember, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.StaffMember, 0, len(s.staff))
	for _, m := range s.staff {
		if m.Role != domain.RoleEmployee {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetStaff(ctx context.Context, staffID int64) (domain.StaffMember, error) {
	if err := ctx.Err(); err != nil {
		return domain.StaffMember{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.staff[staffID]
	if !ok || m.Role != domain.RoleEmployee {
		return domain.StaffMember{}, store.ErrNotFound
	}
	return m, nil
}

func (s *Store) ListExceptions(ctx context.Context, staffID int64, date domain.Date) ([]domain.AvailabilityException, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.exceptions[store.StaffDayKey(staffID, date)]
	out := make([]domain.AvailabilityException, len(src))
	copy(out, src)
	return out, nil
}

func (s *Store) ListActiveBookings(ctx context.Context, staffID int64, date domain.Date) ([]domain.BookedInterval, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.BookedInterval
	for _, id := range s.byDay[store.StaffDayKey(staffID, date)] {
		b := s.bookings[id]
		if b.Status == domain.BookingStatusCancelled {
			continue
		}
		dur := 0
		if b.ServiceID != nil {
			dur = s.services[*b.ServiceID].DurationMinutes
		}
		out = append(out, domain.BookedInterval{BookingID: b.ID, Start: b.StartTime, DurationMinutes: dur})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

func (s *Store) GetService(ctx context.Context, serviceID int64) (domain.Service, error) {
	if err := ctx.Err(); err != nil {
		return domain.Service{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	svc, ok := s.services[serviceID]
	if !ok {
		return domain.Service{}, store.ErrNotFound
	}
	return svc, nil
}

func (s *Store) GetCustomer(ctx context.Context, customerID int64) (domain.Customer, error) {
	if err := ctx.Err(); err != nil {
		return domain.Customer{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	name, ok := s.customers[customerID]
	if !ok {
		return domain.Customer{}, store.ErrNotFound
	}
	return domain.Customer{ID: customerID, Name: name}, nil
}

func (s *Store) GetBooking(ctx context.Context, bookingID int64) (domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return domain.Booking{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[bookingID]
	if !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	return *b, nil
}

func (s *Store) ListBookings(ctx context.Context, filter domain.BookingFilter) ([]domain.BookingView, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.BookingView
	for _, b := range s.bookings {
		if filter.CustomerID != 0 && b.CustomerID != filter.CustomerID {
			continue
		}
		if filter.StaffID != 0 && b.StaffID != filter.StaffID {
			continue
		}
		v := domain.BookingView{
			Booking:      *b,
			CustomerName: s.customers[b.CustomerID],
			StaffName:    s.staff[b.StaffID].Name,
		}
		if b.ServiceID != nil {
			svc := s.services[*b.ServiceID]
			v.ServiceName = svc.Name
			v.DurationMinutes = svc.DurationMinutes
			v.Price = svc.Price
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) InStaffDayTransaction(ctx context.Context, staffID int64, date domain.Date, fn func(ctx context.Context, tx store.ScheduleTx) error) error {
	unlock := s.dayLocks.Lock(store.StaffDayKey(staffID, date))
	defer unlock()
	return s.run(ctx, fn)
}

func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context, tx store.ScheduleTx) error) error {
	s.txLock.Lock()
	defer s.txLock.Unlock()
	return s.run(ctx, fn)
}

// run buffers writes and applies them only when fn succeeds.
func (s *Store) run(ctx context.Context, fn func(ctx context.Context, tx store.ScheduleTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{Store: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range tx.inserts {
		s.insertLocked(b)
	}
	for id, st := range tx.updates {
		b, ok := s.bookings[id]
		if !ok {
			return fmt.Errorf("commit status update: %w", store.ErrNotFound)
		}
		b.Status = st
		b.UpdatedAt = s.now()
	}
	return nil
}

type memTx struct {
	*Store

	inserts []domain.Booking
	updates map[int64]domain.BookingStatus
}

func (t *memTx) ListActiveBookings(ctx context.Context, staffID int64, date domain.Date) ([]domain.BookedInterval, error) {
	out, err := t.Store.ListActiveBookings(ctx, staffID, date)
	if err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i, b := range t.inserts {
		if b.StaffID != staffID || b.Date != date || b.Status == domain.BookingStatusCancelled {
			continue
		}
		dur := 0
		if b.ServiceID != nil {
			dur = t.services[*b.ServiceID].DurationMinutes
		}
		out = append(out, domain.BookedInterval{BookingID: -int64(i + 1), Start: b.StartTime, DurationMinutes: dur})
	}
	return out, nil
}

// InsertBooking reserves the id up front so the caller can report it; the
// row itself becomes visible on commit.
func (t *memTx) InsertBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	if err := ctx.Err(); err != nil {
		return domain.Booking{}, err
	}
	t.mu.Lock()
	t.nextID++
	b.ID = t.nextID
	now := t.now()
	t.mu.Unlock()

	if b.Status == "" {
		b.Status = domain.BookingStatusPending
	}
	b.CreatedAt = now
	b.UpdatedAt = now
	t.inserts = append(t.inserts, b)
	return b, nil
}

func (t *memTx) GetBookingForUpdate(ctx context.Context, bookingID int64) (domain.Booking, error) {
	b, err := t.Store.GetBooking(ctx, bookingID)
	if err != nil {
		return domain.Booking{}, err
	}
	if st, ok := t.updates[bookingID]; ok {
		b.Status = st
	}
	return b, nil
}

func (t *memTx) UpdateBookingStatus(ctx context.Context, bookingID int64, status domain.BookingStatus) error {
	if _, err := t.Store.GetBooking(ctx, bookingID); err != nil {
		return err
	}
	if t.updates == nil {
		t.updates = make(map[int64]domain.BookingStatus)
	}
	t.updates[bookingID] = status
	return nil
}

var _ store.BookingRepository = (*Store)(nil)
