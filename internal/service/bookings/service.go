package bookings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"salon/backend/internal/availability"
	"salon/backend/internal/domain"
	"salon/backend/internal/events"
	"salon/backend/internal/store"
)

const tracerName = "salon/backend/internal/service/bookings"

type Config struct {
	// EnforceManualConflictCheck rejects manually assigned bookings that
	// conflict. When false, conflicts are logged and the booking is admitted.
	EnforceManualConflictCheck bool
	// AssignAttempts bounds how often auto-assignment retries after losing
	// a race for the chosen staff member.
	AssignAttempts int
}

func DefaultConfig() Config {
	return Config{
		EnforceManualConflictCheck: true,
		AssignAttempts:             3,
	}
}

type Option func(*Service)

func WithConfig(cfg Config) Option {
	return func(s *Service) { s.cfg = cfg }
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

func WithAssigner(a availability.Assigner) Option {
	return func(s *Service) { s.assigner = a }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

type Service struct {
	repo     store.BookingRepository
	checker  availability.Checker
	assigner availability.Assigner
	cfg      Config
	log      *slog.Logger
	events   events.Publisher
	tracer   trace.Tracer
	now      func() time.Time
}

func NewService(repo store.BookingRepository, opts ...Option) *Service {
	checker := availability.NewChecker()
	s := &Service{
		repo:     repo,
		checker:  checker,
		assigner: availability.NewFirstFit(checker),
		cfg:      DefaultConfig(),
		log:      slog.Default(),
		events:   events.Nop{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.AssignAttempts < 1 {
		s.cfg.AssignAttempts = 1
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	s.log = s.log.With(slog.String("component", "service.bookings"))
	return s
}

type CreateInput struct {
	CustomerID int64
	// StaffID selects manual assignment; nil asks the assigner to pick.
	StaffID   *int64
	ServiceID int64
	Date      string
	StartTime string
}

type Confirmation struct {
	Booking      domain.Booking
	StaffName    string
	AutoAssigned bool
	Message      string
}

type AvailabilityInput struct {
	StaffID   int64
	ServiceID int64
	Date      string
	StartTime string
}

// errLostRace marks an assigner pick that was taken before its exclusive
// section was entered.
var errLostRace = errors.New("staff member taken concurrently")

type slot struct {
	date     domain.Date
	start    domain.ClockTime
	service  domain.Service
	interval domain.Interval
}

func (s *Service) resolveSlot(ctx context.Context, serviceID int64, date, start string) (slot, error) {
	if serviceID <= 0 {
		return slot{}, validationError("service_id is required")
	}
	d, err := domain.ParseDate(date)
	if err != nil {
		return slot{}, validationError("date must be YYYY-MM-DD")
	}
	st, err := domain.ParseClockTime(start)
	if err != nil {
		return slot{}, validationError("start_time must be HH:MM")
	}

	svc, err := s.repo.GetService(ctx, serviceID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return slot{}, fmt.Errorf("%w: id %d", ErrServiceNotFound, serviceID)
		}
		return slot{}, fmt.Errorf("get service %d: %w", serviceID, err)
	}
	if svc.DurationMinutes <= 0 {
		return slot{}, validationError(fmt.Sprintf("service %d has no duration", serviceID))
	}

	iv := domain.NewInterval(st, svc.DurationMinutes)
	if !iv.WithinDay() {
		return slot{}, validationError("booking must end by 24:00")
	}
	return slot{date: d, start: st, service: svc, interval: iv}, nil
}

func (s *Service) CreateBooking(ctx context.Context, in CreateInput) (c Confirmation, err error) {
	ctx, span := s.tracer.Start(ctx, "bookings.CreateBooking", trace.WithAttributes(
		attribute.Int64("booking.customer_id", in.CustomerID),
		attribute.Int64("booking.service_id", in.ServiceID),
		attribute.String("booking.date", in.Date),
		attribute.String("booking.start_time", in.StartTime),
	))
	defer func() { endSpan(span, err) }()

	if in.CustomerID <= 0 {
		return Confirmation{}, validationError("customer_id is required")
	}
	if in.StaffID != nil && *in.StaffID <= 0 {
		return Confirmation{}, validationError("staff_id must be positive")
	}

	sl, err := s.resolveSlot(ctx, in.ServiceID, in.Date, in.StartTime)
	if err != nil {
		return Confirmation{}, err
	}
	if _, err := s.repo.GetCustomer(ctx, in.CustomerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Confirmation{}, fmt.Errorf("%w: id %d", ErrCustomerNotFound, in.CustomerID)
		}
		return Confirmation{}, fmt.Errorf("get customer %d: %w", in.CustomerID, err)
	}

	var (
		booking domain.Booking
		staff   domain.StaffMember
		auto    = in.StaffID == nil
	)
	if auto {
		booking, staff, err = s.admitAuto(ctx, in.CustomerID, sl)
	} else {
		booking, staff, err = s.admitManual(ctx, in.CustomerID, *in.StaffID, sl)
	}
	if err != nil {
		return Confirmation{}, err
	}

	span.SetAttributes(
		attribute.Int64("booking.id", booking.ID),
		attribute.Int64("booking.staff_id", booking.StaffID),
		attribute.Bool("booking.auto_assigned", auto),
	)
	s.log.Info("booking created",
		slog.Int64("booking_id", booking.ID),
		slog.Int64("staff_id", booking.StaffID),
		slog.String("date", booking.Date.String()),
		slog.String("start_time", booking.StartTime.String()),
		slog.Bool("auto_assigned", auto),
	)
	s.publish(ctx, events.BookingEvent{Type: events.TypeBookingCreated, Booking: booking, AutoAssigned: auto})

	return Confirmation{
		Booking:      booking,
		StaffName:    staff.Name,
		AutoAssigned: auto,
		Message: fmt.Sprintf("Booked %s with %s on %s at %s",
			sl.service.Name, staff.Name, booking.Date, booking.StartTime),
	}, nil
}

func (s *Service) admitManual(ctx context.Context, customerID, staffID int64, sl slot) (domain.Booking, domain.StaffMember, error) {
	staff, err := s.repo.GetStaff(ctx, staffID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Booking{}, domain.StaffMember{}, fmt.Errorf("%w: id %d", ErrStaffNotFound, staffID)
		}
		return domain.Booking{}, domain.StaffMember{}, fmt.Errorf("get staff %d: %w", staffID, err)
	}

	var out domain.Booking
	err = s.repo.InStaffDayTransaction(ctx, staffID, sl.date, func(ctx context.Context, tx store.ScheduleTx) error {
		res, err := s.checker.Check(ctx, tx, s.query(staffID, sl))
		if err != nil {
			return err
		}
		if !res.Available {
			if s.cfg.EnforceManualConflictCheck {
				return unavailable(staffID, res)
			}
			s.log.Warn("admitting conflicting manual booking",
				slog.Int64("staff_id", staffID),
				slog.String("date", sl.date.String()),
				slog.String("start_time", sl.start.String()),
				slog.String("reason", string(res.Reason)),
				slog.Int64("conflicting_booking_id", res.ConflictingBookingID),
			)
		}
		out, err = tx.InsertBooking(ctx, s.newBooking(customerID, staffID, sl))
		return err
	})
	if err != nil {
		return domain.Booking{}, domain.StaffMember{}, err
	}
	return out, staff, nil
}

func (s *Service) admitAuto(ctx context.Context, customerID int64, sl slot) (domain.Booking, domain.StaffMember, error) {
	req := availability.Request{
		Date:            sl.date,
		Start:           sl.start,
		DurationMinutes: sl.service.DurationMinutes,
		Exclude:         map[int64]bool{},
	}

	for attempt := 1; attempt <= s.cfg.AssignAttempts; attempt++ {
		staff, err := s.assigner.Assign(ctx, s.repo, req)
		if err != nil {
			return domain.Booking{}, domain.StaffMember{}, err
		}

		var out domain.Booking
		err = s.repo.InStaffDayTransaction(ctx, staff.ID, sl.date, func(ctx context.Context, tx store.ScheduleTx) error {
			res, err := s.checker.Check(ctx, tx, s.query(staff.ID, sl))
			if err != nil {
				return err
			}
			if !res.Available {
				return errLostRace
			}
			out, err = tx.InsertBooking(ctx, s.newBooking(customerID, staff.ID, sl))
			return err
		})
		if errors.Is(err, errLostRace) {
			s.log.Info("assigned staff taken concurrently; reassigning",
				slog.Int64("staff_id", staff.ID),
				slog.Int("attempt", attempt),
			)
			req.Exclude[staff.ID] = true
			continue
		}
		if err != nil {
			return domain.Booking{}, domain.StaffMember{}, err
		}
		return out, staff, nil
	}
	return domain.Booking{}, domain.StaffMember{}, ErrNoCapacity
}

func (s *Service) query(staffID int64, sl slot) availability.Query {
	return availability.Query{
		StaffID:         staffID,
		Date:            sl.date,
		Start:           sl.start,
		DurationMinutes: sl.service.DurationMinutes,
	}
}

func (s *Service) newBooking(customerID, staffID int64, sl slot) domain.Booking {
	serviceID := sl.service.ID
	return domain.Booking{
		CustomerID: customerID,
		StaffID:    staffID,
		ServiceID:  &serviceID,
		Date:       sl.date,
		StartTime:  sl.start,
		Status:     domain.BookingStatusPending,
	}
}

func unavailable(staffID int64, res availability.Result) error {
	if res.Reason == availability.ReasonConflict {
		return fmt.Errorf("%w: staff %d conflicts with booking %d", ErrStaffUnavailable, staffID, res.ConflictingBookingID)
	}
	return fmt.Errorf("%w: staff %d %s", ErrStaffUnavailable, staffID, res.Reason)
}

// CheckAvailability reports whether staffID can take serviceID at the given
// slot. It never writes.
func (s *Service) CheckAvailability(ctx context.Context, in AvailabilityInput) (res availability.Result, err error) {
	ctx, span := s.tracer.Start(ctx, "bookings.CheckAvailability", trace.WithAttributes(
		attribute.Int64("booking.staff_id", in.StaffID),
		attribute.Int64("booking.service_id", in.ServiceID),
	))
	defer func() { endSpan(span, err) }()

	if in.StaffID <= 0 {
		return availability.Result{}, validationError("staff_id is required")
	}
	sl, err := s.resolveSlot(ctx, in.ServiceID, in.Date, in.StartTime)
	if err != nil {
		return availability.Result{}, err
	}
	if _, err := s.repo.GetStaff(ctx, in.StaffID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return availability.Result{}, fmt.Errorf("%w: id %d", ErrStaffNotFound, in.StaffID)
		}
		return availability.Result{}, fmt.Errorf("get staff %d: %w", in.StaffID, err)
	}
	return s.checker.Check(ctx, s.repo, s.query(in.StaffID, sl))
}

// TransitionStatus moves a booking to status. Re-applying the current
// non-terminal status succeeds without writing.
func (s *Service) TransitionStatus(ctx context.Context, bookingID int64, status string) (b domain.Booking, err error) {
	ctx, span := s.tracer.Start(ctx, "bookings.TransitionStatus", trace.WithAttributes(
		attribute.Int64("booking.id", bookingID),
		attribute.String("booking.status", status),
	))
	defer func() { endSpan(span, err) }()

	if bookingID <= 0 {
		return domain.Booking{}, validationError("booking_id is required")
	}
	to, err := domain.ParseBookingStatus(status)
	if err != nil {
		return domain.Booking{}, validationError(fmt.Sprintf("unknown status %q", status))
	}

	var (
		out  domain.Booking
		from domain.BookingStatus
	)
	err = s.repo.InTransaction(ctx, func(ctx context.Context, tx store.ScheduleTx) error {
		cur, err := tx.GetBookingForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := cur.Status.CheckTransition(to); err != nil {
			return err
		}
		from = cur.Status
		out = cur
		if cur.Status == to {
			return nil
		}
		if err := tx.UpdateBookingStatus(ctx, bookingID, to); err != nil {
			return err
		}
		out.Status = to
		out.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}

	if from != to {
		s.log.Info("booking status changed",
			slog.Int64("booking_id", bookingID),
			slog.String("from", string(from)),
			slog.String("to", string(to)),
		)
		s.publish(ctx, events.BookingEvent{Type: events.TypeBookingStatusChanged, Booking: out, PreviousStatus: from})
	}
	return out, nil
}

func (s *Service) GetBooking(ctx context.Context, bookingID int64) (domain.Booking, error) {
	if bookingID <= 0 {
		return domain.Booking{}, validationError("booking_id is required")
	}
	return s.repo.GetBooking(ctx, bookingID)
}

const maxListLimit = 500

// ListBookings returns bookings newest date first, earliest time first within
// a date. At most one of CustomerID and StaffID may be set.
func (s *Service) ListBookings(ctx context.Context, filter domain.BookingFilter) ([]domain.BookingView, error) {
	if filter.CustomerID < 0 || filter.StaffID < 0 {
		return nil, validationError("ids must be positive")
	}
	if filter.CustomerID != 0 && filter.StaffID != 0 {
		return nil, validationError("filter by customer_id or staff_id, not both")
	}
	if filter.Limit < 0 {
		return nil, validationError("limit must not be negative")
	}
	if filter.Limit == 0 || filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	return s.repo.ListBookings(ctx, filter)
}

// publish never fails the caller: the booking is already committed.
func (s *Service) publish(ctx context.Context, ev events.BookingEvent) {
	ev.OccurredAt = s.now().UTC()
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Error("publish booking event failed",
			slog.String("event_type", ev.Type),
			slog.Int64("booking_id", ev.Booking.ID),
			slog.Any("err", err),
		)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
