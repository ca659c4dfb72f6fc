package grpc

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"salon/backend/internal/availability"
	"salon/backend/internal/domain"
	"salon/backend/internal/service/bookings"
	"salon/backend/internal/store"
)

const errorDomain = "salon.v1"

type BookingServer struct {
	svc bookingService
	log *slog.Logger
}

type bookingService interface {
	CreateBooking(ctx context.Context, in bookings.CreateInput) (bookings.Confirmation, error)
	CheckAvailability(ctx context.Context, in bookings.AvailabilityInput) (availability.Result, error)
	TransitionStatus(ctx context.Context, bookingID int64, status string) (domain.Booking, error)
	GetBooking(ctx context.Context, bookingID int64) (domain.Booking, error)
	ListBookings(ctx context.Context, filter domain.BookingFilter) ([]domain.BookingView, error)
}

func NewBookingServer(svc bookingService, log *slog.Logger) *BookingServer {
	if log == nil {
		log = slog.Default()
	}
	return &BookingServer{
		svc: svc,
		log: log.With(slog.String("component", "grpc.bookings")),
	}
}

func (s *BookingServer) rpcLogger(ctx context.Context, rpc string) *slog.Logger {
	log := s.log.With(slog.String("rpc", rpc))
	if id := RequestIDFromContext(ctx); id != "" {
		log = log.With(slog.String("request_id", id))
	}
	return log
}

func (s *BookingServer) CreateBooking(ctx context.Context, req *CreateBookingRequest) (*CreateBookingResponse, error) {
	log := s.rpcLogger(ctx, "CreateBooking")

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	c, err := s.svc.CreateBooking(ctx, bookings.CreateInput{
		CustomerID: req.CustomerID,
		StaffID:    req.StaffID,
		ServiceID:  req.ServiceID,
		Date:       req.Date,
		StartTime:  req.StartTime,
	})
	if err != nil {
		return nil, s.toStatus(log, err, slog.Int64("customer_id", req.CustomerID), slog.String("date", req.Date), slog.String("start_time", req.StartTime))
	}

	return &CreateBookingResponse{
		Booking:      toWireBooking(c.Booking),
		StaffName:    c.StaffName,
		AutoAssigned: c.AutoAssigned,
		Message:      c.Message,
	}, nil
}

func (s *BookingServer) CheckAvailability(ctx context.Context, req *CheckAvailabilityRequest) (*CheckAvailabilityResponse, error) {
	log := s.rpcLogger(ctx, "CheckAvailability")

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	res, err := s.svc.CheckAvailability(ctx, bookings.AvailabilityInput{
		StaffID:   req.StaffID,
		ServiceID: req.ServiceID,
		Date:      req.Date,
		StartTime: req.StartTime,
	})
	if err != nil {
		return nil, s.toStatus(log, err, slog.Int64("staff_id", req.StaffID))
	}

	log.Debug("availability checked",
		slog.Int64("staff_id", req.StaffID),
		slog.Bool("available", res.Available),
		slog.String("reason", string(res.Reason)),
	)
	return &CheckAvailabilityResponse{
		Available:            res.Available,
		Reason:               string(res.Reason),
		ConflictingBookingID: res.ConflictingBookingID,
	}, nil
}

func (s *BookingServer) TransitionStatus(ctx context.Context, req *TransitionStatusRequest) (*TransitionStatusResponse, error) {
	log := s.rpcLogger(ctx, "TransitionStatus")

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	b, err := s.svc.TransitionStatus(ctx, req.BookingID, req.Status)
	if err != nil {
		return nil, s.toStatus(log, err, slog.Int64("booking_id", req.BookingID), slog.String("status", req.Status))
	}
	return &TransitionStatusResponse{Booking: toWireBooking(b)}, nil
}

func (s *BookingServer) GetBooking(ctx context.Context, req *GetBookingRequest) (*GetBookingResponse, error) {
	log := s.rpcLogger(ctx, "GetBooking")

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	b, err := s.svc.GetBooking(ctx, req.BookingID)
	if err != nil {
		return nil, s.toStatus(log, err, slog.Int64("booking_id", req.BookingID))
	}
	return &GetBookingResponse{Booking: toWireBooking(b)}, nil
}

func (s *BookingServer) ListBookings(ctx context.Context, req *ListBookingsRequest) (*ListBookingsResponse, error) {
	log := s.rpcLogger(ctx, "ListBookings")

	if req == nil {
		log.Warn("invalid request", slog.String("reason", "nil_request"))
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	views, err := s.svc.ListBookings(ctx, domain.BookingFilter{
		CustomerID: req.CustomerID,
		StaffID:    req.StaffID,
		Limit:      req.Limit,
	})
	if err != nil {
		return nil, s.toStatus(log, err)
	}

	out := make([]BookingView, 0, len(views))
	for _, v := range views {
		out = append(out, toWireView(v))
	}
	log.Debug("bookings listed", slog.Int("count", len(out)))
	return &ListBookingsResponse{Bookings: out}, nil
}

// toStatus maps service errors onto gRPC codes. Failed preconditions carry an
// ErrorInfo reason so clients can tell them apart without parsing messages.
func (s *BookingServer) toStatus(log *slog.Logger, err error, attrs ...any) error {
	args := append([]any{slog.Any("err", err)}, attrs...)

	var vErr *bookings.ValidationError
	switch {
	case errors.As(err, &vErr):
		log.Warn("invalid request", args...)
		return status.Error(codes.InvalidArgument, vErr.Error())
	case errors.Is(err, bookings.ErrServiceNotFound):
		log.Info("service not found", args...)
		return withReason(codes.NotFound, "Service not found.", "SERVICE_NOT_FOUND")
	case errors.Is(err, bookings.ErrCustomerNotFound):
		log.Info("customer not found", args...)
		return withReason(codes.NotFound, "Customer not found.", "CUSTOMER_NOT_FOUND")
	case errors.Is(err, bookings.ErrStaffNotFound):
		log.Info("staff not found", args...)
		return withReason(codes.NotFound, "Staff member not found.", "STAFF_NOT_FOUND")
	case errors.Is(err, store.ErrNotFound):
		log.Info("booking not found", args...)
		return withReason(codes.NotFound, "Booking not found.", "BOOKING_NOT_FOUND")
	case errors.Is(err, bookings.ErrStaffUnavailable):
		log.Info("staff unavailable", args...)
		return withReason(codes.FailedPrecondition, "That staff member is not available at this time. Pick a different slot.", "STAFF_UNAVAILABLE")
	case errors.Is(err, bookings.ErrNoCapacity):
		log.Info("no capacity", args...)
		return withReason(codes.FailedPrecondition, "No staff member is available at this time. Try another time.", "NO_CAPACITY")
	case errors.Is(err, domain.ErrInvalidTransition):
		log.Info("invalid status transition", args...)
		return withReason(codes.FailedPrecondition, err.Error(), "INVALID_TRANSITION")
	case errors.Is(err, store.ErrInvalidReference):
		log.Warn("write referenced a missing row", args...)
		return withReason(codes.FailedPrecondition, "The booking references a record that no longer exists.", "INVALID_REFERENCE")
	case errors.Is(err, store.ErrConflict):
		log.Info("write conflict", args...)
		return withReason(codes.Aborted, "The booking changed concurrently. Try again.", "CONFLICT")
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("request timed out", args...)
		return status.Error(codes.DeadlineExceeded, "request timed out")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	}

	log.Error("request failed", args...)
	return status.Error(codes.Internal, "internal error")
}

func withReason(code codes.Code, msg, reason string) error {
	st := status.New(code, msg)
	detailed, err := st.WithDetails(&errdetails.ErrorInfo{
		Reason: reason,
		Domain: errorDomain,
	})
	if err != nil {
		return st.Err()
	}
	return detailed.Err()
}

// ErrorReason returns the ErrorInfo reason attached to err, if any.
func ErrorReason(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == errorDomain {
			return info.GetReason()
		}
	}
	return ""
}

var _ BookingServiceServer = (*BookingServer)(nil)
