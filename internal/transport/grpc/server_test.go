package grpc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"salon/backend/internal/availability"
	"salon/backend/internal/domain"
	"salon/backend/internal/service/bookings"
	"salon/backend/internal/store"
)

type fakeBookingService struct {
	createFn     func(ctx context.Context, in bookings.CreateInput) (bookings.Confirmation, error)
	checkFn      func(ctx context.Context, in bookings.AvailabilityInput) (availability.Result, error)
	transitionFn func(ctx context.Context, bookingID int64, status string) (domain.Booking, error)
	getFn        func(ctx context.Context, bookingID int64) (domain.Booking, error)
	listFn       func(ctx context.Context, filter domain.BookingFilter) ([]domain.BookingView, error)
}

func (f *fakeBookingService) CreateBooking(ctx context.Context, in bookings.CreateInput) (bookings.Confirmation, error) {
	if f.createFn == nil {
		panic("CreateBooking not configured")
	}
	return f.createFn(ctx, in)
}

func (f *fakeBookingService) CheckAvailability(ctx context.Context, in bookings.AvailabilityInput) (availability.Result, error) {
	if f.checkFn == nil {
		panic("CheckAvailability not configured")
	}
	return f.checkFn(ctx, in)
}

func (f *fakeBookingService) TransitionStatus(ctx context.Context, bookingID int64, status string) (domain.Booking, error) {
	if f.transitionFn == nil {
		panic("TransitionStatus not configured")
	}
	return f.transitionFn(ctx, bookingID, status)
}

func (f *fakeBookingService) GetBooking(ctx context.Context, bookingID int64) (domain.Booking, error) {
	if f.getFn == nil {
		panic("GetBooking not configured")
	}
	return f.getFn(ctx, bookingID)
}

func (f *fakeBookingService) ListBookings(ctx context.Context, filter domain.BookingFilter) ([]domain.BookingView, error) {
	if f.listFn == nil {
		panic("ListBookings not configured")
	}
	return f.listFn(ctx, filter)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCreateBooking_RejectsNilRequest(t *testing.T) {
	srv := NewBookingServer(&fakeBookingService{}, discardLogger())

	_, err := srv.CreateBooking(context.Background(), nil)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %v, want %v", status.Code(err), codes.InvalidArgument)
	}
}

func TestCreateBooking_PassesInputAndMapsResponse(t *testing.T) {
	var got bookings.CreateInput
	srv := NewBookingServer(&fakeBookingService{
		createFn: func(ctx context.Context, in bookings.CreateInput) (bookings.Confirmation, error) {
			got = in
			return bookings.Confirmation{
				Booking: domain.Booking{
					ID:         11,
					CustomerID: in.CustomerID,
					StaffID:    3,
					ServiceID:  &in.ServiceID,
					Date:       "2024-01-01",
					StartTime:  domain.MustClockTime("10:30"),
					Status:     domain.BookingStatusPending,
					CreatedAt:  time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
				},
				StaffName:    "mona",
				AutoAssigned: true,
				Message:      "ok",
			}, nil
		},
	}, discardLogger())

	resp, err := srv.CreateBooking(context.Background(), &CreateBookingRequest{CustomerID: 6, ServiceID: 2, Date: "2024-01-01", StartTime: "10:30"})
	if err != nil {
		t.Fatalf("CreateBooking error: %v", err)
	}
	if got.StaffID != nil || got.CustomerID != 6 || got.ServiceID != 2 {
		t.Fatalf("input = %+v", got)
	}
	if resp.Booking.ID != 11 || resp.Booking.StartTime != "10:30" || resp.Booking.Status != "pending" {
		t.Fatalf("booking = %+v", resp.Booking)
	}
	if resp.Booking.CreatedAt != "2024-01-01T08:00:00Z" || resp.Booking.UpdatedAt != "" {
		t.Fatalf("timestamps = %q/%q", resp.Booking.CreatedAt, resp.Booking.UpdatedAt)
	}
	if !resp.AutoAssigned || resp.StaffName != "mona" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestToStatus_MapsErrorKinds(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   codes.Code
		wantReason string
	}{
		{name: "validation", err: &bookings.ValidationError{}, wantCode: codes.InvalidArgument},
		{name: "service", err: fmt.Errorf("%w: id 9", bookings.ErrServiceNotFound), wantCode: codes.NotFound, wantReason: "SERVICE_NOT_FOUND"},
		{name: "staff", err: bookings.ErrStaffNotFound, wantCode: codes.NotFound, wantReason: "STAFF_NOT_FOUND"},
		{name: "customer", err: fmt.Errorf("%w: id 99999", bookings.ErrCustomerNotFound), wantCode: codes.NotFound, wantReason: "CUSTOMER_NOT_FOUND"},
		{name: "dangling reference", err: fmt.Errorf("insert booking: %w", store.ErrInvalidReference), wantCode: codes.FailedPrecondition, wantReason: "INVALID_REFERENCE"},
		{name: "booking", err: store.ErrNotFound, wantCode: codes.NotFound, wantReason: "BOOKING_NOT_FOUND"},
		{name: "unavailable", err: fmt.Errorf("%w: staff 2", bookings.ErrStaffUnavailable), wantCode: codes.FailedPrecondition, wantReason: "STAFF_UNAVAILABLE"},
		{name: "capacity", err: bookings.ErrNoCapacity, wantCode: codes.FailedPrecondition, wantReason: "NO_CAPACITY"},
		{name: "transition", err: fmt.Errorf("%w: completed is final", domain.ErrInvalidTransition), wantCode: codes.FailedPrecondition, wantReason: "INVALID_TRANSITION"},
		{name: "conflict", err: store.ErrConflict, wantCode: codes.Aborted, wantReason: "CONFLICT"},
		{name: "deadline", err: context.DeadlineExceeded, wantCode: codes.DeadlineExceeded},
		{name: "other", err: errors.New("db down"), wantCode: codes.Internal},
	}

	srv := NewBookingServer(&fakeBookingService{}, discardLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := srv.toStatus(srv.log, tt.err)
			if got := status.Code(err); got != tt.wantCode {
				t.Fatalf("code = %v, want %v", got, tt.wantCode)
			}
			if got := ErrorReason(err); got != tt.wantReason {
				t.Fatalf("reason = %q, want %q", got, tt.wantReason)
			}
		})
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	srv := NewBookingServer(&fakeBookingService{
		getFn: func(ctx context.Context, bookingID int64) (domain.Booking, error) {
			return domain.Booking{}, errors.New("pq: password authentication failed")
		},
	}, discardLogger())

	_, err := srv.GetBooking(context.Background(), &GetBookingRequest{BookingID: 1})
	st, _ := status.FromError(err)
	if st.Code() != codes.Internal || st.Message() != "internal error" {
		t.Fatalf("status = %v %q", st.Code(), st.Message())
	}
}

func TestListBookings_PassesFilter(t *testing.T) {
	var got domain.BookingFilter
	srv := NewBookingServer(&fakeBookingService{
		listFn: func(ctx context.Context, filter domain.BookingFilter) ([]domain.BookingView, error) {
			got = filter
			return []domain.BookingView{{Booking: domain.Booking{ID: 1, Date: "2024-01-01"}, ServiceName: "haircut"}}, nil
		},
	}, discardLogger())

	resp, err := srv.ListBookings(context.Background(), &ListBookingsRequest{StaffID: 2, Limit: 10})
	if err != nil {
		t.Fatalf("ListBookings error: %v", err)
	}
	if got.StaffID != 2 || got.Limit != 10 || got.CustomerID != 0 {
		t.Fatalf("filter = %+v", got)
	}
	if len(resp.Bookings) != 1 || resp.Bookings[0].ServiceName != "haircut" {
		t.Fatalf("bookings = %+v", resp.Bookings)
	}
}

func TestRequestIDInterceptor(t *testing.T) {
	icpt := RequestIDInterceptor()
	handler := func(ctx context.Context, req any) (any, error) {
		return RequestIDFromContext(ctx), nil
	}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-request-id", "  abc  "))
	got, err := icpt(ctx, nil, &grpc.UnaryServerInfo{FullMethod: "/x/y"}, handler)
	if err != nil {
		t.Fatalf("interceptor error: %v", err)
	}
	if got != "abc" {
		t.Fatalf("request id = %q, want %q", got, "abc")
	}

	got, err = icpt(context.Background(), nil, &grpc.UnaryServerInfo{FullMethod: "/x/y"}, handler)
	if err != nil {
		t.Fatalf("interceptor error: %v", err)
	}
	if id, _ := got.(string); len(id) != 36 {
		t.Fatalf("generated request id = %q, want uuid", id)
	}
}

func TestDefaultTimeoutInterceptor(t *testing.T) {
	icpt := DefaultTimeoutInterceptor(time.Second)
	handler := func(ctx context.Context, req any) (any, error) {
		dl, ok := ctx.Deadline()
		return dl, boolErr(ok)
	}

	if _, err := icpt(context.Background(), nil, &grpc.UnaryServerInfo{}, handler); err != nil {
		t.Fatalf("expected deadline to be set")
	}

	parent, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	want, _ := parent.Deadline()
	got, err := icpt(parent, nil, &grpc.UnaryServerInfo{}, handler)
	if err != nil {
		t.Fatalf("expected deadline to be kept")
	}
	if !got.(time.Time).Equal(want) {
		t.Fatalf("deadline = %v, want %v", got, want)
	}
}

func boolErr(ok bool) error {
	if ok {
		return nil
	}
	return errors.New("no deadline")
}
