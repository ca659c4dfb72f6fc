package grpc

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"salon/backend/internal/domain"
	"salon/backend/internal/service/bookings"
	"salon/backend/internal/store/memory"
)

func startServer(t *testing.T) *BookingServiceClient {
	t.Helper()

	s := memory.New()
	s.AddStaff(domain.StaffMember{ID: 2, Name: "sarah", Username: "sarah"})
	s.AddStaff(domain.StaffMember{ID: 3, Name: "mona", Username: "mona"})
	s.AddCustomer(6, "amal")
	s.AddService(domain.Service{ID: 1, Name: "haircut", DurationMinutes: 60, Price: 150})
	s.AddService(domain.Service{ID: 2, Name: "manicure", DurationMinutes: 30, Price: 80})

	log := discardLogger()
	svc := bookings.NewService(s, bookings.WithLogger(log))

	lis := bufconn.Listen(1 << 20)
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(
		RequestIDInterceptor(),
		DefaultTimeoutInterceptor(5*time.Second),
		LoggingInterceptor(log),
	))
	RegisterBookingServiceServer(gs, NewBookingServer(svc, log))
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewBookingServiceClient(conn)
}

func TestEndToEnd_BookingLifecycle(t *testing.T) {
	client := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var header metadata.MD
	created, err := client.CreateBooking(ctx, &CreateBookingRequest{CustomerID: 6, ServiceID: 1, Date: "2024-01-01", StartTime: "10:00"}, grpc.Header(&header))
	if err != nil {
		t.Fatalf("CreateBooking error: %v", err)
	}
	if created.Booking.StaffID != 2 || !created.AutoAssigned || created.StaffName != "sarah" {
		t.Fatalf("created = %+v", created)
	}
	if len(header.Get("x-request-id")) != 1 {
		t.Fatalf("missing x-request-id header: %v", header)
	}

	sarah := int64(2)
	_, err = client.CreateBooking(ctx, &CreateBookingRequest{CustomerID: 6, StaffID: &sarah, ServiceID: 2, Date: "2024-01-01", StartTime: "10:30"})
	if status.Code(err) != codes.FailedPrecondition || ErrorReason(err) != "STAFF_UNAVAILABLE" {
		t.Fatalf("err = %v, want FailedPrecondition/STAFF_UNAVAILABLE", err)
	}

	avail, err := client.CheckAvailability(ctx, &CheckAvailabilityRequest{StaffID: 3, ServiceID: 2, Date: "2024-01-01", StartTime: "10:30"})
	if err != nil {
		t.Fatalf("CheckAvailability error: %v", err)
	}
	if !avail.Available {
		t.Fatalf("expected mona available, got %+v", avail)
	}

	moved, err := client.TransitionStatus(ctx, &TransitionStatusRequest{BookingID: created.Booking.ID, Status: "confirmed"})
	if err != nil {
		t.Fatalf("TransitionStatus error: %v", err)
	}
	if moved.Booking.Status != "confirmed" {
		t.Fatalf("status = %q, want confirmed", moved.Booking.Status)
	}

	_, err = client.TransitionStatus(ctx, &TransitionStatusRequest{BookingID: created.Booking.ID, Status: "pending"})
	if ErrorReason(err) != "INVALID_TRANSITION" {
		t.Fatalf("err = %v, want INVALID_TRANSITION", err)
	}

	got, err := client.GetBooking(ctx, &GetBookingRequest{BookingID: created.Booking.ID})
	if err != nil {
		t.Fatalf("GetBooking error: %v", err)
	}
	if got.Booking.Status != "confirmed" || got.Booking.StartTime != "10:00" {
		t.Fatalf("booking = %+v", got.Booking)
	}

	list, err := client.ListBookings(ctx, &ListBookingsRequest{CustomerID: 6})
	if err != nil {
		t.Fatalf("ListBookings error: %v", err)
	}
	if len(list.Bookings) != 1 || list.Bookings[0].CustomerName != "amal" || list.Bookings[0].ServiceName != "haircut" {
		t.Fatalf("bookings = %+v", list.Bookings)
	}

	_, err = client.GetBooking(ctx, &GetBookingRequest{BookingID: 999})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("code = %v, want NotFound", status.Code(err))
	}
	_, err = client.CreateBooking(ctx, &CreateBookingRequest{CustomerID: 99999, StaffID: &sarah, ServiceID: 2, Date: "2024-01-01", StartTime: "15:00"})
	if status.Code(err) != codes.NotFound || ErrorReason(err) != "CUSTOMER_NOT_FOUND" {
		t.Fatalf("err = %v, want NotFound/CUSTOMER_NOT_FOUND", err)
	}
	_, err = client.CreateBooking(ctx, &CreateBookingRequest{CustomerID: 6, ServiceID: 1, Date: "2024-13-01", StartTime: "10:00"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %v, want InvalidArgument", status.Code(err))
	}
}
