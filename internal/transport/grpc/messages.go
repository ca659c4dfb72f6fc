package grpc

import (
	"time"

	"salon/backend/internal/domain"
)

type Booking struct {
	ID         int64  `json:"id"`
	CustomerID int64  `json:"customer_id"`
	StaffID    int64  `json:"staff_id"`
	ServiceID  *int64 `json:"service_id,omitempty"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at,omitempty"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}

type BookingView struct {
	Booking
	CustomerName    string  `json:"customer_name"`
	StaffName       string  `json:"staff_name"`
	ServiceName     string  `json:"service_name"`
	DurationMinutes int     `json:"duration_minutes"`
	Price           float64 `json:"price"`
}

type CreateBookingRequest struct {
	CustomerID int64 `json:"customer_id"`
	// StaffID is omitted to let the server pick a staff member.
	StaffID   *int64 `json:"staff_id,omitempty"`
	ServiceID int64  `json:"service_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
}

type CreateBookingResponse struct {
	Booking      Booking `json:"booking"`
	StaffName    string  `json:"staff_name"`
	AutoAssigned bool    `json:"auto_assigned"`
	Message      string  `json:"message"`
}

type CheckAvailabilityRequest struct {
	StaffID   int64  `json:"staff_id"`
	ServiceID int64  `json:"service_id"`
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
}

type CheckAvailabilityResponse struct {
	Available            bool   `json:"available"`
	Reason               string `json:"reason,omitempty"`
	ConflictingBookingID int64  `json:"conflicting_booking_id,omitempty"`
}

type TransitionStatusRequest struct {
	BookingID int64  `json:"booking_id"`
	Status    string `json:"status"`
}

type TransitionStatusResponse struct {
	Booking Booking `json:"booking"`
}

type GetBookingRequest struct {
	BookingID int64 `json:"booking_id"`
}

type GetBookingResponse struct {
	Booking Booking `json:"booking"`
}

type ListBookingsRequest struct {
	CustomerID int64 `json:"customer_id,omitempty"`
	StaffID    int64 `json:"staff_id,omitempty"`
	Limit      int   `json:"limit,omitempty"`
}

type ListBookingsResponse struct {
	Bookings []BookingView `json:"bookings"`
}

func toWireBooking(b domain.Booking) Booking {
	out := Booking{
		ID:         b.ID,
		CustomerID: b.CustomerID,
		StaffID:    b.StaffID,
		ServiceID:  b.ServiceID,
		Date:       b.Date.String(),
		StartTime:  b.StartTime.String(),
		Status:     string(b.Status),
	}
	if !b.CreatedAt.IsZero() {
		out.CreatedAt = b.CreatedAt.UTC().Format(time.RFC3339)
	}
	if !b.UpdatedAt.IsZero() {
		out.UpdatedAt = b.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func toWireView(v domain.BookingView) BookingView {
	return BookingView{
		Booking:         toWireBooking(v.Booking),
		CustomerName:    v.CustomerName,
		StaffName:       v.StaffName,
		ServiceName:     v.ServiceName,
		DurationMinutes: v.DurationMinutes,
		Price:           v.Price,
	}
}
