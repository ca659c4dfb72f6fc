// Package events publishes booking lifecycle events for downstream consumers.
package events

import (
	"context"
	"time"

	"salon/backend/internal/domain"
)

const (
	TypeBookingCreated       = "booking.created.v1"
	TypeBookingStatusChanged = "booking.status_changed.v1"
)

type BookingEvent struct {
	Type           string
	Booking        domain.Booking
	PreviousStatus domain.BookingStatus
	AutoAssigned   bool
	OccurredAt     time.Time
}

// Publisher delivers events after the owning transaction has committed.
type Publisher interface {
	Publish(ctx context.Context, ev BookingEvent) error
}

type Nop struct{}

func (Nop) Publish(context.Context, BookingEvent) error { return nil }

// payload is the wire form of a BookingEvent.
type payload struct {
	EventID        string `json:"event_id"`
	EventType      string `json:"event_type"`
	OccurredAt     string `json:"occurred_at"`
	BookingID      int64  `json:"booking_id"`
	CustomerID     int64  `json:"customer_id"`
	StaffID        int64  `json:"staff_id"`
	ServiceID      *int64 `json:"service_id,omitempty"`
	Date           string `json:"date"`
	StartTime      string `json:"start_time"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status,omitempty"`
	AutoAssigned   bool   `json:"auto_assigned,omitempty"`
}

func newPayload(eventID string, ev BookingEvent) payload {
	occurred := ev.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}
	return payload{
		EventID:        eventID,
		EventType:      ev.Type,
		OccurredAt:     occurred.UTC().Format(time.RFC3339Nano),
		BookingID:      ev.Booking.ID,
		CustomerID:     ev.Booking.CustomerID,
		StaffID:        ev.Booking.StaffID,
		ServiceID:      ev.Booking.ServiceID,
		Date:           ev.Booking.Date.String(),
		StartTime:      ev.Booking.StartTime.String(),
		Status:         string(ev.Booking.Status),
		PreviousStatus: string(ev.PreviousStatus),
		AutoAssigned:   ev.AutoAssigned,
	}
}
