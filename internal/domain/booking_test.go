package domain

import (
	"errors"
	"testing"
)

func TestBookingStatus_CheckTransition(t *testing.T) {
	tests := []struct {
		from    BookingStatus
		to      BookingStatus
		wantErr error
	}{
		{from: BookingStatusPending, to: BookingStatusConfirmed},
		{from: BookingStatusConfirmed, to: BookingStatusCompleted},
		{from: BookingStatusPending, to: BookingStatusCancelled},
		{from: BookingStatusConfirmed, to: BookingStatusCancelled},
		{from: BookingStatusPending, to: BookingStatusPending},
		{from: BookingStatusConfirmed, to: BookingStatusConfirmed},
		{from: BookingStatusPending, to: BookingStatusCompleted, wantErr: ErrInvalidTransition},
		{from: BookingStatusConfirmed, to: BookingStatusPending, wantErr: ErrInvalidTransition},
		{from: BookingStatusCompleted, to: BookingStatusCancelled, wantErr: ErrInvalidTransition},
		{from: BookingStatusCompleted, to: BookingStatusCompleted, wantErr: ErrInvalidTransition},
		{from: BookingStatusCancelled, to: BookingStatusPending, wantErr: ErrInvalidTransition},
		{from: BookingStatusCancelled, to: BookingStatusCancelled, wantErr: ErrInvalidTransition},
		{from: BookingStatusPending, to: "archived", wantErr: ErrUnknownStatus},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := tt.from.CheckTransition(tt.to)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("CheckTransition error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAvailabilityException_Window(t *testing.T) {
	start := MustClockTime("09:00")
	end := MustClockTime("13:00")

	short := AvailabilityException{Type: ExceptionShortDay, StartTime: &start, EndTime: &end}
	w, ok := short.Window()
	if !ok {
		t.Fatalf("expected short_day window")
	}
	if w.Start != start || w.End != end {
		t.Fatalf("window = [%s, %s), want [09:00, 13:00)", w.Start, w.End)
	}

	if _, ok := (AvailabilityException{Type: ExceptionDayOff}).Window(); ok {
		t.Fatalf("day_off has no window")
	}
	if _, ok := (AvailabilityException{Type: ExceptionShortDay, StartTime: &start}).Window(); ok {
		t.Fatalf("short_day without end has no window")
	}
}
