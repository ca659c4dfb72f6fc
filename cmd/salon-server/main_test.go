package main

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"salon/backend/internal/config"
	"salon/backend/internal/domain"
	"salon/backend/internal/service/bookings"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenRepository_EmbeddedDriversStartBookable(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
	}{
		{name: "memory", cfg: config.Config{DatabaseDriver: config.DriverMemory}},
		{name: "sqlite", cfg: config.Config{DatabaseDriver: config.DriverSQLite, SQLitePath: ":memory:", SeedDemoData: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo, closeRepo, err := openRepository(ctx, discardLogger(), tt.cfg)
			if err != nil {
				t.Fatalf("openRepository error: %v", err)
			}
			t.Cleanup(func() { _ = closeRepo() })

			staff, err := repo.ListStaff(ctx)
			if err != nil {
				t.Fatalf("ListStaff error: %v", err)
			}
			if len(staff) != 4 {
				t.Fatalf("staff = %d, want 4", len(staff))
			}

			svc := bookings.NewService(repo, bookings.WithLogger(discardLogger()))
			date := domain.DateOf(time.Now().AddDate(0, 0, 1)).String()
			c, err := svc.CreateBooking(ctx, bookings.CreateInput{CustomerID: 7, ServiceID: 6, Date: date, StartTime: "12:00"})
			if err != nil {
				t.Fatalf("CreateBooking error: %v", err)
			}
			if c.Booking.StaffID != 2 || !c.AutoAssigned {
				t.Fatalf("booking = %+v, want auto-assigned to staff 2", c.Booking)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Fatalf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
