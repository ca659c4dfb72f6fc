// Package demo describes the small salon the embedded drivers start with.
package demo

import (
	"time"

	"salon/backend/internal/domain"
)

const RoleAdmin = "admin"

type Dataset struct {
	// Staff includes the admin account; only members with the employee
	// role take bookings.
	Staff     []domain.StaffMember
	Customers []domain.Customer
	Services  []domain.Service
	Bookings  []domain.Booking
}

// Salon returns one admin, four staff members with preferred slots, three
// customers, six services and four bookings dated today.
func Salon(today time.Time) Dataset {
	date := domain.DateOf(today)
	booking := func(customer, staff, service int64, at string, st domain.BookingStatus) domain.Booking {
		svc := service
		return domain.Booking{
			CustomerID: customer,
			StaffID:    staff,
			ServiceID:  &svc,
			Date:       date,
			StartTime:  domain.MustClockTime(at),
			Status:     st,
		}
	}

	return Dataset{
		Staff: []domain.StaffMember{
			{ID: 1, Name: "Ali", Username: "admin", Role: RoleAdmin},
			{ID: 2, Name: "Sarah (hair styling)", Username: "sarah", Role: domain.RoleEmployee,
				Schedule: []string{"09:00", "10:00", "11:00", "13:00", "14:00", "15:00"}},
			{ID: 3, Name: "Mona (makeup)", Username: "mona", Role: domain.RoleEmployee,
				Schedule: []string{"10:00", "11:00", "12:00", "14:00", "15:00", "16:00"}},
			{ID: 4, Name: "Noor (nails)", Username: "noor", Role: domain.RoleEmployee,
				Schedule: []string{"09:00", "10:00", "11:00", "12:00", "13:00"}},
			{ID: 5, Name: "Layla (skin care)", Username: "layla", Role: domain.RoleEmployee,
				Schedule: []string{"14:00", "15:00", "16:00", "17:00", "18:00"}},
		},
		Customers: []domain.Customer{
			{ID: 6, Name: "Amal Mohammed", Username: "amal"},
			{ID: 7, Name: "Maha Abdullah", Username: "maha"},
			{ID: 8, Name: "Huda Saleh", Username: "huda"},
		},
		Services: []domain.Service{
			{ID: 1, Name: "Haircut", DurationMinutes: 60, Price: 150},
			{ID: 2, Name: "Evening makeup", DurationMinutes: 90, Price: 300},
			{ID: 3, Name: "Manicure and pedicure", DurationMinutes: 60, Price: 180},
			{ID: 4, Name: "Hair dye", DurationMinutes: 120, Price: 500},
			{ID: 5, Name: "Facial", DurationMinutes: 60, Price: 250},
			{ID: 6, Name: "Hair styling", DurationMinutes: 45, Price: 200},
		},
		Bookings: []domain.Booking{
			booking(6, 2, 1, "10:00", domain.BookingStatusConfirmed),
			booking(6, 3, 2, "14:00", domain.BookingStatusPending),
			booking(7, 4, 3, "11:00", domain.BookingStatusCompleted),
			booking(8, 5, 5, "16:00", domain.BookingStatusPending),
		},
	}
}
