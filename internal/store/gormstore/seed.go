package gormstore

import (
	"context"
	"time"

	"gorm.io/gorm"

	"salon/backend/internal/domain"
	"salon/backend/internal/store/demo"
)

// SeedDemo loads demo.Salon into an empty database. It does nothing when
// users already exist.
func SeedDemo(ctx context.Context, db *gorm.DB, today time.Time) (bool, error) {
	data := demo.Salon(today)

	seeded := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&userRow{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		users := make([]userRow, 0, len(data.Staff)+len(data.Customers))
		for _, m := range data.Staff {
			users = append(users, userRow{ID: m.ID, Name: m.Name, Username: m.Username, Role: m.Role, Schedule: m.Schedule})
		}
		for _, c := range data.Customers {
			users = append(users, userRow{ID: c.ID, Name: c.Name, Username: c.Username, Role: domain.RoleCustomer})
		}
		if err := tx.Create(&users).Error; err != nil {
			return err
		}

		services := make([]serviceRow, 0, len(data.Services))
		for _, s := range data.Services {
			services = append(services, serviceRow{ID: s.ID, Name: s.Name, Duration: s.DurationMinutes, Price: s.Price})
		}
		if err := tx.Create(&services).Error; err != nil {
			return err
		}

		bookings := make([]bookingRow, 0, len(data.Bookings))
		for _, b := range data.Bookings {
			bookings = append(bookings, newBookingRow(b))
		}
		if err := tx.Create(&bookings).Error; err != nil {
			return err
		}
		seeded = true
		return nil
	})
	return seeded, err
}
