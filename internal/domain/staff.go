package domain

import "github.com/uptrace/bun"

// StaffMember is a user with the employee role. Schedule lists preferred
// "HH:MM" slots; it is advisory and never enforced by availability checks.
type StaffMember struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID       int64    `bun:"id,pk,autoincrement"`
	Name     string   `bun:"name,notnull"`
	Username string   `bun:"username,notnull"`
	Role     string   `bun:"role,notnull"`
	Schedule []string `bun:"schedule,type:jsonb"`
}

const (
	RoleEmployee = "employee"
	RoleCustomer = "customer"
)

type Customer struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID       int64  `bun:"id,pk,autoincrement"`
	Name     string `bun:"name,notnull"`
	Username string `bun:"username,notnull"`
}

type Service struct {
	bun.BaseModel `bun:"table:services"`

	ID              int64   `bun:"id,pk,autoincrement"`
	Name            string  `bun:"name,notnull"`
	DurationMinutes int     `bun:"duration,notnull"`
	Price           float64 `bun:"price,notnull"`
}
