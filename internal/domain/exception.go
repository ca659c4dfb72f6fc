package domain

import "github.com/uptrace/bun"

type ExceptionType string

const (
	ExceptionDayOff   ExceptionType = "day_off"
	ExceptionShortDay ExceptionType = "short_day"
)

// AvailabilityException overrides a staff member's normal availability on one date.
// StartTime/EndTime bound the working window of a short_day and are nil for day_off.
type AvailabilityException struct {
	bun.BaseModel `bun:"table:availability_exceptions"`

	ID        int64         `bun:"id,pk,autoincrement"`
	StaffID   int64         `bun:"employee_id,notnull"`
	Date      Date          `bun:"date,notnull"`
	Type      ExceptionType `bun:"type,notnull"`
	StartTime *ClockTime    `bun:"start_time,type:varchar(5)"`
	EndTime   *ClockTime    `bun:"end_time,type:varchar(5)"`
}

// Window returns the short_day working window, if both bounds are set.
func (e AvailabilityException) Window() (Interval, bool) {
	if e.Type != ExceptionShortDay || e.StartTime == nil || e.EndTime == nil {
		return Interval{}, false
	}
	return Interval{Start: *e.StartTime, End: *e.EndTime}, true
}
