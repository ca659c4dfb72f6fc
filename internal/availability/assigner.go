package availability

import (
	"context"
	"errors"
	"fmt"

	"salon/backend/internal/domain"
	"salon/backend/internal/store"
)

var ErrNoCapacity = errors.New("no staff available at the requested time")

type Request struct {
	Date            domain.Date
	Start           domain.ClockTime
	DurationMinutes int
	// Exclude skips staff already found busy by the caller.
	Exclude map[int64]bool
}

// Assigner picks one staff member able to take a request.
type Assigner interface {
	Assign(ctx context.Context, r store.ScheduleReader, req Request) (domain.StaffMember, error)
}

// FirstFit returns the available staff member with the lowest id. Staff counts
// are small, so a linear scan is enough.
type FirstFit struct {
	Checker Checker
}

func NewFirstFit(checker Checker) *FirstFit {
	return &FirstFit{Checker: checker}
}

func (f *FirstFit) Assign(ctx context.Context, r store.ScheduleReader, req Request) (domain.StaffMember, error) {
	staff, err := r.ListStaff(ctx)
	if err != nil {
		return domain.StaffMember{}, fmt.Errorf("list staff: %w", err)
	}

	for _, m := range staff {
		if req.Exclude[m.ID] {
			continue
		}
		res, err := f.Checker.Check(ctx, r, Query{
			StaffID:         m.ID,
			Date:            req.Date,
			Start:           req.Start,
			DurationMinutes: req.DurationMinutes,
		})
		if err != nil {
			return domain.StaffMember{}, err
		}
		if res.Available {
			return m, nil
		}
	}
	return domain.StaffMember{}, ErrNoCapacity
}
