package domain

// BufferMinutes is the minimum gap between two bookings of the same staff member.
const BufferMinutes = 15

// Interval is a half-open span of minutes-of-day [Start, End).
type Interval struct {
	Start ClockTime
	End   ClockTime
}

func NewInterval(start ClockTime, durationMinutes int) Interval {
	return Interval{Start: start, End: start.Add(durationMinutes)}
}

// PaddedInterval widens [start, start+duration) by buffer on both edges.
func PaddedInterval(start ClockTime, durationMinutes, buffer int) Interval {
	return NewInterval(start, durationMinutes).Pad(buffer)
}

func (i Interval) Pad(buffer int) Interval {
	return Interval{Start: i.Start.Add(-buffer), End: i.End.Add(buffer)}
}

// Overlaps treats a zero-length interval as a point that still blocks when it
// falls strictly inside the other interval.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && i.End > o.Start
}

// WithinDay reports whether the interval starts and ends inside one day.
func (i Interval) WithinDay() bool {
	return i.Start >= 0 && i.End <= MinutesPerDay && i.End >= i.Start
}

func (i Interval) Contains(o Interval) bool {
	return o.Start >= i.Start && o.End <= i.End
}

// Conflicts reports whether a and b sit closer than buffer minutes apart.
// Padding one side is enough: a.Pad(buffer).Overlaps(b) == b.Pad(buffer).Overlaps(a).
func Conflicts(a, b Interval, buffer int) bool {
	return a.Pad(buffer).Overlaps(b)
}

// BookedInterval is the occupancy of an existing non-cancelled booking.
type BookedInterval struct {
	BookingID       int64
	Start           ClockTime
	DurationMinutes int
}

func (b BookedInterval) Interval() Interval {
	return NewInterval(b.Start, b.DurationMinutes)
}
