package domain

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

const MinutesPerDay = 24 * 60

var ErrInvalidClockTime = errors.New("invalid clock time")

// ClockTime is a minute-of-day offset. Its canonical text form is the
// zero-padded 24h "HH:MM".
type ClockTime int

// ParseClockTime accepts only the fixed-width "HH:MM" form.
func ParseClockTime(s string) (ClockTime, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}
	h, ok := twoDigits(s[0], s[1])
	if !ok || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}
	m, ok := twoDigits(s[3], s[4])
	if !ok || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClockTime, s)
	}
	return ClockTime(h*60 + m), nil
}

func MustClockTime(s string) ClockTime {
	c, err := ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return c
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

func (c ClockTime) Valid() bool {
	return c >= 0 && c < MinutesPerDay
}

func (c ClockTime) Add(minutes int) ClockTime {
	return c + ClockTime(minutes)
}

func (c ClockTime) Minutes() int {
	return int(c)
}

// String wraps values outside a single day back into [00:00, 23:59].
func (c ClockTime) String() string {
	m := int(c) % MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

func (c ClockTime) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *ClockTime) UnmarshalText(b []byte) error {
	v, err := ParseClockTime(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (c ClockTime) Value() (driver.Value, error) {
	return c.String(), nil
}

func (c *ClockTime) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return c.UnmarshalText([]byte(v))
	case []byte:
		return c.UnmarshalText(v)
	case nil:
		*c = 0
		return nil
	default:
		return fmt.Errorf("scan clock time: unsupported type %T", src)
	}
}

// AddMinutes adds delta minutes to an "HH:MM" string. Results past midnight
// wrap into the same day; callers keep intervals within one business day.
func AddMinutes(hhmm string, delta int) (string, error) {
	c, err := ParseClockTime(hhmm)
	if err != nil {
		return "", err
	}
	return c.Add(delta).String(), nil
}

// CompareClockStrings orders two "HH:MM" values. Plain string comparison is
// only equivalent for the fixed-width form, so both sides are validated first.
func CompareClockStrings(a, b string) (int, error) {
	ca, err := ParseClockTime(a)
	if err != nil {
		return 0, err
	}
	cb, err := ParseClockTime(b)
	if err != nil {
		return 0, err
	}
	switch {
	case ca < cb:
		return -1, nil
	case ca > cb:
		return 1, nil
	default:
		return 0, nil
	}
}
