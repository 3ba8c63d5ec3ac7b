package value

import (
	"fmt"
	stdtime "time"
)

// Date is a calendar date.
type Date struct {
	Year  int
	Month int
	Day   int
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Compare orders dates chronologically.
func (d Date) Compare(other Date) int {
	if c := cmpInt(d.Year, other.Year); c != 0 {
		return c
	}
	if c := cmpInt(d.Month, other.Month); c != 0 {
		return c
	}
	return cmpInt(d.Day, other.Day)
}

// Time is a time of day with microsecond resolution.
type Time struct {
	Hour     int
	Minute   int
	Second   int
	Microsec int
}

func (t Time) String() string {
	if t.Microsec == 0 {
		return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	}
	return fmt.Sprintf("%02d:%02d:%02d.%06d", t.Hour, t.Minute, t.Second, t.Microsec)
}

// Compare orders times chronologically.
func (t Time) Compare(other Time) int {
	if c := cmpInt(t.Hour, other.Hour); c != 0 {
		return c
	}
	if c := cmpInt(t.Minute, other.Minute); c != 0 {
		return c
	}
	if c := cmpInt(t.Second, other.Second); c != 0 {
		return c
	}
	return cmpInt(t.Microsec, other.Microsec)
}

// DateTime combines a date and a time of day.
type DateTime struct {
	Date Date
	Time Time
}

func (dt DateTime) String() string {
	return dt.Date.String() + "T" + dt.Time.String()
}

// Compare orders date-times chronologically.
func (dt DateTime) Compare(other DateTime) int {
	if c := dt.Date.Compare(other.Date); c != 0 {
		return c
	}
	return dt.Time.Compare(other.Time)
}

// Duration is a calendar duration: months and days vary in wall length, so
// they are kept apart from the sub-day nanosecond component.
type Duration struct {
	Months int64
	Days   int64
	Nanos  int64
}

func (d Duration) String() string {
	return fmt.Sprintf("P%dM%dDT%dN", d.Months, d.Days, d.Nanos)
}

// Compare orders durations by their nominal length (months as 30 days).
func (d Duration) Compare(other Duration) int {
	a := d.nominalNanos()
	b := other.nominalNanos()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (d Duration) nominalNanos() int64 {
	const dayNanos = 24 * 60 * 60 * 1e9
	return (d.Months*30+d.Days)*dayNanos + d.Nanos
}

// DateOf converts a wall-clock time to a Date.
func DateOf(t stdtime.Time) Date {
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// TimeOf converts a wall-clock time to a Time.
func TimeOf(t stdtime.Time) Time {
	return Time{
		Hour:     t.Hour(),
		Minute:   t.Minute(),
		Second:   t.Second(),
		Microsec: t.Nanosecond() / 1000,
	}
}

// DateTimeOf converts a wall-clock time to a DateTime.
func DateTimeOf(t stdtime.Time) DateTime {
	return DateTime{Date: DateOf(t), Time: TimeOf(t)}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
