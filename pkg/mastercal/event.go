package mastercal

import (
	"fmt"
	"time"
)

// Date is a calendar day without a time component or a zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate parses a YYYY-MM-DD string, as used by all-day fields of the
// calendar provider.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %v", s, err)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) AddDays(days int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+days, 0, 0, 0, 0, time.UTC))
}

// At combines the date with a time of day in the given location.
func (d Date) At(t ClockTime, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour, t.Minute, 0, 0, loc)
}

// ClockTime is a local time of day in 24-hour form.
type ClockTime struct {
	Hour   int
	Minute int
}

func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParsedEvent is one normalized schedule entry produced by the parser.
// Dates are inclusive on both ends. StartTime and EndTime are nil for
// all-day events; EndTime alone may be nil, in which case the sync layer
// defaults the duration to one hour.
type ParsedEvent struct {
	Summary     string
	StartDate   Date
	EndDate     Date
	StartTime   *ClockTime
	EndTime     *ClockTime
	Location    string
	Description string
}

func (e ParsedEvent) AllDay() bool {
	return e.StartTime == nil
}

// ParsedCalendar holds events in the order they appeared in the source text.
type ParsedCalendar struct {
	Events []ParsedEvent
}

// Diagnostic describes a source line the parser could not turn into an event.
type Diagnostic struct {
	Line    int
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d %s", d.Line, d.Message)
}
