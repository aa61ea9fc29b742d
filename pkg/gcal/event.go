package gcal

import (
	"time"

	"github.com/AyushChatto/mastercal-sync/pkg/mastercal"
	"google.golang.org/api/calendar/v3"
)

// Status is the lifecycle state of a remote record.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// EventDateTime is either a whole calendar day or an instant with a zone.
// Exactly one representation is populated; AllDay selects which.
type EventDateTime struct {
	AllDay   bool
	Date     mastercal.Date
	DateTime time.Time
}

func WholeDay(d mastercal.Date) EventDateTime {
	return EventDateTime{AllDay: true, Date: d}
}

func At(t time.Time) EventDateTime {
	return EventDateTime{DateTime: t}
}

func (dt EventDateTime) toGoogle() *calendar.EventDateTime {
	if dt.AllDay {
		return &calendar.EventDateTime{Date: dt.Date.String()}
	}
	return &calendar.EventDateTime{
		DateTime: dt.DateTime.Format(time.RFC3339),
		TimeZone: dt.DateTime.Location().String(),
	}
}

// EventPayload is the full mutable state written to a remote record. The
// ICalUID carries the derived event identity; for all-day events End is
// exclusive (one day past the inclusive end date).
type EventPayload struct {
	Summary     string
	Location    string
	Description string
	Start       EventDateTime
	End         EventDateTime
	ICalUID     string
}

func (p EventPayload) toGoogle() *calendar.Event {
	return &calendar.Event{
		Summary:     p.Summary,
		Location:    p.Location,
		Description: p.Description,
		Start:       p.Start.toGoogle(),
		End:         p.End.toGoogle(),
		ICalUID:     p.ICalUID,
	}
}

// RemoteEvent is the slice of a provider record the reconciliation engine
// needs: its lifecycle status and its start/end representation. Start or End
// is nil when the provider field was absent or unreadable.
type RemoteEvent struct {
	ID      string
	Status  Status
	Summary string
	ICalUID string
	Start   *EventDateTime
	End     *EventDateTime
}

func (e *RemoteEvent) Cancelled() bool {
	return e.Status == StatusCancelled
}

// StartDate is the record's start as a calendar day in the given location.
func (e *RemoteEvent) StartDate(loc *time.Location) (mastercal.Date, bool) {
	return dateOf(e.Start, loc, 0)
}

// EndDateInclusive converts the provider's exclusive all-day end back to the
// inclusive form used by parsed events.
func (e *RemoteEvent) EndDateInclusive(loc *time.Location) (mastercal.Date, bool) {
	return dateOf(e.End, loc, -1)
}

func dateOf(dt *EventDateTime, loc *time.Location, allDayOffset int) (mastercal.Date, bool) {
	if dt == nil {
		return mastercal.Date{}, false
	}
	if dt.AllDay {
		return dt.Date.AddDays(allDayOffset), true
	}
	return mastercal.DateOf(dt.DateTime.In(loc)), true
}

func eventFromGoogle(item *calendar.Event, loc *time.Location) *RemoteEvent {
	return &RemoteEvent{
		ID:      item.Id,
		Status:  Status(item.Status),
		Summary: item.Summary,
		ICalUID: item.ICalUID,
		Start:   dateTimeFromGoogle(item.Start, loc),
		End:     dateTimeFromGoogle(item.End, loc),
	}
}

func dateTimeFromGoogle(dt *calendar.EventDateTime, loc *time.Location) *EventDateTime {
	if dt == nil {
		return nil
	}
	if dt.Date != "" {
		date, err := mastercal.ParseDate(dt.Date)
		if err != nil {
			return nil
		}
		whole := WholeDay(date)
		return &whole
	}
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		if err != nil {
			return nil
		}
		at := At(t.In(loc))
		return &at
	}
	return nil
}
