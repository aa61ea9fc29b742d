package syncer

import (
	"time"

	"github.com/AyushChatto/mastercal-sync/pkg/gcal"
	"github.com/AyushChatto/mastercal-sync/pkg/mastercal"
)

// buildPayload renders a parsed event as the remote record state. All-day
// events get date-only bounds with an exclusive end; timed events get
// instants in the configured location, with the end defaulting to one hour
// after the start when the source line carried only a start time.
func buildPayload(event mastercal.ParsedEvent, uid string, loc *time.Location) gcal.EventPayload {
	payload := gcal.EventPayload{
		Summary:     event.Summary,
		Location:    event.Location,
		Description: event.Description,
		ICalUID:     uid,
	}
	if event.AllDay() {
		payload.Start = gcal.WholeDay(event.StartDate)
		payload.End = gcal.WholeDay(event.EndDate.AddDays(1))
		return payload
	}

	start := event.StartDate.At(*event.StartTime, loc)
	end := start.Add(time.Hour)
	if event.EndTime != nil {
		end = event.EndDate.At(*event.EndTime, loc)
	}
	payload.Start = gcal.At(start)
	payload.End = gcal.At(end)
	return payload
}
