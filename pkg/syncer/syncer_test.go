package syncer

import (
	"context"
	"testing"
	"time"

	"github.com/AyushChatto/mastercal-sync/pkg/gcal"
	"github.com/AyushChatto/mastercal-sync/pkg/identity"
	"github.com/AyushChatto/mastercal-sync/pkg/mastercal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testChatID = int64(42)

func testLocation(t *testing.T) *time.Location {
	t.Helper()
	location, err := time.LoadLocation("Asia/Singapore")
	require.NoError(t, err)
	return location
}

func allDayEvent(summary string, start, end mastercal.Date) mastercal.ParsedEvent {
	return mastercal.ParsedEvent{
		Summary:     summary,
		StartDate:   start,
		EndDate:     end,
		Description: "source_line=" + summary,
	}
}

func remoteAllDay(id, uid string, status gcal.Status, start, endExclusive mastercal.Date) *gcal.RemoteEvent {
	s := gcal.WholeDay(start)
	e := gcal.WholeDay(endExclusive)
	return &gcal.RemoteEvent{ID: id, Status: status, ICalUID: uid, Start: &s, End: &e}
}

func TestSyncInsertAndUpdate(t *testing.T) {
	ctx := context.Background()
	location := testLocation(t)
	resolver := identity.NewResolver(testChatID)

	batch := mastercal.ParsedCalendar{Events: []mastercal.ParsedEvent{
		allDayEvent("Retreat", mastercal.Date{Year: 2024, Month: time.February, Day: 28}, mastercal.Date{Year: 2024, Month: time.March, Day: 3}),
		allDayEvent("Company Dinner", mastercal.Date{Year: 2024, Month: time.December, Day: 12}, mastercal.Date{Year: 2024, Month: time.December, Day: 12}),
	}}

	t.Run("new events are inserted with their identity", func(t *testing.T) {
		stub := gcal.NewStubClient()
		service := New(stub, resolver, location)

		require.NoError(t, service.Sync(ctx, batch))
		require.Len(t, stub.Events, 2)
		assert.Equal(t, 2, stub.InsertCalls)
		assert.Equal(t, resolver.UID(batch.Events[0], false), stub.Events[0].ICalUID)
		assert.Equal(t, resolver.UID(batch.Events[1], false), stub.Events[1].ICalUID)
	})

	t.Run("second run updates in place without new records", func(t *testing.T) {
		stub := gcal.NewStubClient()
		service := New(stub, resolver, location)

		require.NoError(t, service.Sync(ctx, batch))
		require.NoError(t, service.Sync(ctx, batch))
		assert.Len(t, stub.Events, 2)
		assert.Equal(t, 2, stub.InsertCalls)
		assert.Equal(t, 2, stub.UpdateCalls)
		assert.Equal(t, 0, stub.ReviveCalls)
	})

	t.Run("cancelled records are revived, not duplicated", func(t *testing.T) {
		stub := gcal.NewStubClient()
		uid := resolver.UID(batch.Events[0], false)
		stub.Events = append(stub.Events, remoteAllDay("e1", uid, gcal.StatusCancelled,
			mastercal.Date{Year: 2024, Month: time.February, Day: 28}, mastercal.Date{Year: 2024, Month: time.March, Day: 4}))
		service := New(stub, resolver, location)

		require.NoError(t, service.Sync(ctx, mastercal.ParsedCalendar{Events: batch.Events[:1]}))
		require.Len(t, stub.Events, 1)
		assert.Equal(t, 1, stub.ReviveCalls)
		assert.Equal(t, 0, stub.InsertCalls)
		assert.Equal(t, gcal.StatusConfirmed, stub.Events[0].Status)
		assert.Equal(t, uid, stub.Events[0].ICalUID)
	})
}

func TestSyncPayloads(t *testing.T) {
	ctx := context.Background()
	location := testLocation(t)
	resolver := identity.NewResolver(testChatID)

	t.Run("all-day events get an exclusive end date", func(t *testing.T) {
		stub := gcal.NewStubClient()
		service := New(stub, resolver, location)
		event := allDayEvent("Retreat", mastercal.Date{Year: 2024, Month: time.February, Day: 28}, mastercal.Date{Year: 2024, Month: time.March, Day: 3})

		require.NoError(t, service.Sync(ctx, mastercal.ParsedCalendar{Events: []mastercal.ParsedEvent{event}}))
		require.Len(t, stub.Events, 1)
		stored := stub.Events[0]
		assert.Equal(t, mastercal.Date{Year: 2024, Month: time.March, Day: 4}, stored.End.Date)

		// Reading the record back yields the inclusive end again.
		end, ok := stored.EndDateInclusive(location)
		require.True(t, ok)
		assert.Equal(t, event.EndDate, end)
	})

	t.Run("missing end time defaults to one hour after start", func(t *testing.T) {
		stub := gcal.NewStubClient()
		service := New(stub, resolver, location)
		event := allDayEvent("Standup", mastercal.Date{Year: 2024, Month: time.June, Day: 3}, mastercal.Date{Year: 2024, Month: time.June, Day: 3})
		event.StartTime = &mastercal.ClockTime{Hour: 8, Minute: 0}

		require.NoError(t, service.Sync(ctx, mastercal.ParsedCalendar{Events: []mastercal.ParsedEvent{event}}))
		require.Len(t, stub.Events, 1)
		stored := stub.Events[0]
		assert.Equal(t, time.Date(2024, time.June, 3, 8, 0, 0, 0, location), stored.Start.DateTime)
		assert.Equal(t, time.Date(2024, time.June, 3, 9, 0, 0, 0, location), stored.End.DateTime)
	})

	t.Run("explicit end time lands on the end date", func(t *testing.T) {
		stub := gcal.NewStubClient()
		service := New(stub, resolver, location)
		event := allDayEvent("Offsite", mastercal.Date{Year: 2024, Month: time.June, Day: 3}, mastercal.Date{Year: 2024, Month: time.June, Day: 4})
		event.StartTime = &mastercal.ClockTime{Hour: 14, Minute: 0}
		event.EndTime = &mastercal.ClockTime{Hour: 18, Minute: 0}

		require.NoError(t, service.Sync(ctx, mastercal.ParsedCalendar{Events: []mastercal.ParsedEvent{event}}))
		require.Len(t, stub.Events, 1)
		assert.Equal(t, time.Date(2024, time.June, 4, 18, 0, 0, 0, location), stub.Events[0].End.DateTime)
	})
}

func TestSyncLegacyClaim(t *testing.T) {
	ctx := context.Background()
	location := testLocation(t)
	resolver := identity.NewResolver(testChatID)

	janDate := mastercal.Date{Year: 2024, Month: time.January, Day: 5}
	febDate := mastercal.Date{Year: 2024, Month: time.February, Day: 5}
	batch := mastercal.ParsedCalendar{Events: []mastercal.ParsedEvent{
		allDayEvent("AVCTT", janDate, janDate),
		allDayEvent("AVCTT", febDate, febDate),
	}}
	legacyUID := resolver.LegacyUID("AVCTT")

	t.Run("date-matching legacy record is claimed and keeps its identity", func(t *testing.T) {
		stub := gcal.NewStubClient()
		stub.Events = append(stub.Events, remoteAllDay("legacy-1", legacyUID, gcal.StatusConfirmed,
			janDate, janDate.AddDays(1)))
		service := New(stub, resolver, location)

		require.NoError(t, service.Sync(ctx, batch))
		require.Len(t, stub.Events, 2)
		assert.Equal(t, 1, stub.UpdateCalls)
		assert.Equal(t, 1, stub.InsertCalls)
		assert.Equal(t, legacyUID, stub.Events[0].ICalUID)
		assert.Equal(t, resolver.UID(batch.Events[1], true), stub.Events[1].ICalUID)
	})

	t.Run("claimed record cannot be claimed twice in one batch", func(t *testing.T) {
		stub := gcal.NewStubClient()
		stub.Events = append(stub.Events, remoteAllDay("legacy-1", legacyUID, gcal.StatusConfirmed,
			janDate, janDate.AddDays(1)))
		service := New(stub, resolver, location)

		sameDay := mastercal.ParsedCalendar{Events: []mastercal.ParsedEvent{
			allDayEvent("AVCTT", janDate, janDate),
			allDayEvent("AVCTT", janDate, janDate.AddDays(1)),
		}}
		require.NoError(t, service.Sync(ctx, sameDay))
		assert.Equal(t, 1, stub.UpdateCalls)
		assert.Equal(t, 1, stub.InsertCalls)
	})

	t.Run("date mismatch falls through to insert", func(t *testing.T) {
		stub := gcal.NewStubClient()
		stub.Events = append(stub.Events, remoteAllDay("legacy-1", legacyUID, gcal.StatusConfirmed,
			mastercal.Date{Year: 2023, Month: time.December, Day: 1}, mastercal.Date{Year: 2023, Month: time.December, Day: 2}))
		service := New(stub, resolver, location)

		require.NoError(t, service.Sync(ctx, batch))
		assert.Len(t, stub.Events, 3)
		assert.Equal(t, 0, stub.UpdateCalls)
		assert.Equal(t, 2, stub.InsertCalls)
	})

	t.Run("missing legacy end date is tolerated", func(t *testing.T) {
		stub := gcal.NewStubClient()
		legacy := remoteAllDay("legacy-1", legacyUID, gcal.StatusConfirmed, janDate, janDate.AddDays(1))
		legacy.End = nil
		stub.Events = append(stub.Events, legacy)
		service := New(stub, resolver, location)

		require.NoError(t, service.Sync(ctx, batch))
		assert.Equal(t, 1, stub.UpdateCalls)
		assert.Equal(t, legacyUID, stub.Events[0].ICalUID)
	})

	t.Run("cancelled legacy record is revived on claim", func(t *testing.T) {
		stub := gcal.NewStubClient()
		stub.Events = append(stub.Events, remoteAllDay("legacy-1", legacyUID, gcal.StatusCancelled,
			janDate, janDate.AddDays(1)))
		service := New(stub, resolver, location)

		require.NoError(t, service.Sync(ctx, batch))
		assert.Equal(t, 1, stub.ReviveCalls)
		assert.Equal(t, gcal.StatusConfirmed, stub.Events[0].Status)
		assert.Equal(t, legacyUID, stub.Events[0].ICalUID)
	})
}

func TestSyncInsertConflict(t *testing.T) {
	ctx := context.Background()
	location := testLocation(t)
	resolver := identity.NewResolver(testChatID)

	event := allDayEvent("Retreat", mastercal.Date{Year: 2024, Month: time.February, Day: 28}, mastercal.Date{Year: 2024, Month: time.March, Day: 3})
	uid := resolver.UID(event, false)
	batch := mastercal.ParsedCalendar{Events: []mastercal.ParsedEvent{event}}

	t.Run("conflicting insert retries the lookup and updates", func(t *testing.T) {
		stub := gcal.NewStubClient()
		stub.Events = append(stub.Events, remoteAllDay("raced", uid, gcal.StatusConfirmed,
			event.StartDate, event.EndDate.AddDays(1)))
		stub.MissLookups = 1

		service := New(stub, resolver, location)
		require.NoError(t, service.Sync(ctx, batch))
		assert.Len(t, stub.Events, 1)
		assert.Equal(t, 1, stub.InsertCalls)
		assert.Equal(t, 1, stub.UpdateCalls)
	})

	t.Run("conflict with no record on retry is fatal", func(t *testing.T) {
		stub := gcal.NewStubClient()
		stub.Events = append(stub.Events, remoteAllDay("raced", uid, gcal.StatusConfirmed,
			event.StartDate, event.EndDate.AddDays(1)))
		stub.MissLookups = 2

		service := New(stub, resolver, location)
		err := service.Sync(ctx, batch)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "conflicted")
	})
}

func TestBuildPayloadDescription(t *testing.T) {
	location := testLocation(t)
	event := allDayEvent("Retreat", mastercal.Date{Year: 2024, Month: time.February, Day: 28}, mastercal.Date{Year: 2024, Month: time.March, Day: 3})
	event.Location = "Hotel"

	payload := buildPayload(event, "uid-1", location)
	assert.Equal(t, "Retreat", payload.Summary)
	assert.Equal(t, "Hotel", payload.Location)
	assert.Equal(t, "source_line=Retreat", payload.Description)
	assert.Equal(t, "uid-1", payload.ICalUID)
}
