package gcal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// StubClient is an in-memory Client for tests.
type StubClient struct {
	Events []*RemoteEvent

	// MissLookups makes the next n lookups report not-found even when a
	// matching record exists, simulating a concurrent writer racing the
	// lookup-then-insert sequence.
	MissLookups int

	InsertCalls int
	UpdateCalls int
	ReviveCalls int
}

func NewStubClient() *StubClient {
	return &StubClient{}
}

func (s *StubClient) FindByICalUID(_ context.Context, uid string) (*RemoteEvent, error) {
	if s.MissLookups > 0 {
		s.MissLookups--
		return nil, nil
	}
	var cancelled *RemoteEvent
	for _, event := range s.Events {
		if event.ICalUID != uid {
			continue
		}
		if !event.Cancelled() {
			return event, nil
		}
		if cancelled == nil {
			cancelled = event
		}
	}
	return cancelled, nil
}

func (s *StubClient) Insert(_ context.Context, payload EventPayload) (InsertStatus, error) {
	s.InsertCalls++
	for _, event := range s.Events {
		if event.ICalUID == payload.ICalUID {
			return InsertConflict, nil
		}
	}
	event := &RemoteEvent{
		ID:      uuid.NewString(),
		Status:  StatusConfirmed,
		ICalUID: payload.ICalUID,
	}
	applyPayload(event, payload)
	s.Events = append(s.Events, event)
	return InsertOK, nil
}

func (s *StubClient) Update(_ context.Context, eventID string, payload EventPayload) error {
	s.UpdateCalls++
	event := s.byID(eventID)
	if event == nil {
		return fmt.Errorf("stub: no event with id %s", eventID)
	}
	event.ICalUID = payload.ICalUID
	applyPayload(event, payload)
	return nil
}

func (s *StubClient) Revive(_ context.Context, eventID string, payload EventPayload) error {
	s.ReviveCalls++
	event := s.byID(eventID)
	if event == nil {
		return fmt.Errorf("stub: no event with id %s", eventID)
	}
	event.Status = StatusConfirmed
	applyPayload(event, payload)
	return nil
}

func (s *StubClient) byID(eventID string) *RemoteEvent {
	for _, event := range s.Events {
		if event.ID == eventID {
			return event
		}
	}
	return nil
}

func applyPayload(event *RemoteEvent, payload EventPayload) {
	start := payload.Start
	end := payload.End
	event.Summary = payload.Summary
	event.Start = &start
	event.End = &end
}
