package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
)

// InsertStatus is the outcome of an insert attempt. A duplicate-identifier
// conflict is an expected, handled outcome, not an error; any other failure
// is returned as a plain error.
type InsertStatus int

const (
	InsertOK InsertStatus = iota
	InsertConflict
)

// Client is the remote calendar boundary required by the reconciliation
// engine. Implementations never delete records.
type Client interface {
	// FindByICalUID returns a record carrying the identity, including
	// cancelled ones, preferring a non-cancelled match when the provider
	// holds duplicates. A nil record with a nil error means not found.
	FindByICalUID(ctx context.Context, uid string) (*RemoteEvent, error)
	// Insert creates a new record. InsertConflict reports that the
	// provider already holds a record with the payload's identity.
	Insert(ctx context.Context, payload EventPayload) (InsertStatus, error)
	// Update overwrites the mutable fields of a record in place.
	Update(ctx context.Context, eventID string, payload EventPayload) error
	// Revive patches a cancelled record back to confirmed while leaving
	// its identity field untouched.
	Revive(ctx context.Context, eventID string, payload EventPayload) error
}

type GoogleClient struct {
	service    *calendar.Service
	calendarID string
	loc        *time.Location
}

func NewGoogleClient(service *calendar.Service, calendarID string, loc *time.Location) *GoogleClient {
	return &GoogleClient{
		service:    service,
		calendarID: calendarID,
		loc:        loc,
	}
}

func (c *GoogleClient) FindByICalUID(ctx context.Context, uid string) (*RemoteEvent, error) {
	resp, err := c.service.Events.List(c.calendarID).
		ICalUID(uid).
		MaxResults(5).
		ShowDeleted(true).
		SingleEvents(true).
		Context(ctx).
		Do()
	if err != nil {
		err := fmt.Errorf("unable to list events for uid %s: %v", uid, err)
		log.Error(err)
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, nil
	}
	for _, item := range resp.Items {
		if Status(item.Status) != StatusCancelled {
			return eventFromGoogle(item, c.loc), nil
		}
	}
	return eventFromGoogle(resp.Items[0], c.loc), nil
}

func (c *GoogleClient) Insert(ctx context.Context, payload EventPayload) (InsertStatus, error) {
	_, err := c.service.Events.Insert(c.calendarID, payload.toGoogle()).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusConflict {
			return InsertConflict, nil
		}
		err := fmt.Errorf("unable to insert event %q: %v", payload.Summary, err)
		log.Error(err)
		return InsertOK, err
	}
	return InsertOK, nil
}

func (c *GoogleClient) Update(ctx context.Context, eventID string, payload EventPayload) error {
	_, err := c.service.Events.Update(c.calendarID, eventID, payload.toGoogle()).Context(ctx).Do()
	if err != nil {
		err := fmt.Errorf("unable to update event %s: %v", eventID, err)
		log.Error(err)
		return err
	}
	return nil
}

func (c *GoogleClient) Revive(ctx context.Context, eventID string, payload EventPayload) error {
	// Patch body must not carry the iCalUID: the provider forbids changing
	// it in place on an existing record.
	body := payload.toGoogle()
	body.ICalUID = ""
	body.Status = string(StatusConfirmed)

	_, err := c.service.Events.Patch(c.calendarID, eventID, body).Context(ctx).Do()
	if err != nil {
		err := fmt.Errorf("unable to revive event %s: %v", eventID, err)
		log.Error(err)
		return err
	}
	return nil
}
