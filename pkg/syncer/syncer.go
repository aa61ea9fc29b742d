// Package syncer reconciles a parsed MasterCal batch against the remote
// calendar: one synchronous pass, no deletions, no duplicates across runs.
package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/AyushChatto/mastercal-sync/pkg/gcal"
	"github.com/AyushChatto/mastercal-sync/pkg/identity"
	"github.com/AyushChatto/mastercal-sync/pkg/mastercal"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type Syncer struct {
	client   gcal.Client
	resolver *identity.Resolver
	loc      *time.Location
}

func New(client gcal.Client, resolver *identity.Resolver, loc *time.Location) *Syncer {
	return &Syncer{
		client:   client,
		resolver: resolver,
		loc:      loc,
	}
}

// batchState is the in-memory state shared across the per-event loop of one
// pass. The legacy cache holds one lookup result per colliding summary (nil
// meaning looked up and absent); usedLegacyIDs prevents two events in the
// same batch from claiming the same legacy record.
type batchState struct {
	runID         string
	total         int
	colliders     identity.CollisionSet
	legacyCache   map[string]*gcal.RemoteEvent
	usedLegacyIDs map[string]bool
}

// Sync processes events strictly in parsed order. Any remote failure other
// than the retried duplicate-insert conflict aborts the remaining batch; a
// re-run is safe because identities are deterministic.
func (s *Syncer) Sync(ctx context.Context, cal mastercal.ParsedCalendar) error {
	state := &batchState{
		runID:         uuid.NewString()[:8],
		total:         len(cal.Events),
		colliders:     identity.Collisions(cal.Events),
		legacyCache:   map[string]*gcal.RemoteEvent{},
		usedLegacyIDs: map[string]bool{},
	}
	log.Infof("[%s] sync start: events=%d colliders=%d", state.runID, state.total, len(state.colliders))

	for i, event := range cal.Events {
		if err := s.syncEvent(ctx, state, i+1, event); err != nil {
			return err
		}
	}
	log.Infof("[%s] sync done", state.runID)
	return nil
}

func (s *Syncer) syncEvent(ctx context.Context, state *batchState, pos int, event mastercal.ParsedEvent) error {
	normalized := identity.Normalize(event.Summary)
	collides := state.colliders.Contains(normalized)
	uid := s.resolver.UID(event, collides)
	payload := buildPayload(event, uid, s.loc)

	existing, err := s.client.FindByICalUID(ctx, uid)
	if err != nil {
		return fmt.Errorf("lookup for uid %s failed: %w", uid, err)
	}
	status := gcal.Status("")
	if existing != nil {
		status = existing.Status
	}
	log.Infof("[%s] [%d/%d] uid=%s summary=%q collide=%v found=%v status=%q",
		state.runID, pos, state.total, uid, event.Summary, collides, existing != nil, status)

	if existing != nil {
		return s.applyExisting(ctx, state, pos, existing, payload)
	}

	if collides {
		claimed, err := s.claimLegacy(ctx, state, pos, event, normalized)
		if err != nil {
			return err
		}
		if claimed {
			return nil
		}
	}

	log.Infof("[%s] [%d/%d] INSERT uid=%s", state.runID, pos, state.total, uid)
	result, err := s.client.Insert(ctx, payload)
	if err != nil {
		return fmt.Errorf("insert for uid %s failed: %w", uid, err)
	}
	if result == gcal.InsertConflict {
		log.Warnf("[%s] [%d/%d] insert conflict for uid=%s, re-running lookup", state.runID, pos, state.total, uid)
		existing, err := s.client.FindByICalUID(ctx, uid)
		if err != nil {
			return fmt.Errorf("lookup after insert conflict for uid %s failed: %w", uid, err)
		}
		if existing == nil {
			return fmt.Errorf("insert for uid %s conflicted but no existing event was found", uid)
		}
		return s.applyExisting(ctx, state, pos, existing, payload)
	}
	return nil
}

// applyExisting revives a cancelled record or updates an active one in place.
func (s *Syncer) applyExisting(ctx context.Context, state *batchState, pos int, existing *gcal.RemoteEvent, payload gcal.EventPayload) error {
	if existing.Cancelled() {
		log.Infof("[%s] [%d/%d] REVIVE eventID=%s", state.runID, pos, state.total, existing.ID)
		if err := s.client.Revive(ctx, existing.ID, payload); err != nil {
			return fmt.Errorf("revive of event %s failed: %w", existing.ID, err)
		}
		return nil
	}
	log.Infof("[%s] [%d/%d] UPDATE eventID=%s", state.runID, pos, state.total, existing.ID)
	if err := s.client.Update(ctx, existing.ID, payload); err != nil {
		return fmt.Errorf("update of event %s failed: %w", existing.ID, err)
	}
	return nil
}

// claimLegacy binds a record created under the old summary-only identity to
// this event, keeping the legacy identity in place so already-migrated
// records do not churn. A claim needs an unclaimed record whose start date
// matches exactly; a missing legacy end date is tolerated, a differing one
// is not. Mismatches are not errors, the caller falls through to insert.
func (s *Syncer) claimLegacy(ctx context.Context, state *batchState, pos int, event mastercal.ParsedEvent, normalized string) (bool, error) {
	legacyUID := s.resolver.LegacyUID(event.Summary)

	candidate, looked := state.legacyCache[normalized]
	if !looked {
		var err error
		candidate, err = s.client.FindByICalUID(ctx, legacyUID)
		if err != nil {
			return false, fmt.Errorf("legacy lookup for uid %s failed: %w", legacyUID, err)
		}
		state.legacyCache[normalized] = candidate
		log.Infof("[%s] [%d/%d] legacy lookup uid=%s found=%v", state.runID, pos, state.total, legacyUID, candidate != nil)
	}
	if candidate == nil {
		return false, nil
	}

	legacyStart, hasStart := candidate.StartDate(s.loc)
	legacyEnd, hasEnd := candidate.EndDateInclusive(s.loc)
	log.Infof("[%s] [%d/%d] legacy candidate eventID=%s used=%v have=%v..%v want=%s..%s",
		state.runID, pos, state.total, candidate.ID, state.usedLegacyIDs[candidate.ID], legacyStart, legacyEnd, event.StartDate, event.EndDate)

	if state.usedLegacyIDs[candidate.ID] {
		return false, nil
	}
	if !hasStart || legacyStart != event.StartDate {
		return false, nil
	}
	if hasEnd && legacyEnd != event.EndDate {
		return false, nil
	}

	state.usedLegacyIDs[candidate.ID] = true
	payload := buildPayload(event, legacyUID, s.loc)
	log.Infof("[%s] [%d/%d] CLAIM legacy eventID=%s uid=%s", state.runID, pos, state.total, candidate.ID, legacyUID)
	if err := s.applyExisting(ctx, state, pos, candidate, payload); err != nil {
		return false, err
	}
	return true, nil
}
