// Package identity derives the deterministic external identifiers used to
// find previously created calendar records for parsed events.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/AyushChatto/mastercal-sync/pkg/mastercal"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalize lowercases, trims, and collapses internal whitespace so that
// cosmetic edits to a summary do not change its identity.
func Normalize(summary string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(summary)), " ")
}

// CollisionSet holds the normalized summaries that appear more than once in
// one batch. Colliding events need their dates folded into the identity,
// otherwise repeated occurrences of the same title would all map to one
// remote record.
type CollisionSet map[string]struct{}

func (c CollisionSet) Contains(normalizedSummary string) bool {
	_, ok := c[normalizedSummary]
	return ok
}

// Collisions computes the CollisionSet for a batch.
func Collisions(events []mastercal.ParsedEvent) CollisionSet {
	counts := make(map[string]int, len(events))
	for _, event := range events {
		counts[Normalize(event.Summary)]++
	}
	set := CollisionSet{}
	for summary, count := range counts {
		if count > 1 {
			set[summary] = struct{}{}
		}
	}
	return set
}

// Resolver computes identities scoped to one chat.
type Resolver struct {
	chatID int64
}

func NewResolver(chatID int64) *Resolver {
	return &Resolver{chatID: chatID}
}

type legacyKey struct {
	Summary string `json:"summary"`
}

// collisionKey fields mirror the sorted key order of the canonical encoding
// used when the legacy records were first issued; reordering them would
// silently re-key every colliding event.
type collisionKey struct {
	EndDate   string `json:"end_date"`
	StartDate string `json:"start_date"`
	Summary   string `json:"summary"`
}

// LegacyUID is the summary-only identity scheme. Records created before
// collision handling existed carry this identity, so it must stay stable.
func (r *Resolver) LegacyUID(summary string) string {
	return r.format(legacyKey{Summary: Normalize(summary)})
}

// UID returns the identity for an event. Dates are folded in only when the
// summary collides within the batch; unique summaries keep the legacy
// identity so records issued by earlier runs are still found.
func (r *Resolver) UID(event mastercal.ParsedEvent, collides bool) string {
	if !collides {
		return r.LegacyUID(event.Summary)
	}
	return r.format(collisionKey{
		EndDate:   event.EndDate.String(),
		StartDate: event.StartDate.String(),
		Summary:   Normalize(event.Summary),
	})
}

func (r *Resolver) format(key any) string {
	encoded, _ := json.Marshal(key)
	digest := sha256.Sum256(encoded)
	return fmt.Sprintf("tg-%d-%s@mastercal.local", r.chatID, hex.EncodeToString(digest[:])[:16])
}
