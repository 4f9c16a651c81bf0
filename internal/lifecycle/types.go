package lifecycle

import (
	"time"

	"github.com/mauv0809/courtmatch/internal/cancellation"
	"github.com/mauv0809/courtmatch/internal/confirmation"
	"github.com/mauv0809/courtmatch/internal/match"
	"github.com/mauv0809/courtmatch/internal/rating"
)

// Config wires the engine components.
type Config struct {
	Rating       rating.Config
	Confirmation confirmation.Config
	Cancellation cancellation.Config
	Privileged   []string
}

// NewSlot is a candidate time window of a match being created. A zero Side means the
// opponents' side.
type NewSlot struct {
	Start time.Time   `json:"start"`
	End   time.Time   `json:"end"`
	Side  rating.Side `json:"side,omitempty"`
}

// NewMatch is the input of CreateMatch.
type NewMatch struct {
	CreatorID string        `json:"creator_id"`
	CourtID   string        `json:"court_id"`
	Date      time.Time     `json:"date"`
	Format    rating.Format `json:"format"`
	Slots     []NewSlot     `json:"slots"`
	Filters   match.Filters `json:"filters"`
}

// MatchPatch lists the fields of a match that may change after creation. The creator
// may change Date and Filters; CourtID is reserved for privileged actors.
type MatchPatch struct {
	Date    *time.Time     `json:"date,omitempty"`
	Filters *match.Filters `json:"filters,omitempty"`
	CourtID *string        `json:"court_id,omitempty"`
}

// MatchView is a match with its slots and, once reported, its result.
type MatchView struct {
	match.Match
	Slots  []match.Slot  `json:"slots"`
	Result *match.Result `json:"result,omitempty"`
}

// StatsVerification compares a user's stats projection with the replay of their log.
type StatsVerification struct {
	UserID     string           `json:"user_id"`
	Projection rating.UserStats `json:"projection"`
	Replayed   rating.UserStats `json:"replayed"`
	Entries    int              `json:"entries"`
	Consistent bool             `json:"consistent"`
}
