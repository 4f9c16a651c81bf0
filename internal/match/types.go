package match

import (
	"time"

	"github.com/mauv0809/courtmatch/internal/rating"
)

// Status represents the lifecycle state of a match.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// SlotStatus represents the state of a candidate time slot.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "AVAILABLE"
	SlotLocked    SlotStatus = "LOCKED"
	SlotConfirmed SlotStatus = "CONFIRMED"
)

// ApplicationStatus represents the state of a user's request to occupy a slot.
type ApplicationStatus string

const (
	ApplicationPending    ApplicationStatus = "PENDING"
	ApplicationWaitlisted ApplicationStatus = "WAITLISTED"
	ApplicationConfirmed  ApplicationStatus = "CONFIRMED"
	ApplicationRejected   ApplicationStatus = "REJECTED"
	ApplicationExpired    ApplicationStatus = "EXPIRED"
)

// Filters are optional eligibility constraints set by the creator.
type Filters struct {
	MinSkill      *float64 `json:"min_skill,omitempty"`
	MaxSkill      *float64 `json:"max_skill,omitempty"`
	Gender        *string  `json:"gender,omitempty"`
	MaxDistanceKm *float64 `json:"max_distance_km,omitempty"`
	Surface       *string  `json:"surface,omitempty"`
}

// Match is a court booking offered by its creator over one or more candidate slots.
// Matches are hard-deleted, together with their slots and applications, when removed.
type Match struct {
	ID        string        `json:"id"`
	CreatorID string        `json:"creator_id"`
	CourtID   string        `json:"court_id"`
	Date      time.Time     `json:"date"`
	Format    rating.Format `json:"format"`
	Filters   Filters       `json:"filters"`
	Status    Status        `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Slot is a bookable time window within a match. Side is the side of the match the
// confirmed applicant joins: Side1 is the creator's side, Side2 the opponents.
type Slot struct {
	ID                     string      `json:"id"`
	MatchID                string      `json:"match_id"`
	Position               int         `json:"position"`
	Side                   rating.Side `json:"side"`
	Start                  time.Time   `json:"start"`
	End                    time.Time   `json:"end"`
	Status                 SlotStatus  `json:"status"`
	ConfirmedApplicationID *string     `json:"confirmed_application_id,omitempty"`
	LockToken              *string     `json:"-"`
	LockHolder             *string     `json:"lock_holder,omitempty"`
	LockExpiresAt          *time.Time  `json:"lock_expires_at,omitempty"`
}

// Application is a user's request to occupy a slot.
type Application struct {
	ID          string            `json:"id"`
	SlotID      string            `json:"slot_id"`
	MatchID     string            `json:"match_id"`
	ApplicantID string            `json:"applicant_id"`
	GuestName   *string           `json:"guest_name,omitempty"`
	Status      ApplicationStatus `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Participant is one player of a result side. Guests have no UserID.
type Participant struct {
	UserID    string `json:"user_id,omitempty"`
	GuestName string `json:"guest_name,omitempty"`
}

// Resolution is the outcome of a dispute.
type Resolution string

const (
	ResolutionConfirm  Resolution = "CONFIRM"
	ResolutionOverturn Resolution = "OVERTURN"
	ResolutionVoid     Resolution = "VOID"
)

// Result is the reported score of a match. Score is written from Side1's perspective.
type Result struct {
	ID            string        `json:"id"`
	MatchID       string        `json:"match_id"`
	Side1         []Participant `json:"side1"`
	Side2         []Participant `json:"side2"`
	Score         string        `json:"score"`
	Winner        rating.Side   `json:"winner"`
	SubmitterID   string        `json:"submitter_id"`
	Disputed      bool          `json:"disputed"`
	DisputedBy    *string       `json:"disputed_by,omitempty"`
	DisputedScore *string       `json:"disputed_score,omitempty"`
	Rated         bool          `json:"rated"`
	RatedWinner   rating.Side   `json:"rated_winner"`
	Resolution    *Resolution   `json:"resolution,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Cancellation is a record of a cancelled match, used for the free-cancellation quota.
type Cancellation struct {
	ID           string    `json:"id"`
	MatchID      string    `json:"match_id"`
	UserID       string    `json:"user_id"`
	Reason       string    `json:"reason"`
	WasConfirmed bool      `json:"was_confirmed"`
	Forced       bool      `json:"forced"`
	OverQuota    bool      `json:"over_quota"`
	Penalty      int       `json:"penalty"`
	CreatedAt    time.Time `json:"created_at"`
}
