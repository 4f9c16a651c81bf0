package match

import (
	"context"
	"time"

	"github.com/mauv0809/courtmatch/internal/rating"
)

// Store is the persistence port of the engine. Every read and write happens inside a
// transaction; fn's error rolls the transaction back.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx exposes transactional access to matches, slots, applications, results,
// cancellations and the rating ledger.
type Tx interface {
	rating.LedgerTx

	InsertMatch(ctx context.Context, m *Match) error
	GetMatch(ctx context.Context, matchID string) (*Match, error)
	UpdateMatch(ctx context.Context, m *Match) error
	DeleteMatch(ctx context.Context, matchID string) error

	InsertSlot(ctx context.Context, s *Slot) error
	GetSlot(ctx context.Context, slotID string) (*Slot, error)
	ListSlots(ctx context.Context, matchID string) ([]Slot, error)
	// LockSlot moves an AVAILABLE slot, an expired LOCKED slot, or a slot already
	// held by holder to LOCKED. It reports whether the swap happened.
	LockSlot(ctx context.Context, slotID, token, holder string, expiresAt, now time.Time) (bool, error)
	// ConfirmSlot moves a slot LOCKED with token to CONFIRMED for applicationID.
	ConfirmSlot(ctx context.Context, slotID, token, applicationID string) (bool, error)
	// ReleaseSlot moves a slot LOCKED with token back to AVAILABLE.
	ReleaseSlot(ctx context.Context, slotID, token string) (bool, error)
	// ReopenSlot moves a slot back to AVAILABLE and clears its confirmed application.
	ReopenSlot(ctx context.Context, slotID string) error
	// ReleaseExpiredLocks moves every LOCKED slot whose hold expired at or before now to
	// AVAILABLE and returns the released slots.
	ReleaseExpiredLocks(ctx context.Context, now time.Time) ([]Slot, error)
	DeleteSlots(ctx context.Context, matchID string) error

	// InsertApplication fails with ErrConflict if the applicant already applied to the slot.
	InsertApplication(ctx context.Context, a *Application) error
	GetApplication(ctx context.Context, applicationID string) (*Application, error)
	// ListApplications returns a slot's applications ordered by creation time, then id.
	ListApplications(ctx context.Context, slotID string) ([]Application, error)
	ListMatchApplications(ctx context.Context, matchID string) ([]Application, error)
	UpdateApplicationStatus(ctx context.Context, applicationID string, status ApplicationStatus, now time.Time) error
	DeleteApplication(ctx context.Context, applicationID string) error
	DeleteApplications(ctx context.Context, matchID string) error
	// ListExpirableApplications returns PENDING and WAITLISTED applications of
	// PENDING or CONFIRMED matches whose slot started at or before now.
	ListExpirableApplications(ctx context.Context, now time.Time) ([]Application, error)

	// InsertResult fails with ErrConflict if the match already has a result.
	InsertResult(ctx context.Context, r *Result) error
	GetResult(ctx context.Context, resultID string) (*Result, error)
	GetResultByMatch(ctx context.Context, matchID string) (*Result, error)
	UpdateResult(ctx context.Context, r *Result) error
	DeleteResult(ctx context.Context, matchID string) error

	InsertCancellation(ctx context.Context, c *Cancellation) error
	// CountCancellations counts the user's non-forced cancellations of confirmed matches since since.
	CountCancellations(ctx context.Context, userID string, since time.Time) (int, error)
}
