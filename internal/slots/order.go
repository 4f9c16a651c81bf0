package slots

import (
	"github.com/elliotchance/pie/v2"
	"github.com/mauv0809/courtmatch/internal/match"
)

// Ordered returns apps sorted by submission time, ties broken by id.
func Ordered(apps []match.Application) []match.Application {
	return pie.SortUsing(apps, func(a, b match.Application) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// WithStatus returns the apps in the given status, preserving order.
func WithStatus(apps []match.Application, status match.ApplicationStatus) []match.Application {
	return pie.Filter(apps, func(a match.Application) bool {
		return a.Status == status
	})
}

// Waitlist returns the slot's WAITLISTED applications, head of the queue first.
func Waitlist(apps []match.Application) []match.Application {
	return Ordered(WithStatus(apps, match.ApplicationWaitlisted))
}
