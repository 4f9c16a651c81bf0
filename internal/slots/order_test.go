package slots_test

import (
	"testing"
	"time"

	"github.com/mauv0809/courtmatch/internal/match"
	"github.com/mauv0809/courtmatch/internal/slots"
	"github.com/stretchr/testify/assert"
)

func TestWaitlist(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	apps := []match.Application{
		{ID: "c", Status: match.ApplicationWaitlisted, CreatedAt: base.Add(time.Second)},
		{ID: "b", Status: match.ApplicationWaitlisted, CreatedAt: base},
		{ID: "x", Status: match.ApplicationRejected, CreatedAt: base},
		{ID: "a", Status: match.ApplicationWaitlisted, CreatedAt: base},
	}

	got := slots.Waitlist(apps)
	ids := make([]string, 0, len(got))
	for _, a := range got {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids, "oldest first, ties broken by id")
	assert.Equal(t, "c", apps[0].ID, "input is left untouched")
}
