package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDB_CreatesTables(t *testing.T) {
	db, teardown, err := InitDB(":memory:", "", "")
	require.NoError(t, err, "InitDB should not return an error")
	defer teardown()

	for _, table := range []string{"matches", "match_slots", "applications", "results", "user_stats", "elo_log", "cancellations"} {
		var name string
		err = db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "Querying for %s table should not produce an error", table)
		assert.Equal(t, table, name)
	}
}

func TestInitDB_ConfirmedApplicationIsUniquePerSlot(t *testing.T) {
	db, teardown, err := InitDB(":memory:", "", "")
	require.NoError(t, err)
	defer teardown()

	_, err = db.Exec(`INSERT INTO matches (id, creator_id, court_id, match_date, format, status, created_at, updated_at) VALUES ('m1', 'u1', 'c1', 0, 'SINGLES', 'PENDING', 0, 0)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO match_slots (id, match_id, position, start_time, end_time, status) VALUES ('s1', 'm1', 0, 0, 1, 'AVAILABLE')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO applications (id, slot_id, match_id, applicant_id, status, created_at, updated_at) VALUES ('a1', 's1', 'm1', 'u2', 'CONFIRMED', 0, 0)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO applications (id, slot_id, match_id, applicant_id, status, created_at, updated_at) VALUES ('a2', 's1', 'm1', 'u3', 'CONFIRMED', 0, 0)`)
	assert.Error(t, err, "a second confirmed application on the same slot must be rejected")

	_, err = db.Exec(`INSERT INTO applications (id, slot_id, match_id, applicant_id, status, created_at, updated_at) VALUES ('a3', 's1', 'm1', 'u2', 'PENDING', 0, 0)`)
	assert.Error(t, err, "an applicant may apply to a slot only once")
}

func TestInitDB_IsIdempotent(t *testing.T) {
	db, teardown, err := InitDB(":memory:", "", "")
	require.NoError(t, err)
	defer teardown()

	require.NoError(t, migrate(db, "sqlite3"))
}
