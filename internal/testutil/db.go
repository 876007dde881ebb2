// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zfogg/searchstudy/internal/database"
	"github.com/zfogg/searchstudy/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// OpenDB returns a migrated in-memory SQLite database.
func OpenDB(tb testing.TB) *gorm.DB {
	tb.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(tb, err)

	sqlDB, err := db.DB()
	require.NoError(tb, err)
	// :memory: is per connection
	sqlDB.SetMaxOpenConns(1)

	require.NoError(tb, database.Migrate(db))
	tb.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// SeedParticipant inserts a participant row.
func SeedParticipant(tb testing.TB, db *gorm.DB, id string) *models.Participant {
	tb.Helper()
	p := &models.Participant{ID: id, DeviceType: "desktop"}
	require.NoError(tb, db.Create(p).Error)
	return p
}

// SeedSession inserts a session row for participantID. A zero end leaves it open.
func SeedSession(tb testing.TB, db *gorm.DB, participantID string, start time.Time, end *time.Time) *models.Session {
	tb.Helper()
	s := &models.Session{ParticipantID: participantID, SessionStartTime: start, SessionEndTime: end}
	require.NoError(tb, db.Create(s).Error)
	return s
}

// FixedClock returns a controllable clock for services that accept a now func.
type FixedClock struct {
	T time.Time
}

// Now returns the current fixed time.
func (c *FixedClock) Now() time.Time { return c.T }

// Advance moves the clock forward.
func (c *FixedClock) Advance(d time.Duration) { c.T = c.T.Add(d) }
