package sleepy

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := CreateDB(
		context.Background(),
		dbTypeSQLite,
		filepath.Join(t.TempDir(), fmt.Sprintf("%s.sqlite3", t.Name())),
	)
	require.NoError(t, err)
	return db
}

func seedInvocations(t testing.TB, db *gorm.DB, command string, total, failed int) {
	t.Helper()

	for i := 0; i < total; i++ {
		record := CommandInvocation{
			Command:   command,
			Extension: "Test",
			UserID:    "1",
			ChannelID: "300000000000000001",
			Prefix:    "!",
			Failed:    i < failed,
		}
		require.NoError(t, db.Create(&record).Error)
	}
}

func TestCreateDBMigrates(t *testing.T) {
	db := newTestDB(t)
	assert.True(t, db.Migrator().HasTable(&CommandInvocation{}))
}

func TestGetDBUnsupportedType(t *testing.T) {
	_, err := getDB("mysql", "dsn", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestCommandUsageCounts(t *testing.T) {
	db := newTestDB(t)

	seedInvocations(t, db, "ping", 5, 0)
	seedInvocations(t, db, "xkcd", 3, 1)
	seedInvocations(t, db, "avatar", 3, 0)

	usage, err := commandUsageCounts(db, 0)
	require.NoError(t, err)
	require.Len(t, usage, 3)

	assert.Equal(t, CommandUsage{Command: "ping", Uses: 5}, usage[0])
	// Ties break alphabetically.
	assert.Equal(t, CommandUsage{Command: "avatar", Uses: 3}, usage[1])
	assert.Equal(t, CommandUsage{Command: "xkcd", Uses: 3}, usage[2])

	limited, err := commandUsageCounts(db, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "ping", limited[0].Command)
}

func TestInvocationCounts(t *testing.T) {
	db := newTestDB(t)

	seedInvocations(t, db, "ping", 4, 2)

	total, failed, err := invocationCounts(db, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Equal(t, int64(2), failed)

	// A future cutoff excludes everything already recorded.
	total, failed, err = invocationCounts(db, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Zero(t, failed)
}

func TestRecordInvocation(t *testing.T) {
	bot := newTestBot(t)
	bot.db = newTestDB(t)

	cmd := stubCommand("greet")
	cmd.Extension = "Demo"

	ctx := newTestContext(t, bot, cmd, newTestMessage("1", "!greet"))
	bot.recordInvocation(ctx, nil)
	bot.recordInvocation(ctx, &BadArgumentError{Message: "nope"})

	var records []CommandInvocation
	require.NoError(
		t,
		bot.db.Order("id asc").Find(&records).Error,
	)
	require.Len(t, records, 2)

	assert.Equal(t, "greet", records[0].Command)
	assert.Equal(t, "Demo", records[0].Extension)
	assert.Equal(t, "1", records[0].UserID)
	assert.Equal(t, "!", records[0].Prefix)
	assert.False(t, records[0].Failed)
	assert.Empty(t, records[0].ErrorKind)

	assert.True(t, records[1].Failed)
	assert.Equal(t, "BadArgumentError", records[1].ErrorKind)
}

func TestRecordInvocationWithoutDatabase(t *testing.T) {
	bot := newTestBot(t)

	ctx := newTestContext(t, bot, stubCommand("greet"), newTestMessage("1", "!greet"))
	assert.NotPanics(t, func() {
		bot.recordInvocation(ctx, nil)
	})
}

func TestBotStatsRequireDatabase(t *testing.T) {
	bot := newTestBot(t)

	_, err := bot.CommandUsage(0)
	require.Error(t, err)

	_, _, err = bot.InvocationStats(time.Time{})
	require.Error(t, err)
}

func TestBotCommandUsage(t *testing.T) {
	bot := newTestBot(t)
	bot.db = newTestDB(t)

	seedInvocations(t, bot.db, "ping", 2, 0)

	usage, err := bot.CommandUsage(0)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, int64(2), usage[0].Uses)

	total, failed, err := bot.InvocationStats(time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Zero(t, failed)
}
