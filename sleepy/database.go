package sleepy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	dbTypeSQLite   = "sqlite"
	dbTypePostgres = "postgres"
)

var (
	sqliteMaxOpenConns    = 1
	sqliteMaxIdleConns    = 1
	sqliteMaxConnLifetime = 5 * time.Minute
	sqliteExecPragma      = []string{
		"pragma journal_mode=WAL;",
		"pragma synchronous = normal;",
		"pragma temp_store = memory;",
		"pragma foreign_keys = ON;",
	}
)

// ModelUnixTime is an embeddable model with Unix timestamps for
// creation, update, and deletion.
type ModelUnixTime struct {
	CreatedAt int64          `gorm:"autoCreateTime:milli" json:"created_at,omitempty"`
	UpdatedAt int64          `gorm:"autoUpdateTime:milli" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

type ModelUintID struct {
	ID uint `gorm:"primaryKey" json:"id"`
}

// CommandInvocation records a single command dispatch, successful or
// not, backing the usage statistics commands and the status API.
type CommandInvocation struct {
	ModelUintID
	ModelUnixTime

	Command   string `gorm:"index" json:"command"`
	Extension string `gorm:"index" json:"extension"`
	UserID    string `gorm:"index" json:"user_id"`
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id"`
	Prefix    string `json:"prefix"`
	Failed    bool   `json:"failed"`

	// ErrorKind holds the error's type name when the invocation
	// failed, e.g. "MissingPermissionsError".
	ErrorKind string `json:"error_kind,omitempty"`
}

// CommandUsage is an aggregate row of invocation counts per command.
type CommandUsage struct {
	Command string `json:"command"`
	Uses    int64  `json:"uses"`
}

// CreateDB opens the bot database and runs migrations, logging at the
// default level. The init subcommand uses this to prepare a database
// ahead of the first run.
func CreateDB(
	ctx context.Context,
	databaseType string,
	database string,
) (*gorm.DB, error) {
	return openDatabase(
		ctx,
		databaseType,
		database,
		newLogHandler(os.Stdout, slog.LevelInfo),
		DefaultDatabaseSlowThreshold,
	)
}

// openDatabase opens and migrates the bot database. SQLite databases
// get WAL pragmas and a single-connection pool.
func openDatabase(
	ctx context.Context,
	databaseType string,
	database string,
	handler slog.Handler,
	slowThreshold time.Duration,
) (*gorm.DB, error) {
	gormLogger := newGORMLogger(handler, slowThreshold)
	dbLogger := slog.New(handler).With(loggerNameKey, "database")

	dbLogger.InfoContext(
		ctx,
		"opening database",
		"database_type", databaseType,
		"database", database,
	)

	db, err := getDB(databaseType, database, gormLogger)
	if err != nil {
		return nil, err
	}

	if databaseType == dbTypeSQLite {
		sqlDB, sqlErr := db.DB()
		if sqlErr != nil {
			return nil, sqlErr
		}
		sqlDB.SetMaxOpenConns(sqliteMaxOpenConns)
		sqlDB.SetMaxIdleConns(sqliteMaxIdleConns)
		sqlDB.SetConnMaxLifetime(sqliteMaxConnLifetime)

		for _, pragma := range sqliteExecPragma {
			if rv := db.WithContext(ctx).Exec(pragma); rv.Error != nil {
				return nil, fmt.Errorf(
					"error executing %q: %w", pragma, rv.Error,
				)
			}
		}
	}

	if err = db.WithContext(ctx).AutoMigrate(&CommandInvocation{}); err != nil {
		return nil, fmt.Errorf("error migrating database: %w", err)
	}
	return db, nil
}

func getDB(
	databaseType string,
	database string,
	gormLogger *gormStructuredLogger,
) (*gorm.DB, error) {
	switch databaseType {
	case dbTypeSQLite:
		parentDir := filepath.Dir(database)
		if parentDir != "" {
			if err := os.MkdirAll(parentDir, 0755); err != nil {
				if !errors.Is(err, os.ErrExist) {
					return nil, err
				}
			}
		}
		return gorm.Open(
			sqlite.Open(database),
			&gorm.Config{
				Logger: gormLogger,
				NowFunc: func() time.Time {
					return time.Now().UTC()
				},
			},
		)
	case dbTypePostgres:
		return gorm.Open(
			postgres.Open(database), &gorm.Config{
				Logger: gormLogger,
				NowFunc: func() time.Time {
					return time.Now().UTC()
				},
			},
		)
	default:
		return nil, fmt.Errorf(
			"unsupported database type: %s (must be %q or %q)",
			databaseType, dbTypeSQLite, dbTypePostgres,
		)
	}
}

// commandUsageCounts returns per-command invocation counts, most used
// first. limit <= 0 returns every command.
func commandUsageCounts(db *gorm.DB, limit int) ([]CommandUsage, error) {
	var usage []CommandUsage
	tx := db.Model(&CommandInvocation{}).
		Select("command, count(*) as uses").
		Group("command").
		Order("uses desc, command asc")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if rv := tx.Find(&usage); rv.Error != nil {
		return nil, rv.Error
	}
	return usage, nil
}

// invocationCounts returns the total and failed invocation counts
// recorded since the given time. A zero time counts everything.
func invocationCounts(db *gorm.DB, since time.Time) (
	total int64,
	failed int64,
	err error,
) {
	base := func() *gorm.DB {
		tx := db.Model(&CommandInvocation{})
		if !since.IsZero() {
			tx = tx.Where("created_at >= ?", since.UnixMilli())
		}
		return tx
	}
	if rv := base().Count(&total); rv.Error != nil {
		return 0, 0, rv.Error
	}
	if rv := base().Where("failed = ?", true).Count(&failed); rv.Error != nil {
		return 0, 0, rv.Error
	}
	return total, failed, nil
}
