package database

import (
	"fmt"
	"log/slog"
	"time"
)

const (
	TypeMemory = "memory"
	TypeSQLite = "sqlite"
	TypeRedis  = "redis"
)

// NewDatabase creates the history backend named by databaseType. ttl only
// applies to redis, where each session list expires after inactivity.
func NewDatabase(databaseType, connectionString string, ttl time.Duration) (database HistoryService, err error) {
	switch databaseType {
	case "", TypeMemory:
		database = NewMemoryDatabase()
	case TypeSQLite:
		database, err = NewSQLiteDatabase(connectionString)
	case TypeRedis:
		database, err = NewRedisDatabase(connectionString, ttl)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", databaseType)
	}
	if err != nil {
		return nil, err
	}

	slog.Debug("initializing history schema", "type", databaseType)
	if err = database.CreateDatabase(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	return database, nil
}
