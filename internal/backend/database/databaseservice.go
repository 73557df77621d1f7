package database

import "context"

// HistoryService stores the per-session history list. Records are returned in
// insertion order; indices passed to DeleteRecord refer to that order.
type HistoryService interface {
	CreateDatabase() error
	DoesDatabaseExist() bool
	Close() error

	// AppendRecord stores a copy of record at the end of the session's list
	// and returns the stored copy with ID and CreatedAt populated.
	AppendRecord(ctx context.Context, sessionID string, record *Record) (*Record, error)
	GetRecords(ctx context.Context, sessionID string) ([]*Record, error)
	// DeleteRecord removes exactly the record at index, or returns ErrIndexOutOfRange
	DeleteRecord(ctx context.Context, sessionID string, index int) error
	ClearRecords(ctx context.Context, sessionID string) error
}
