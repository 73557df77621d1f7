package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteDatabase struct {
	db               *sql.DB
	connectionString string
}

func NewSQLiteDatabase(connectionString string) (*SQLiteDatabase, error) {
	db, err := sql.Open("sqlite", connectionString)
	if err != nil {
		return nil, err
	}
	// in-memory databases exist per connection
	if connectionString == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	return &SQLiteDatabase{
		db:               db,
		connectionString: connectionString,
	}, nil
}

func (s *SQLiteDatabase) CreateDatabase() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS history (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		session_id TEXT NOT NULL,
		assistant TEXT NOT NULL,
		kind TEXT NOT NULL,
		prompt TEXT NOT NULL,
		response TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		tone TEXT NOT NULL DEFAULT '',
		fields TEXT,
		created_at INTEGER NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_history_session ON history (session_id, seq)`)
	return err
}

func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteDatabase) DoesDatabaseExist() bool {
	// SQLite creates the file on connect, so a successful ping is enough
	return s.db.Ping() == nil
}

func (s *SQLiteDatabase) AppendRecord(ctx context.Context, sessionID string, record *Record) (*Record, error) {
	stored, err := prepareRecord(sessionID, record)
	if err != nil {
		return nil, err
	}

	var fields []byte
	if stored.Fields != nil {
		if fields, err = json.Marshal(stored.Fields); err != nil {
			return nil, fmt.Errorf("failed to encode record fields: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO history
		(id, session_id, assistant, kind, prompt, response, category, tone, fields, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stored.ID, sessionID, stored.Assistant, string(stored.Kind), stored.Prompt, stored.Response,
		stored.Category, stored.Tone, nullableString(fields), stored.CreatedAt.UnixNano())
	if err != nil {
		return nil, err
	}
	return stored.clone(), nil
}

func (s *SQLiteDatabase) GetRecords(ctx context.Context, sessionID string) ([]*Record, error) {
	if sessionID == "" {
		return nil, ErrMissingSession
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, assistant, kind, prompt, response, category, tone, fields, created_at
		FROM history WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close() // Explicitly ignore error as we're already returning an error from the function
	}()

	records := []*Record{}
	for rows.Next() {
		var (
			r         Record
			kind      string
			fields    sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&r.ID, &r.Assistant, &kind, &r.Prompt, &r.Response, &r.Category, &r.Tone, &fields, &createdAt); err != nil {
			return nil, err
		}
		r.SessionID = sessionID
		r.Kind = Kind(kind)
		r.CreatedAt = time.Unix(0, createdAt).UTC()
		if fields.Valid && fields.String != "" {
			if err := json.Unmarshal([]byte(fields.String), &r.Fields); err != nil {
				return nil, fmt.Errorf("failed to decode fields of record %s: %w", r.ID, err)
			}
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

func (s *SQLiteDatabase) DeleteRecord(ctx context.Context, sessionID string, index int) error {
	if sessionID == "" {
		return ErrMissingSession
	}
	if index < 0 {
		return ErrIndexOutOfRange
	}

	var seq int64
	err := s.db.QueryRowContext(ctx, `SELECT seq FROM history WHERE session_id = ? ORDER BY seq ASC LIMIT 1 OFFSET ?`,
		sessionID, index).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrIndexOutOfRange
	}
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM history WHERE seq = ?`, seq)
	return err
}

func (s *SQLiteDatabase) ClearRecords(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrMissingSession
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE session_id = ?`, sessionID)
	return err
}

func nullableString(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}
