package database

import (
	"context"
	"sync"
)

// MemoryDatabase keeps history in process memory, one slice per session
type MemoryDatabase struct {
	mu       sync.RWMutex
	sessions map[string][]*Record
}

func NewMemoryDatabase() *MemoryDatabase {
	return &MemoryDatabase{sessions: make(map[string][]*Record)}
}

func (m *MemoryDatabase) CreateDatabase() error {
	return nil
}

func (m *MemoryDatabase) DoesDatabaseExist() bool {
	return true
}

func (m *MemoryDatabase) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = make(map[string][]*Record)
	return nil
}

func (m *MemoryDatabase) AppendRecord(_ context.Context, sessionID string, record *Record) (*Record, error) {
	stored, err := prepareRecord(sessionID, record)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[sessionID] = append(m.sessions[sessionID], stored)
	m.mu.Unlock()

	return stored.clone(), nil
}

func (m *MemoryDatabase) GetRecords(_ context.Context, sessionID string) ([]*Record, error) {
	if sessionID == "" {
		return nil, ErrMissingSession
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.sessions[sessionID]
	records := make([]*Record, 0, len(stored))
	for _, r := range stored {
		records = append(records, r.clone())
	}
	return records, nil
}

func (m *MemoryDatabase) DeleteRecord(_ context.Context, sessionID string, index int) error {
	if sessionID == "" {
		return ErrMissingSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := m.sessions[sessionID]
	if index < 0 || index >= len(stored) {
		return ErrIndexOutOfRange
	}
	remaining := make([]*Record, 0, len(stored)-1)
	remaining = append(remaining, stored[:index]...)
	remaining = append(remaining, stored[index+1:]...)
	m.sessions[sessionID] = remaining
	return nil
}

func (m *MemoryDatabase) ClearRecords(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrMissingSession
	}
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	return nil
}
