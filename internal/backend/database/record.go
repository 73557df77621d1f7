package database

import (
	"errors"
	"time"
)

// Kind tells which assistant flavour produced a record
type Kind string

const (
	KindAnalysis Kind = "analysis"
	KindScenes   Kind = "scenes"
	KindIdea     Kind = "idea"
)

var (
	ErrIndexOutOfRange = errors.New("history index out of range")
	ErrMissingSession  = errors.New("session id is required")
)

// Record is one entry of a session's history. Analysis and scene records use
// Prompt/Response; idea records additionally carry Category, Tone and the
// refined Fields.
type Record struct {
	ID        string            `json:"id"`
	SessionID string            `json:"-"`
	Assistant string            `json:"assistant"`
	Kind      Kind              `json:"kind"`
	Prompt    string            `json:"prompt"`
	Response  string            `json:"response"`
	Category  string            `json:"category,omitempty"`
	Tone      string            `json:"tone,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

func (r *Record) clone() *Record {
	c := *r
	if r.Fields != nil {
		c.Fields = make(map[string]string, len(r.Fields))
		for k, v := range r.Fields {
			c.Fields[k] = v
		}
	}
	return &c
}

// prepareRecord assigns identity and timestamp and returns a private copy for storage
func prepareRecord(sessionID string, record *Record) (*Record, error) {
	if sessionID == "" {
		return nil, ErrMissingSession
	}
	stored := record.clone()
	stored.SessionID = sessionID
	if stored.ID == "" {
		id, err := generateID()
		if err != nil {
			return nil, err
		}
		stored.ID = id
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	return stored, nil
}
