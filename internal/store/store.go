// Package store provides storage backends for interview records and
// eligibility verdicts: SQLite and Postgres for persistence, plus an
// in-memory store for tests and ephemeral deployments.
package store

import (
	"fmt"
	"sort"
	"sync"

	"github.com/medscreen/medscreen/internal/models"
)

// Store persists completed interviews and their verdicts.
type Store interface {
	SaveInterview(rec *models.InterviewRecord) error
	GetInterview(participantID string) (*models.InterviewRecord, error)
	ListInterviews() ([]models.InterviewRecord, error)
	SaveVerdict(v *models.EligibilityVerdict) error
	GetVerdict(sessionID string) (*models.EligibilityVerdict, error)
	Close() error
}

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = fmt.Errorf("record not found")

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithDSN sets the database connection string. For SQLite this is the
// database file path; for Postgres a connection URL.
func WithDSN(dsn string) Option {
	return func(o *Opts) { o.DSN = dsn }
}

// InMemoryStore keeps everything in maps guarded by a mutex. Safe for
// concurrent use.
type InMemoryStore struct {
	mu         sync.RWMutex
	interviews map[string]models.InterviewRecord // keyed by session ID
	verdicts   map[string]models.EligibilityVerdict
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		interviews: make(map[string]models.InterviewRecord),
		verdicts:   make(map[string]models.EligibilityVerdict),
	}
}

func (s *InMemoryStore) SaveInterview(rec *models.InterviewRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interviews[rec.SessionID] = *rec
	return nil
}

// GetInterview returns the most recently updated interview for the
// participant.
func (s *InMemoryStore) GetInterview(participantID string) (*models.InterviewRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *models.InterviewRecord
	for _, rec := range s.interviews {
		if rec.ParticipantID != participantID {
			continue
		}
		if found == nil || rec.UpdatedAt.After(found.UpdatedAt) {
			r := rec
			found = &r
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: interview for participant %s", ErrNotFound, participantID)
	}
	return found, nil
}

func (s *InMemoryStore) ListInterviews() ([]models.InterviewRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.InterviewRecord, 0, len(s.interviews))
	for _, rec := range s.interviews {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *InMemoryStore) SaveVerdict(v *models.EligibilityVerdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verdicts[v.SessionID] = *v
	return nil
}

func (s *InMemoryStore) GetVerdict(sessionID string) (*models.EligibilityVerdict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.verdicts[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: verdict for session %s", ErrNotFound, sessionID)
	}
	return &v, nil
}

func (s *InMemoryStore) Close() error { return nil }
