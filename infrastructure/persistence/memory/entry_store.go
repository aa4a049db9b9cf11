// Package memory provides in-process stores for local runs and tests.
package memory

import (
	"context"
	"errors"
	"sync"

	"mindtrack/domain/journal"
	apperrors "mindtrack/pkg/errors"

	"github.com/google/uuid"
)

// EntryStore is an in-memory primary entry store
type EntryStore struct {
	mu      sync.RWMutex
	entries []journal.Entry
	failErr error
	creates int
}

// NewEntryStore creates an empty store
func NewEntryStore() *EntryStore {
	return &EntryStore{}
}

// FailWith makes subsequent writes fail with err; nil clears it
func (s *EntryStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// Create stores entry and returns it with an assigned id
func (s *EntryStore) Create(ctx context.Context, entry journal.Entry) ([]journal.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewStoreError("insert", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.creates++
	if s.failErr != nil {
		return nil, apperrors.NewStoreError("insert", s.failErr)
	}

	entry.ID = uuid.New().String()
	s.entries = append(s.entries, entry)
	return []journal.Entry{entry}, nil
}

// ListRecent returns at most limit entries of userID, newest first
func (s *EntryStore) ListRecent(ctx context.Context, userID string, limit int) ([]journal.Entry, error) {
	if limit <= 0 {
		return nil, apperrors.NewValidationError("limit must be positive")
	}
	entries, err := s.ListAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// ListAll returns every entry of userID, newest first
func (s *EntryStore) ListAll(ctx context.Context, userID string) ([]journal.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewStoreError("select", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]journal.Entry, 0)
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	journal.SortByCreatedDesc(out)
	return out, nil
}

// Ping always succeeds
func (s *EntryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// CreateCalls returns the number of Create calls
func (s *EntryStore) CreateCalls() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creates
}

// Entries returns a copy of everything stored
func (s *EntryStore) Entries() []journal.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]journal.Entry(nil), s.entries...)
}

// MirrorStore is an in-memory secondary store
type MirrorStore struct {
	mu       sync.RWMutex
	docs     map[string]journal.Entry
	failErr  error
	attempts int
}

// NewMirrorStore creates an empty mirror
func NewMirrorStore() *MirrorStore {
	return &MirrorStore{docs: make(map[string]journal.Entry)}
}

// FailWith makes subsequent mirrors fail with err; nil clears it
func (s *MirrorStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failErr = err
}

// Mirror stores a copy of entry keyed by its primary id. Mirroring the
// same id twice keeps one document.
func (s *MirrorStore) Mirror(ctx context.Context, entry journal.Entry) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewStoreError("mirror", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts++
	if s.failErr != nil {
		return apperrors.NewStoreError("mirror", s.failErr)
	}
	if entry.ID == "" {
		return apperrors.NewStoreError("mirror", errors.New("entry has no id"))
	}
	s.docs[entry.ID] = entry
	return nil
}

// Ping always succeeds
func (s *MirrorStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Attempts returns the number of Mirror calls
func (s *MirrorStore) Attempts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.attempts
}

// Documents returns a copy of the mirrored entries
func (s *MirrorStore) Documents() []journal.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]journal.Entry, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d)
	}
	return out
}
