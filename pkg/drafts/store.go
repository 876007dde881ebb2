// Package drafts persists in-progress page answers so a participant can
// leave a page and come back to it.
package drafts

import (
	"context"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/zfogg/searchstudy/pkg/logger"
	"github.com/zfogg/searchstudy/pkg/pages"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ParticipantSource yields the current participant id
type ParticipantSource interface {
	GetOrCreateParticipantID() string
}

// Store reads and writes drafts for the current participant. Failures are
// logged and swallowed; a lost draft never blocks the participant.
type Store struct {
	backend      Backend
	participants ParticipantSource

	mu    sync.Mutex
	owner string
	seen  map[pages.PageID][]byte
}

// NewStore returns a Store over backend
func NewStore(backend Backend, participants ParticipantSource) *Store {
	return &Store{backend: backend, participants: participants, seen: make(map[pages.PageID][]byte)}
}

// scope returns the current participant id and drops snapshots that were
// read under a different one
func (s *Store) scope() string {
	pid := s.participants.GetOrCreateParticipantID()
	s.mu.Lock()
	defer s.mu.Unlock()
	if pid != s.owner {
		s.owner = pid
		s.seen = make(map[pages.PageID][]byte)
	}
	return pid
}

func (s *Store) remember(pid string, page pages.PageID, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if pid != s.owner {
		return
	}
	if data == nil {
		delete(s.seen, page)
		return
	}
	s.seen[page] = data
}

// LoadDraft returns the saved draft for page, or nil when there is none
func (s *Store) LoadDraft(ctx context.Context, page pages.PageID) pages.Page {
	pid := s.scope()

	data, err := s.backend.Load(ctx, pid, page)
	if err != nil {
		logger.Warn("Failed to load draft", "page", page, "err", err)
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	p, err := pages.Decode(page, data)
	if err != nil {
		logger.Warn("Discarding unreadable draft", "page", page, "err", err)
		return nil
	}
	s.remember(pid, page, data)
	return p
}

// SaveDraft stores p as the draft for its page
func (s *Store) SaveDraft(ctx context.Context, p pages.Page) {
	data, err := json.Marshal(p)
	if err != nil {
		logger.Warn("Failed to encode draft", "page", p.PageID(), "err", err)
		return
	}
	if err := s.save(ctx, p.PageID(), data); err != nil {
		logger.Warn("Failed to save draft", "page", p.PageID(), "err", err)
	}
}

func (s *Store) save(ctx context.Context, page pages.PageID, data []byte) error {
	pid := s.scope()
	if err := s.backend.Save(ctx, pid, page, data); err != nil {
		return err
	}
	s.remember(pid, page, data)
	return nil
}

// ClearDraft removes the draft for page
func (s *Store) ClearDraft(ctx context.Context, page pages.PageID) {
	pid := s.scope()
	if err := s.backend.Clear(ctx, pid, page); err != nil {
		logger.Warn("Failed to clear draft", "page", page, "err", err)
		return
	}
	s.remember(pid, page, nil)
}

// ClearAll removes every draft of the current participant
func (s *Store) ClearAll(ctx context.Context) {
	pid := s.scope()
	if err := s.backend.ClearAll(ctx, pid); err != nil {
		logger.Warn("Failed to clear drafts", "err", err)
		return
	}
	s.mu.Lock()
	s.seen = make(map[pages.PageID][]byte)
	s.mu.Unlock()
}

// HasDraft reports whether a draft exists for page
func (s *Store) HasDraft(ctx context.Context, page pages.PageID) bool {
	return s.LoadDraft(ctx, page) != nil
}

// snapshot returns the last draft bytes read or written for page under the
// current participant
func (s *Store) snapshot(page pages.PageID) []byte {
	pid := s.scope()
	s.mu.Lock()
	defer s.mu.Unlock()
	if pid != s.owner {
		return nil
	}
	return s.seen[page]
}
