// Package history keeps an in-memory record of finished analysis runs for
// the lifetime of the process.
package history

import (
	"errors"
	"fmt"
	"sync"

	"github.com/dusk-indust/analyst/internal/orchestrator"
)

// DefaultLimit is the number of runs kept when no limit is configured.
const DefaultLimit = 50

// ErrRunNotFound is returned by Get for unknown or evicted run IDs.
var ErrRunNotFound = errors.New("history: run not found")

// ErrInvalidPageToken is returned by List when the token names no stored run.
var ErrInvalidPageToken = errors.New("history: invalid page token")

// Compile-time interface check.
var _ orchestrator.Recorder = (*Store)(nil)

// ListRequest filters and paginates List.
type ListRequest struct {
	// Phase keeps only runs in this terminal phase when non-empty.
	Phase orchestrator.Phase
	// PageSize <= 0 returns every matching run.
	PageSize int
	// PageToken is the ID of the last run of the previous page.
	PageToken string
}

// ListResponse is one page of runs in recording order.
type ListResponse struct {
	Runs          []orchestrator.Snapshot `json:"runs"`
	TotalSize     int                     `json:"totalSize"`
	NextPageToken string                  `json:"nextPageToken,omitempty"`
}

// Store is a concurrency-safe, bounded record of runs. Runs are kept in a
// map keyed by ID with a separate slice holding recording order; once the
// limit is reached the oldest run is evicted.
type Store struct {
	mu    sync.RWMutex
	limit int
	runs  map[string]orchestrator.Snapshot
	order []string
}

// NewStore returns a Store holding at most limit runs. A limit <= 0 uses
// DefaultLimit.
func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Store{
		limit: limit,
		runs:  make(map[string]orchestrator.Snapshot),
		order: make([]string, 0, limit),
	}
}

// Record stores a copy of snap. Snapshots without a run ID are ignored.
// Recording an existing ID replaces it in place.
func (s *Store) Record(snap orchestrator.Snapshot) {
	if snap.RunID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[snap.RunID]; exists {
		s.runs[snap.RunID] = snap.Clone()
		return
	}
	for len(s.order) >= s.limit {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.runs, oldest)
	}
	s.runs[snap.RunID] = snap.Clone()
	s.order = append(s.order, snap.RunID)
}

// Get returns a copy of the run with the given ID.
func (s *Store) Get(id string) (orchestrator.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.runs[id]
	if !ok {
		return orchestrator.Snapshot{}, fmt.Errorf("%w: %q", ErrRunNotFound, id)
	}
	return snap.Clone(), nil
}

// Len returns the number of stored runs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// List returns runs matching the request in recording order.
func (s *Store) List(req ListRequest) (ListResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	startIdx := 0
	if req.PageToken != "" {
		found := false
		for i, id := range s.order {
			if id == req.PageToken {
				startIdx = i + 1
				found = true
				break
			}
		}
		if !found {
			return ListResponse{}, fmt.Errorf("%w %q", ErrInvalidPageToken, req.PageToken)
		}
	}

	total := 0
	matched := []orchestrator.Snapshot{}
	for i, id := range s.order {
		snap := s.runs[id]
		if req.Phase != "" && snap.State.Phase != req.Phase {
			continue
		}
		total++
		if i >= startIdx {
			matched = append(matched, snap.Clone())
		}
	}

	var next string
	if req.PageSize > 0 && len(matched) > req.PageSize {
		next = matched[req.PageSize-1].RunID
		matched = matched[:req.PageSize]
	}

	return ListResponse{Runs: matched, TotalSize: total, NextPageToken: next}, nil
}
