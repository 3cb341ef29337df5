// Package state holds the per-room shared documents and their on-disk
// persistence, one JSON file per room.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/roomkit/roomd/internal/domain"
	"github.com/roomkit/roomd/pkg/metrics"
)

type entry struct {
	mu  sync.Mutex
	doc domain.Document // nil until loaded
}

// Store keeps the resident room documents and serializes conflicting
// access per room; distinct rooms load, merge and persist concurrently.
type Store struct {
	dir     string
	persist bool

	mu    sync.Mutex
	rooms map[string]*entry
}

// New creates a store over dir. With persist=false the store is
// memory-only: nothing is read from or written to disk.
func New(dir string, persist bool) *Store {
	return &Store{
		dir:     dir,
		persist: persist,
		rooms:   make(map[string]*entry),
	}
}

// Load returns a snapshot of roomID's document, reading the backing
// file on first access. A missing file is an empty document; only
// unreadable or corrupt content is an error.
func (s *Store) Load(roomID string) (domain.Document, error) {
	e := s.entry(roomID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.ensureLoadedLocked(roomID, e); err != nil {
		return nil, err
	}
	return e.doc.Clone(), nil
}

// Merge applies a field-level last-write-wins update and persists the
// result synchronously. The returned snapshot reflects the in-memory
// merge even when the disk write fails, in which case the error reports
// the divergence.
func (s *Store) Merge(roomID string, partial domain.Document) (domain.Document, error) {
	e := s.entry(roomID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.ensureLoadedLocked(roomID, e); err != nil {
		return nil, err
	}
	e.doc.Merge(partial)
	metrics.StateMergesTotal.Inc()

	if err := s.save(roomID, e.doc); err != nil {
		return e.doc.Clone(), err
	}
	return e.doc.Clone(), nil
}

// Delete evicts the resident document and removes its backing file.
func (s *Store) Delete(roomID string) error {
	s.mu.Lock()
	e, resident := s.rooms[roomID]
	delete(s.rooms, roomID)
	s.mu.Unlock()

	if resident {
		// Let an in-flight merge on this room finish before the file
		// goes away.
		e.mu.Lock()
		resident = e.doc != nil
		e.mu.Unlock()
	}

	path := s.path(roomID)
	err := os.Remove(path)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		if resident {
			return nil
		}
		return domain.ErrRoomNotFound
	default:
		return fmt.Errorf("%w: remove %s: %v", domain.ErrPersistence, path, err)
	}
}

func (s *Store) entry(roomID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.rooms[roomID]
	if !ok {
		e = &entry{}
		s.rooms[roomID] = e
	}
	return e
}

func (s *Store) ensureLoadedLocked(roomID string, e *entry) error {
	if e.doc != nil {
		return nil
	}
	if !s.persist {
		e.doc = domain.Document{}
		return nil
	}

	path := s.path(roomID)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		e.doc = domain.Document{}
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", domain.ErrPersistence, path, err)
	}

	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrPersistence, path, err)
	}
	if doc == nil {
		doc = domain.Document{}
	}
	e.doc = doc
	return nil
}

// save writes the document to a temp file and renames it into place, so
// a crash mid-write never leaves a half-written file visible.
func (s *Store) save(roomID string, doc domain.Document) error {
	if !s.persist {
		return nil
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", domain.ErrPersistence, roomID, err)
	}

	tmp, err := os.CreateTemp(s.dir, roomID+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: temp file for %s: %v", domain.ErrPersistence, roomID, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: write %s: %v", domain.ErrPersistence, roomID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: close %s: %v", domain.ErrPersistence, roomID, err)
	}
	if err := os.Rename(tmp.Name(), s.path(roomID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: rename %s: %v", domain.ErrPersistence, roomID, err)
	}
	return nil
}

func (s *Store) path(roomID string) string {
	return filepath.Join(s.dir, roomID+".json")
}
