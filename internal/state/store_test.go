package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/roomkit/roomd/internal/domain"
)

func TestLoadMissingRoomIsEmpty(t *testing.T) {
	s := New(t.TempDir(), true)

	doc, err := s.Load("ghost")
	if err != nil {
		t.Fatalf("load of absent room should not fail: %v", err)
	}
	if len(doc) != 0 {
		t.Fatalf("expected empty document, got %v", doc)
	}
}

func TestMergeFieldLevelLastWriteWins(t *testing.T) {
	s := New(t.TempDir(), true)

	if _, err := s.Merge("r", domain.Document{"x": 1}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if _, err := s.Merge("r", domain.Document{"y": 2}); err != nil {
		t.Fatalf("merge: %v", err)
	}

	doc, err := s.Load("r")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc["x"] != 1 || doc["y"] != 2 {
		t.Fatalf("merge union broken: %v", doc)
	}

	if _, err := s.Merge("r", domain.Document{"x": 3}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	doc, _ = s.Load("r")
	if doc["x"] != 3 {
		t.Fatalf("x should be overwritten: %v", doc)
	}
}

func TestMergeSurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	s := New(dir, true)
	if _, err := s.Merge("lobby", domain.Document{"score": float64(10)}); err != nil {
		t.Fatalf("merge: %v", err)
	}

	// A fresh store over the same directory models a process restart.
	s2 := New(dir, true)
	doc, err := s2.Load("lobby")
	if err != nil {
		t.Fatalf("load after restart: %v", err)
	}
	if doc["score"] != float64(10) {
		t.Fatalf("persistence round trip broken: %v", doc)
	}
}

func TestConcurrentMergesKeepAllKeys(t *testing.T) {
	s := New(t.TempDir(), true)

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i)
			if _, err := s.Merge("r", domain.Document{key: i}); err != nil {
				t.Errorf("merge %s: %v", key, err)
			}
		}(i)
	}
	wg.Wait()

	doc, err := s.Load("r")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(doc) != n {
		t.Fatalf("lost updates: got %d keys, want %d: %v", len(doc), n, doc)
	}
}

func TestDistinctRoomsDoNotInterfere(t *testing.T) {
	s := New(t.TempDir(), true)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			roomID := fmt.Sprintf("room%d", i)
			if _, err := s.Merge(roomID, domain.Document{"i": i}); err != nil {
				t.Errorf("merge %s: %v", roomID, err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		doc, err := s.Load(fmt.Sprintf("room%d", i))
		if err != nil || len(doc) != 1 {
			t.Fatalf("room%d: doc=%v err=%v", i, doc, err)
		}
	}
}

func TestDeleteRemovesDocumentAndFile(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, true)

	if _, err := s.Merge("r", domain.Document{"x": 1}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if err := s.Delete("r"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "r.json")); !os.IsNotExist(err) {
		t.Fatalf("backing file should be gone, stat err=%v", err)
	}

	doc, err := s.Load("r")
	if err != nil {
		t.Fatalf("load after delete: %v", err)
	}
	if len(doc) != 0 {
		t.Fatalf("document should be recreated empty: %v", doc)
	}
}

func TestDeleteUnknownRoom(t *testing.T) {
	s := New(t.TempDir(), true)
	if err := s.Delete("nope"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("want ErrRoomNotFound, got %v", err)
	}
}

func TestCorruptFileIsPersistenceError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := New(dir, true)
	if _, err := s.Load("bad"); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("want ErrPersistence, got %v", err)
	}
	if _, err := s.Merge("bad", domain.Document{"x": 1}); !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("merge over corrupt file: want ErrPersistence, got %v", err)
	}
}

func TestPersistenceDisabledStaysInMemory(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, false)

	if _, err := s.Merge("r", domain.Document{"x": 1}); err != nil {
		t.Fatalf("merge: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("memory-only store wrote files: %v", entries)
	}

	doc, err := s.Load("r")
	if err != nil || doc["x"] != 1 {
		t.Fatalf("in-memory document lost: doc=%v err=%v", doc, err)
	}
}

func TestMergeDoesNotLeaveTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, true)

	for i := 0; i < 5; i++ {
		if _, err := s.Merge("r", domain.Document{fmt.Sprintf("k%d", i): i}); err != nil {
			t.Fatalf("merge: %v", err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "r.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected only r.json, got %v", names)
	}
}
