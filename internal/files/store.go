// Package files is the flat file store living alongside the room state
// files in the data directory. Room state is the *.json files; anything
// else is user-uploaded content.
package files

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/roomkit/roomd/internal/domain"
)

type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// Save streams r into a file named by the sanitized base of name,
// rejecting content larger than limit bytes. A rejected or failed write
// leaves no partial file behind.
func (s *Store) Save(name string, r io.Reader, limit int64) (string, error) {
	name = SanitizeName(name)
	if name == "" {
		return "", fmt.Errorf("invalid filename")
	}

	path := filepath.Join(s.dir, name)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: create %s: %v", domain.ErrPersistence, name, err)
	}

	n, err := io.Copy(dst, io.LimitReader(r, limit+1))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("%w: write %s: %v", domain.ErrPersistence, name, err)
	}
	if n > limit {
		os.Remove(path)
		return "", domain.ErrFileTooLarge
	}
	return name, nil
}

// Path resolves name inside the store, refusing traversal outside it.
func (s *Store) Path(name string) (string, error) {
	path := filepath.Join(s.dir, filepath.Clean("/"+name))
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", domain.ErrFileNotFound
	}
	return path, nil
}

func (s *Store) Delete(name string) error {
	name = SanitizeName(name)
	path := filepath.Join(s.dir, name)

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return domain.ErrFileNotFound
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("%w: remove %s: %v", domain.ErrPersistence, name, err)
	}
	return nil
}

// List returns the names of stored files starting with prefix.
func (s *Store) List(prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: read dir: %v", domain.ErrPersistence, err)
	}
	out := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), prefix) {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// Rooms returns the room IDs that have a persisted document, and Files
// the non-room files, for the index endpoint.
func (s *Store) Rooms() ([]string, error) {
	return s.scan(true)
}

func (s *Store) Files() ([]string, error) {
	return s.scan(false)
}

func (s *Store) scan(rooms bool) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: read dir: %v", domain.ErrPersistence, err)
	}
	out := []string{}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		isRoom := strings.HasSuffix(e.Name(), ".json")
		if rooms && isRoom {
			out = append(out, strings.TrimSuffix(e.Name(), ".json"))
		} else if !rooms && !isRoom {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// SanitizeName strips directory components to keep uploads inside the
// store.
func SanitizeName(name string) string {
	cleaned := strings.ReplaceAll(name, "\\", "/")
	cleaned = filepath.Base(cleaned)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "." || cleaned == ".." || cleaned == "/" {
		return ""
	}
	return cleaned
}
