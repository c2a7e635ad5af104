package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Store keeps the question list in a single JSON file.
//
// Mutations are serialized by the store's mutex and every write replaces the
// file through a rename, so readers never see a half-written list. Two Store
// values pointing at the same file do not coordinate with each other.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load returns the stored questions in insertion order. A missing file is an
// empty list; a file that cannot be decoded is ErrCorruptStore.
func (s *Store) Load() ([]QuizQuestion, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []QuizQuestion{}, nil
		}
		return nil, fmt.Errorf("%w: read %s: %v", ErrStoreIO, s.path, err)
	}

	var questions []QuizQuestion
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptStore, s.path, err)
	}
	// A literal null decodes without error but is not a list.
	if questions == nil {
		return nil, fmt.Errorf("%w: %s: want a list of questions, got null", ErrCorruptStore, s.path)
	}
	for i, q := range questions {
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %s: question %d: %v", ErrCorruptStore, s.path, i, err)
		}
	}
	return questions, nil
}

// Snapshot loads the list while holding the write lock, so it never falls
// between the read and the write of a concurrent mutation.
func (s *Store) Snapshot() ([]QuizQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.Load()
}

func (s *Store) Count() (int, error) {
	questions, err := s.Load()
	if err != nil {
		return 0, err
	}
	return len(questions), nil
}

// Append validates q and adds it to the end of the list.
func (s *Store) Append(q QuizQuestion) error {
	if err := q.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	questions, err := s.Load()
	if err != nil {
		return err
	}
	return s.save(append(questions, q))
}

// AppendMany validates every question and persists the valid ones with a
// single rewrite. Invalid questions are skipped and reported by their index in
// qs. When the rewrite fails nothing is appended and the error is returned.
func (s *Store) AppendMany(qs []QuizQuestion) (int, []ItemError, error) {
	var (
		valid   []QuizQuestion
		invalid []ItemError
	)
	for i, q := range qs {
		if err := q.Validate(); err != nil {
			invalid = append(invalid, ItemError{Index: i, Err: err})
			continue
		}
		valid = append(valid, q)
	}
	if len(valid) == 0 {
		return 0, invalid, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	questions, err := s.Load()
	if err != nil {
		return 0, invalid, err
	}
	if err := s.save(append(questions, valid...)); err != nil {
		return 0, invalid, err
	}
	return len(valid), invalid, nil
}

// Clear replaces the stored list with an empty one.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save([]QuizQuestion{})
}

// save writes questions to a temp file next to the store and renames it over
// the store file. Callers hold s.mu.
func (s *Store) save(questions []QuizQuestion) error {
	payload, err := json.MarshalIndent(questions, "", "    ")
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrStoreIO, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreIO, err)
	}

	tmpPath := filepath.Join(dir, "."+filepath.Base(s.path)+"."+uuid.NewString()+".tmp")
	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreIO, err)
	}
	_, writeErr := file.Write(payload)
	syncErr := file.Sync()
	closeErr := file.Close()
	for _, err := range []error{writeErr, syncErr, closeErr} {
		if err != nil {
			_ = os.Remove(tmpPath)
			return fmt.Errorf("%w: write %s: %v", ErrStoreIO, tmpPath, err)
		}
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: replace %s: %v", ErrStoreIO, s.path, err)
	}
	return nil
}
