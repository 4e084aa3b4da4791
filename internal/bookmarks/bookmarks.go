// Package bookmarks is the whole-file JSON store for user bookmarks:
// load, modify, save, with atomic replacement on every write.
package bookmarks

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"movie-review-service/internal/fsutil"
)

var (
	// ErrNotFound is returned when a bookmark id does not exist.
	ErrNotFound = errors.New("bookmark not found")
	// ErrDuplicate is returned when the user already bookmarked the movie.
	ErrDuplicate = errors.New("movie already bookmarked")
)

// Bookmark marks one movie saved by one user.
type Bookmark struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	MovieID   string    `json:"movie_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store reads and writes the bookmarks JSON file. Unlike the review store,
// writes here are load-modify-save over the whole file, so a single mutex
// serializes them.
type Store struct {
	path string
	mu   sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// load returns all bookmarks. A missing or corrupted file reads as empty.
func (s *Store) load() ([]Bookmark, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Bookmark{}, nil
		}
		return nil, fmt.Errorf("read bookmarks: %w", err)
	}
	var all []Bookmark
	if err := json.Unmarshal(data, &all); err != nil {
		return []Bookmark{}, nil
	}
	return all, nil
}

func (s *Store) save(all []Bookmark) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal bookmarks: %w", err)
	}
	return fsutil.WriteFileAtomic(s.path, data)
}

// ListByUser returns the user's bookmarks in insertion order.
func (s *Store) ListByUser(userID string) ([]Bookmark, error) {
	all, err := s.load()
	if err != nil {
		return nil, err
	}
	out := []Bookmark{}
	for _, b := range all {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

// Add bookmarks a movie for a user. ErrDuplicate when already bookmarked.
func (s *Store) Add(userID, movieID string) (*Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, b := range all {
		if b.UserID == userID && b.MovieID == movieID {
			return nil, ErrDuplicate
		}
	}

	bm := Bookmark{
		ID:        uuid.NewString(),
		UserID:    userID,
		MovieID:   movieID,
		CreatedAt: time.Now().UTC(),
	}
	all = append(all, bm)
	if err := s.save(all); err != nil {
		return nil, err
	}
	return &bm, nil
}

// Remove deletes a bookmark owned by the user. ErrNotFound when no bookmark
// with that id belongs to them.
func (s *Store) Remove(userID, bookmarkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load()
	if err != nil {
		return err
	}
	kept := all[:0]
	removed := false
	for _, b := range all {
		if b.ID == bookmarkID && b.UserID == userID {
			removed = true
			continue
		}
		kept = append(kept, b)
	}
	if !removed {
		return ErrNotFound
	}
	return s.save(kept)
}

// Count returns the total number of bookmarks across all users.
func (s *Store) Count() (int, error) {
	all, err := s.load()
	if err != nil {
		return 0, err
	}
	return len(all), nil
}
