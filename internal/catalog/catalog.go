// Package catalog is the whole-file JSON store for movie metadata. Movies
// have none of the per-row access patterns reviews have, so the catalog
// stays a plain load/modify/save JSON array with atomic replacement.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"movie-review-service/internal/fsutil"
)

// ErrNotFound is returned when a movie id is not present in the catalog.
var ErrNotFound = errors.New("movie not found")

// Movie is one catalog entry. Rating holds the running average of user
// review ratings, RatingCount the number of ratings folded into it.
type Movie struct {
	ID          string    `json:"movie_id"`
	Title       string    `json:"title"`
	Genre       string    `json:"genre,omitempty"`
	ReleaseYear int       `json:"release_year,omitempty"`
	Rating      float64   `json:"rating"`
	RatingCount int       `json:"rating_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Store reads and writes the movies.json catalog file.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// read returns the raw catalog document, or an empty array when the file is
// missing.
func (s *Store) read() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []byte("[]"), nil
		}
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return data, nil
}

// List loads the whole catalog.
func (s *Store) List() ([]Movie, error) {
	data, err := s.read()
	if err != nil {
		return nil, err
	}
	var movies []Movie
	if err := json.Unmarshal(data, &movies); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}
	return movies, nil
}

// Count returns the number of catalog entries without unmarshalling them.
func (s *Store) Count() (int, error) {
	data, err := s.read()
	if err != nil {
		return 0, err
	}
	return int(gjson.GetBytes(data, "#").Int()), nil
}

// GetByID finds one movie by id. The lookup queries the raw document with
// gjson, so point reads never unmarshal the whole catalog.
func (s *Store) GetByID(id string) (*Movie, error) {
	data, err := s.read()
	if err != nil {
		return nil, err
	}
	res := gjson.GetBytes(data, fmt.Sprintf(`#(movie_id==%q)`, id))
	if !res.Exists() {
		return nil, ErrNotFound
	}
	var m Movie
	if err := json.Unmarshal([]byte(res.Raw), &m); err != nil {
		return nil, fmt.Errorf("unmarshal movie: %w", err)
	}
	return &m, nil
}

// Add appends a movie to the catalog. The id must be unique.
func (s *Store) Add(m Movie) error {
	if strings.TrimSpace(m.ID) == "" {
		return errors.New("movie id is required")
	}
	movies, err := s.List()
	if err != nil {
		return err
	}
	for _, existing := range movies {
		if existing.ID == m.ID {
			return fmt.Errorf("movie %s already exists", m.ID)
		}
	}

	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	movies = append(movies, m)
	return s.save(movies)
}

// RecordRating folds one review rating into the movie's running average
// using an in-place sjson update of the raw document. Reviews may reference
// movies missing from the catalog (legacy imports); that is a no-op, not an
// error.
func (s *Store) RecordRating(movieID string, rating int) error {
	if rating == 0 {
		return nil
	}
	data, err := s.read()
	if err != nil {
		return err
	}

	// Locate the entry's array position; sjson needs a concrete path.
	pos := -1
	gjson.ParseBytes(data).ForEach(func(i, v gjson.Result) bool {
		if v.Get("movie_id").String() == movieID {
			pos = int(i.Int())
			return false
		}
		return true
	})
	if pos < 0 {
		return nil
	}

	entry := gjson.GetBytes(data, fmt.Sprintf("%d", pos))
	count := entry.Get("rating_count").Int()
	avg := entry.Get("rating").Float()
	newAvg := (avg*float64(count) + float64(rating)) / float64(count+1)

	for path, value := range map[string]any{
		fmt.Sprintf("%d.rating", pos):       newAvg,
		fmt.Sprintf("%d.rating_count", pos): count + 1,
		fmt.Sprintf("%d.updated_at", pos):   time.Now().UTC().Format(time.RFC3339),
	} {
		if data, err = sjson.SetBytes(data, path, value); err != nil {
			return fmt.Errorf("update rating: %w", err)
		}
	}
	return fsutil.WriteFileAtomic(s.path, data)
}

func (s *Store) save(movies []Movie) error {
	data, err := json.MarshalIndent(movies, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal catalog: %w", err)
	}
	return fsutil.WriteFileAtomic(s.path, data)
}
