package domain

import "time"

// Review represents the core domain model for a movie review.
// It serves as the canonical data structure across the application
// (HTTP API -> Service -> Storage).
type Review struct {
	ID        string    `json:"id"`
	MovieID   string    `json:"movie_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"` // 1..10; 0 means no rating was given
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Vote counters carried through from the bulk-export CSV columns.
	// The API never exposes them; they must survive a rewrite untouched.
	UsefulnessVote string `json:"-"`
	TotalVotes     string `json:"-"`
}
