package storage

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"movie-review-service/internal/domain"
)

// Column layout of a movie's review file. All columns except id match the
// historical bulk-export format; id is the one column added by this system.
var csvHeader = []string{
	"Date of Review",
	"User",
	"Usefulness Vote",
	"Total Votes",
	"User's Rating out of 10",
	"Review Title",
	"id",
}

const (
	colDate = iota
	colUser
	colUsefulness
	colTotalVotes
	colRating
	colTitle
	colID
)

// Date layouts accepted on read, tried in order. Bulk-imported rows carry a
// mix of formats.
var dateLayouts = []string{"2 January 2006", "2 Jan 06", "2006-01-02"}

// csvDateLayout is the layout used on write, e.g. "27 October 2025".
const csvDateLayout = "02 January 2006"

func parseReviewDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	// Unparseable dates fall back to now instead of failing the read.
	return time.Now().UTC()
}

// stableID derives a deterministic name-based UUID for legacy rows that
// predate the id column. Identical row content always yields the identical
// id, so rebuilding an index never changes a legacy review's identity.
func stableID(movieID, user, dateStr, title string) string {
	key := movieID + "||" + user + "||" + dateStr + "||" + title
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// decodeRow converts one CSV record into a Review. Blank or non-numeric
// ratings decode to 0 and bad dates to the current time; historical data
// quality issues are repaired, never surfaced.
func decodeRow(movieID string, rec []string) domain.Review {
	get := func(i int) string {
		if i < len(rec) {
			return strings.TrimSpace(rec[i])
		}
		return ""
	}

	dateStr := get(colDate)
	user := get(colUser)
	title := get(colTitle)
	id := get(colID)

	rating, err := strconv.Atoi(get(colRating))
	if err != nil {
		rating = 0
	}

	created := parseReviewDate(dateStr)
	if id == "" {
		id = stableID(movieID, user, dateStr, title)
	}

	return domain.Review{
		ID:             id,
		MovieID:        movieID,
		UserID:         user,
		Rating:         rating,
		Comment:        title,
		CreatedAt:      created,
		UpdatedAt:      created,
		UsefulnessVote: get(colUsefulness),
		TotalVotes:     get(colTotalVotes),
	}
}

// encodeRow is the inverse of decodeRow. A zero rating encodes as an empty
// column, never "0". A review without an id receives a fresh one.
func encodeRow(r *domain.Review) []string {
	rating := ""
	if r.Rating != 0 {
		rating = strconv.Itoa(r.Rating)
	}

	id := r.ID
	if id == "" {
		id = uuid.NewString()
	}

	created := r.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	return []string{
		created.UTC().Format(csvDateLayout),
		r.UserID,
		r.UsefulnessVote,
		r.TotalVotes,
		rating,
		r.Comment,
		id,
	}
}

func rowID(rec []string) string {
	if colID < len(rec) {
		return strings.TrimSpace(rec[colID])
	}
	return ""
}
