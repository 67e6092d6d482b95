package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Difficulty is a display label attached to a card. It never feeds the
// scheduling math; it is only used to filter due cards for a session.
type Difficulty string

const (
	Unset        Difficulty = ""
	Beginner     Difficulty = "Beginner"
	Intermediate Difficulty = "Intermediate"
	Advanced     Difficulty = "Advanced"

	// All is the filter sentinel meaning "do not filter by difficulty".
	All Difficulty = "All"
)

// ErrUnknownDifficulty is returned by ParseFilter for text that names no
// difficulty.
var ErrUnknownDifficulty = errors.New("unknown difficulty")

// ParseDifficulty maps a card's difficulty label onto a Difficulty, ignoring
// case and surrounding whitespace. Unknown text yields Unset, and so does
// "All", which is a filter and never a card's own label.
func ParseDifficulty(s string) Difficulty {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "beginner":
		return Beginner
	case "intermediate":
		return Intermediate
	case "advanced":
		return Advanced
	}
	return Unset
}

// ParseFilter reads a due-set difficulty filter. Empty text and "All" mean
// no filter; anything else must name a difficulty.
func ParseFilter(s string) (Difficulty, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, string(All)) {
		return All, nil
	}
	if d := ParseDifficulty(s); d != Unset {
		return d, nil
	}
	return Unset, fmt.Errorf("%w %q", ErrUnknownDifficulty, s)
}

// Card represents a single fact to be memorized together with its
// scheduling state.
type Card struct {
	ID         string
	DeckID     string
	Front      string
	Back       string
	Tags       string
	Difficulty Difficulty
	Hash       string

	// Scheduling state. Only the srs package changes these after creation.
	Mastery      float64
	Interval     float64 // days
	EaseFactor   float64 // zero means uninitialized
	LastReviewed *time.Time
}

// NewCard returns a card with a fresh ID and the initial scheduling
// state: no mastery, no interval, uninitialized ease, never reviewed.
func NewCard(front, back string) Card {
	return Card{
		ID:    uuid.NewString(),
		Front: front,
		Back:  back,
	}
}

// ReviewLog records a single applied review and the state it produced.
type ReviewLog struct {
	ID         string
	CardID     string
	Quality    int
	ReviewedAt time.Time
	Mastery    float64
	Interval   float64
	EaseFactor float64
}
