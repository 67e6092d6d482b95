// Package srs is the spaced-repetition core: it decides which cards are
// due and computes a card's next scheduling state after a review.
//
// Everything here is pure. Nothing touches storage or the wall clock;
// callers pass the current time in and persist the result themselves.
package srs

import (
	"math"
	"time"

	"github.com/conorfennell/pocketdeck/internal/domain"
)

const (
	// DefaultEaseFactor is used when a card's ease factor is uninitialized.
	DefaultEaseFactor = 2.5
	// MinEaseFactor is the floor applied after every update.
	MinEaseFactor = 1.3

	// Day is the fixed length of one interval day. No calendar rounding.
	Day = 24 * time.Hour
)

// Quality is the recall score given after a review.
type Quality int

const (
	Blackout          Quality = 0 // no recall at all
	Incorrect         Quality = 1 // wrong, but remembered on seeing the answer
	IncorrectFamiliar Quality = 2 // wrong, but the answer felt familiar
	CorrectDifficult  Quality = 3 // right with serious effort
	CorrectHesitation Quality = 4 // right after some hesitation
	Perfect           Quality = 5 // right without hesitation
)

// Clamp pulls q into [Blackout, Perfect]. Out-of-range scores are never
// rejected.
func (q Quality) Clamp() Quality {
	if q < Blackout {
		return Blackout
	}
	if q > Perfect {
		return Perfect
	}
	return q
}

// Passed reports whether the (clamped) score counts as successful recall.
func (q Quality) Passed() bool {
	return q.Clamp() >= CorrectDifficult
}

// State is the scheduling portion of a card.
type State struct {
	Mastery      float64
	Interval     float64
	EaseFactor   float64
	LastReviewed time.Time
}

// Next computes the scheduling state that follows a review of card with
// quality q at now. The card is not modified.
func Next(card domain.Card, q Quality, now time.Time) State {
	q = q.Clamp()

	ease := card.EaseFactor
	if ease <= 0 {
		ease = DefaultEaseFactor
	}

	mastery := clamp(card.Mastery+float64(q-3)*0.1, 0, 1)

	if q >= CorrectDifficult {
		diff := float64(Perfect - q)
		ease = ease + 0.1 - diff*0.06
	} else {
		ease = ease - 0.8 + float64(q)*0.28
	}
	ease = math.Max(MinEaseFactor, ease)

	var interval float64
	switch {
	case q < CorrectDifficult:
		interval = 1
	case card.Interval == 0:
		interval = firstInterval(q)
	default:
		interval = card.Interval * ease
	}

	return State{
		Mastery:      mastery,
		Interval:     interval,
		EaseFactor:   ease,
		LastReviewed: now,
	}
}

// Update applies a review to card in place and returns the new state.
// Only the four scheduling fields change.
func Update(card *domain.Card, q Quality, now time.Time) State {
	st := Next(*card, q, now)
	card.Mastery = st.Mastery
	card.Interval = st.Interval
	card.EaseFactor = st.EaseFactor
	reviewed := st.LastReviewed
	card.LastReviewed = &reviewed
	return st
}

// firstInterval is the schedule for a card's first successful review.
func firstInterval(q Quality) float64 {
	switch q {
	case CorrectDifficult:
		return 1
	case CorrectHesitation:
		return 2
	default:
		return 6
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
