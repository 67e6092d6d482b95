package srs

import (
	"math"
	"sort"
	"time"

	"github.com/conorfennell/pocketdeck/internal/domain"
)

// NextReview returns the instant a card becomes due again. The second
// result is false for a card that has never been reviewed.
func NextReview(card domain.Card) (time.Time, bool) {
	if card.LastReviewed == nil {
		return time.Time{}, false
	}
	last := *card.LastReviewed

	ns := card.Interval * float64(Day)
	if ns < math.MaxInt64 {
		return last.Add(time.Duration(ns)), true
	}

	// Past the range of time.Duration (about 292 years). Step in whole
	// seconds instead, saturating far beyond any real review date.
	secs := math.Min(card.Interval*Day.Seconds(), maxFutureSeconds)
	return time.Unix(last.Unix()+int64(secs), int64(last.Nanosecond())).In(last.Location()), true
}

// maxFutureSeconds bounds the offset of a next review so the resulting
// time.Time stays representable.
const maxFutureSeconds = 1 << 53

// IsDue reports whether card should be reviewed at now.
func IsDue(card domain.Card, now time.Time) bool {
	next, ok := NextReview(card)
	if !ok {
		return true
	}
	return !now.Before(next)
}

// DueCards returns the deck's due cards sorted by front. A filter other
// than domain.Unset or domain.All hides cards of other difficulties from
// the result. The deck's own slice is left untouched.
func DueCards(deck domain.Deck, now time.Time, filter domain.Difficulty) []domain.Card {
	due := make([]domain.Card, 0, len(deck.Cards))
	for _, c := range deck.Cards {
		if !IsDue(c, now) {
			continue
		}
		if filter != domain.Unset && filter != domain.All && c.Difficulty != filter {
			continue
		}
		due = append(due, c)
	}

	sort.SliceStable(due, func(i, j int) bool {
		return due[i].Front < due[j].Front
	})
	return due
}
