package srs

import (
	"math"
	"testing"
	"time"

	"github.com/conorfennell/pocketdeck/internal/domain"
)

const epsilon = 1e-9

func approx(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestQualityClamp(t *testing.T) {
	testCases := []struct {
		in   Quality
		want Quality
	}{
		{-5, Blackout},
		{-1, Blackout},
		{0, Blackout},
		{3, CorrectDifficult},
		{5, Perfect},
		{6, Perfect},
		{99, Perfect},
	}
	for _, tc := range testCases {
		if got := tc.in.Clamp(); got != tc.want {
			t.Errorf("Expected Quality(%d).Clamp() to be %d, but got %d", tc.in, tc.want, got)
		}
	}
}

func TestUpdateScenarios(t *testing.T) {
	now := time.Date(2025, 4, 21, 9, 0, 0, 0, time.UTC)

	t.Run("fresh card, perfect recall", func(t *testing.T) {
		card := domain.NewCard("Big", "Large")
		Update(&card, Perfect, now)

		if !approx(card.Mastery, 0.2) {
			t.Errorf("Expected mastery 0.2, but got %v", card.Mastery)
		}
		if card.Interval != 6.0 {
			t.Errorf("Expected interval 6.0, but got %v", card.Interval)
		}
		if !approx(card.EaseFactor, 2.6) {
			t.Errorf("Expected ease factor 2.6, but got %v", card.EaseFactor)
		}
		if card.LastReviewed == nil || !card.LastReviewed.Equal(now) {
			t.Errorf("Expected lastReviewed %v, but got %v", now, card.LastReviewed)
		}
	})

	t.Run("fresh card, blackout", func(t *testing.T) {
		card := domain.NewCard("Big", "Large")
		Update(&card, Blackout, now)

		if card.Mastery != 0 {
			t.Errorf("Expected mastery 0, but got %v", card.Mastery)
		}
		if card.Interval != 1.0 {
			t.Errorf("Expected interval 1.0, but got %v", card.Interval)
		}
		if !approx(card.EaseFactor, 1.7) {
			t.Errorf("Expected ease factor 1.7, but got %v", card.EaseFactor)
		}
	})

	t.Run("subsequent review with hesitation", func(t *testing.T) {
		card := domain.Card{Front: "Big", Interval: 6.0, EaseFactor: 2.6, Mastery: 0.2}
		Update(&card, CorrectHesitation, now)

		if !approx(card.EaseFactor, 2.64) {
			t.Errorf("Expected ease factor 2.64, but got %v", card.EaseFactor)
		}
		if !approx(card.Interval, 15.84) {
			t.Errorf("Expected interval 15.84, but got %v", card.Interval)
		}
		if !approx(card.Mastery, 0.3) {
			t.Errorf("Expected mastery 0.3, but got %v", card.Mastery)
		}
	})
}

func TestFirstReviewIntervals(t *testing.T) {
	now := time.Now()
	want := map[Quality]float64{
		CorrectDifficult:  1.0,
		CorrectHesitation: 2.0,
		Perfect:           6.0,
	}
	for q, interval := range want {
		card := domain.NewCard("front", "back")
		st := Next(card, q, now)
		if st.Interval != interval {
			t.Errorf("Expected first interval %v for quality %d, but got %v", interval, q, st.Interval)
		}
	}
}

func TestNextEaseFactor(t *testing.T) {
	testCases := []struct {
		name string
		ease float64
		q    Quality
		want float64
	}{
		{"blackout", 2.5, Blackout, 1.7},
		{"incorrect", 2.5, Incorrect, 1.98},
		{"familiar", 2.5, IncorrectFamiliar, 2.26},
		{"difficult lowers slightly", 2.5, CorrectDifficult, 2.48},
		{"hesitation", 2.5, CorrectHesitation, 2.54},
		{"perfect", 2.5, Perfect, 2.6},
		{"uninitialized uses default", 0, Perfect, 2.6},
		{"floor", 1.3, Blackout, MinEaseFactor},
		{"no ceiling", 4.0, Perfect, 4.1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			card := domain.Card{EaseFactor: tc.ease}
			if got := Next(card, tc.q, time.Now()).EaseFactor; !approx(got, tc.want) {
				t.Errorf("Expected ease factor %v, but got %v", tc.want, got)
			}
		})
	}
}

func TestFailureResetsInterval(t *testing.T) {
	now := time.Now()
	for _, prior := range []float64{0, 1, 6, 15.84, 400} {
		for q := Blackout; q < CorrectDifficult; q++ {
			card := domain.Card{Interval: prior, EaseFactor: 2.5, Mastery: 0.5}
			st := Next(card, q, now)
			if st.Interval != 1.0 {
				t.Errorf("Expected interval 1.0 after quality %d from %v, but got %v", q, prior, st.Interval)
			}
		}
	}
}

func TestRepeatedFailuresKeepAdjusting(t *testing.T) {
	now := time.Now()
	card := domain.Card{Interval: 10, EaseFactor: 2.5, Mastery: 0.5}

	Update(&card, IncorrectFamiliar, now)
	firstEase, firstMastery := card.EaseFactor, card.Mastery
	Update(&card, IncorrectFamiliar, now)

	if card.Interval != 1.0 {
		t.Errorf("Expected interval to stay at 1.0, but got %v", card.Interval)
	}
	if card.EaseFactor >= firstEase {
		t.Errorf("Expected ease factor to keep falling, got %v then %v", firstEase, card.EaseFactor)
	}
	if card.Mastery >= firstMastery {
		t.Errorf("Expected mastery to keep falling, got %v then %v", firstMastery, card.Mastery)
	}
}

func TestOutOfRangeQualityIsClamped(t *testing.T) {
	now := time.Now()
	card := domain.Card{Interval: 3, EaseFactor: 2.1, Mastery: 0.4}

	if Next(card, -5, now) != Next(card, 0, now) {
		t.Error("Expected quality -5 to behave like quality 0")
	}
	if Next(card, 99, now) != Next(card, 5, now) {
		t.Error("Expected quality 99 to behave like quality 5")
	}
}

func TestInvariantsHoldOverLongSequences(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	card := domain.NewCard("front", "back")
	qualities := []Quality{0, 0, 0, 0, 1, 2, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 3, 4, -3, 12, 2, 0, 0, 0, 0, 0, 0}

	for i, q := range qualities {
		now = now.Add(Day)
		Update(&card, q, now)
		if card.Mastery < 0 || card.Mastery > 1 {
			t.Fatalf("step %d: mastery %v out of [0,1]", i, card.Mastery)
		}
		if card.EaseFactor < MinEaseFactor {
			t.Fatalf("step %d: ease factor %v below %v", i, card.EaseFactor, MinEaseFactor)
		}
		if card.Interval < 0 {
			t.Fatalf("step %d: negative interval %v", i, card.Interval)
		}
	}
}

func TestUpdateLeavesContentUntouched(t *testing.T) {
	card := domain.Card{
		ID:         "id-1",
		DeckID:     "deck-1",
		Front:      "Big",
		Back:       "Large",
		Tags:       "adjectives",
		Difficulty: domain.Intermediate,
		Hash:       "abc",
	}
	Update(&card, Perfect, time.Now())

	if card.ID != "id-1" || card.DeckID != "deck-1" || card.Front != "Big" || card.Back != "Large" ||
		card.Tags != "adjectives" || card.Difficulty != domain.Intermediate || card.Hash != "abc" {
		t.Errorf("Expected non-scheduling fields to be unchanged, got %+v", card)
	}
}
