package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/conorfennell/pocketdeck/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "nested", "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

var created = time.Date(2025, 4, 21, 10, 0, 0, 0, time.UTC)

func sampleDeck(name string, hosted bool, at time.Time) domain.Deck {
	deck := domain.NewDeck(name, "Language", hosted, at)
	deck.AddCard(domain.NewCard("Big", "Large"))
	deck.AddCard(domain.NewCard("Apple", "Fruit"))
	return deck
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("oracle", "x"); err == nil {
		t.Error("Expected an error for an unknown driver")
	}
}

func TestDeckRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	deck := sampleDeck("Vocabulary", false, created)
	deck.Cards[0].Tags = "adjectives"
	deck.Cards[0].Difficulty = domain.Advanced
	if err := db.InsertDeck(ctx, &deck); err != nil {
		t.Fatalf("insert deck: %v", err)
	}

	got, err := db.GetDeck(ctx, deck.ID)
	if err != nil {
		t.Fatalf("get deck: %v", err)
	}
	if got.Name != "Vocabulary" || got.Category != "Language" || got.IsHosted || !got.CreatedAt.Equal(created) {
		t.Errorf("Unexpected deck metadata: %+v", got)
	}
	if len(got.Cards) != 2 {
		t.Fatalf("Expected 2 cards, but got %d", len(got.Cards))
	}
	if got.Cards[0].Front != "Apple" || got.Cards[1].Front != "Big" {
		t.Errorf("Expected cards ordered by front, got %s, %s", got.Cards[0].Front, got.Cards[1].Front)
	}
	big := got.Cards[1]
	if big.Tags != "adjectives" || big.Difficulty != domain.Advanced || big.DeckID != deck.ID {
		t.Errorf("Unexpected card content: %+v", big)
	}
	if big.LastReviewed != nil || big.EaseFactor != 0 || big.Interval != 0 || big.Mastery != 0 {
		t.Errorf("Expected initial scheduling state, got %+v", big)
	}
}

func TestGetMissing(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	if _, err := db.GetDeck(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for deck, got %v", err)
	}
	if _, err := db.GetCard(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for card, got %v", err)
	}
	if _, err := db.FindHostedDeckByName(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for hosted deck, got %v", err)
	}
	if err := db.DeleteDeck(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting a missing deck, got %v", err)
	}
}

func TestListDecksOrdering(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	for i, name := range []string{"Old", "Newer", "Newest"} {
		d := domain.NewDeck(name, "", false, created.Add(time.Duration(i)*time.Hour))
		if err := db.InsertDeck(ctx, &d); err != nil {
			t.Fatal(err)
		}
	}
	for _, name := range []string{"Spanish", "French"} {
		d := domain.NewDeck(name, "", true, created)
		if err := db.InsertDeck(ctx, &d); err != nil {
			t.Fatal(err)
		}
	}

	local, err := db.ListDecks(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(local) != 3 || local[0].Name != "Newest" || local[2].Name != "Old" {
		t.Errorf("Expected local decks newest first, got %+v", local)
	}

	hosted, err := db.ListDecks(ctx, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(hosted) != 2 || hosted[0].Name != "French" || hosted[1].Name != "Spanish" {
		t.Errorf("Expected hosted decks by name, got %+v", hosted)
	}

	found, err := db.FindHostedDeckByName(ctx, "French")
	if err != nil || !found.IsHosted {
		t.Errorf("Expected to find hosted deck French, got %+v (err %v)", found, err)
	}
}

func TestSaveReviewAndLogs(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	deck := sampleDeck("Vocabulary", false, created)
	if err := db.InsertDeck(ctx, &deck); err != nil {
		t.Fatal(err)
	}

	card := deck.Cards[0]
	reviewed := created.Add(time.Hour)
	card.Mastery, card.Interval, card.EaseFactor, card.LastReviewed = 0.2, 6, 2.6, &reviewed

	log := domain.ReviewLog{ID: "01A", CardID: card.ID, Quality: 5, ReviewedAt: reviewed, Mastery: 0.2, Interval: 6, EaseFactor: 2.6}
	if err := db.SaveReview(ctx, card, log); err != nil {
		t.Fatalf("save review: %v", err)
	}

	got, err := db.GetCard(ctx, card.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Mastery != 0.2 || got.Interval != 6 || got.EaseFactor != 2.6 {
		t.Errorf("Unexpected schedule after save: %+v", got)
	}
	if got.LastReviewed == nil || !got.LastReviewed.Equal(reviewed) {
		t.Errorf("Expected lastReviewed %v, got %v", reviewed, got.LastReviewed)
	}

	log2 := log
	log2.ID = "01B"
	log2.Quality = 2
	if err := db.SaveReview(ctx, card, log2); err != nil {
		t.Fatal(err)
	}
	logs, err := db.ReviewLogs(ctx, card.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 2 || logs[0].Quality != 5 || logs[1].Quality != 2 {
		t.Errorf("Unexpected review logs: %+v", logs)
	}

	missing := card
	missing.ID = "nope"
	log3 := log
	log3.ID = "01C"
	if err := db.SaveReview(ctx, missing, log3); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound saving a missing card, got %v", err)
	}
}

func TestDeleteDeckCascades(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	deck := sampleDeck("Vocabulary", false, created)
	if err := db.InsertDeck(ctx, &deck); err != nil {
		t.Fatal(err)
	}
	card := deck.Cards[0]
	log := domain.ReviewLog{ID: "01A", CardID: card.ID, Quality: 4, ReviewedAt: created}
	if err := db.SaveReview(ctx, card, log); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteDeck(ctx, deck.ID); err != nil {
		t.Fatalf("delete deck: %v", err)
	}
	for _, c := range deck.Cards {
		if _, err := db.GetCard(ctx, c.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected card %s to be deleted with its deck, got %v", c.ID, err)
		}
	}
	logs, err := db.ReviewLogs(ctx, card.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 0 {
		t.Errorf("Expected review logs to be deleted, got %d", len(logs))
	}
}

func TestHostedDecksAreReadOnly(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	hosted := sampleDeck("Spanish", true, created)
	if err := db.InsertDeck(ctx, &hosted); err != nil {
		t.Fatal(err)
	}

	if err := db.UpdateDeck(ctx, hosted.ID, "Renamed", ""); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Expected ErrReadOnly renaming hosted deck, got %v", err)
	}

	extra := domain.NewCard("Hola", "Hello")
	extra.DeckID = hosted.ID
	if err := db.InsertCard(ctx, extra); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Expected ErrReadOnly adding to hosted deck, got %v", err)
	}

	edited := hosted.Cards[0]
	edited.Back = "Huge"
	if err := db.UpdateCardContent(ctx, edited); !errors.Is(err, ErrReadOnly) {
		t.Errorf("Expected ErrReadOnly editing hosted card, got %v", err)
	}

	n, err := db.DeleteCards(ctx, hosted.Cards[0].ID)
	if err != nil || n != 0 {
		t.Errorf("Expected hosted card deletion to be skipped, got %d (err %v)", n, err)
	}

	// Scheduling still works on hosted cards.
	card := hosted.Cards[0]
	card.Interval = 1
	if err := db.SaveReview(ctx, card, domain.ReviewLog{ID: "01A", CardID: card.ID, ReviewedAt: created}); err != nil {
		t.Errorf("Expected review of hosted card to be saved, got %v", err)
	}

	// Deleting the whole hosted deck is allowed.
	if err := db.DeleteDeck(ctx, hosted.ID); err != nil {
		t.Errorf("Expected hosted deck deletion to succeed, got %v", err)
	}
}

func TestEditLocalCards(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	deck := sampleDeck("Vocabulary", false, created)
	if err := db.InsertDeck(ctx, &deck); err != nil {
		t.Fatal(err)
	}

	if err := db.UpdateDeck(ctx, deck.ID, "Words", "English"); err != nil {
		t.Fatalf("update deck: %v", err)
	}

	extra := domain.NewCard("Cat", "Animal")
	extra.DeckID = deck.ID
	if err := db.InsertCard(ctx, extra); err != nil {
		t.Fatalf("insert card: %v", err)
	}

	edited := deck.Cards[0]
	edited.Back = "Huge"
	edited.Difficulty = domain.Intermediate
	if err := db.UpdateCardContent(ctx, edited); err != nil {
		t.Fatalf("update card: %v", err)
	}

	n, err := db.DeleteCards(ctx, deck.Cards[1].ID, "missing")
	if err != nil || n != 1 {
		t.Errorf("Expected 1 card deleted, got %d (err %v)", n, err)
	}

	got, err := db.GetDeck(ctx, deck.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Words" || got.Category != "English" {
		t.Errorf("Unexpected deck metadata after update: %+v", got)
	}
	if len(got.Cards) != 2 || got.Cards[0].Front != "Big" || got.Cards[0].Back != "Huge" || got.Cards[1].Front != "Cat" {
		t.Errorf("Unexpected cards after edits: %+v", got.Cards)
	}
}

func TestSources(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	id, err := db.InsertSource(ctx, "/notes", SourceLocal)
	if err != nil {
		t.Fatalf("insert source: %v", err)
	}
	if _, err := db.InsertSource(ctx, "/notes", SourceLocal); err == nil {
		t.Error("Expected duplicate source path to fail")
	}

	src, err := db.FindSourceByPath(ctx, "/notes")
	if err != nil || src.ID != id || src.Type != SourceLocal || src.LastScanned.Valid {
		t.Errorf("Unexpected source: %+v (err %v)", src, err)
	}

	if err := db.UpdateSourceLastScanned(ctx, id, created); err != nil {
		t.Fatal(err)
	}
	all, err := db.GetAllSources(ctx)
	if err != nil || len(all) != 1 || !all[0].LastScanned.Valid {
		t.Errorf("Unexpected sources: %+v (err %v)", all, err)
	}

	deck := sampleDeck("notes", false, created)
	deck.SourceID = &id
	if err := db.InsertDeck(ctx, &deck); err != nil {
		t.Fatal(err)
	}
	synced, err := db.DeckForSource(ctx, id)
	if err != nil || synced.ID != deck.ID || len(synced.Cards) != 2 {
		t.Errorf("Unexpected deck for source: %+v (err %v)", synced, err)
	}

	if err := db.DeleteSource(ctx, id); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetDeck(ctx, deck.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected source deletion to remove its deck, got %v", err)
	}
	if err := db.DeleteSource(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound deleting a missing source, got %v", err)
	}
}

func TestOneDeckPerSource(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	id, err := db.InsertSource(ctx, "/notes", SourceLocal)
	if err != nil {
		t.Fatal(err)
	}
	first := sampleDeck("notes", false, created)
	first.SourceID = &id
	if err := db.InsertDeck(ctx, &first); err != nil {
		t.Fatal(err)
	}
	second := sampleDeck("notes again", false, created)
	second.SourceID = &id
	if err := db.InsertDeck(ctx, &second); err == nil {
		t.Error("Expected a second deck for the same source to be rejected")
	}
	if _, err := db.GetDeck(ctx, second.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected the rejected deck to leave no rows, got %v", err)
	}

	for _, hosted := range []bool{false, false, true, true} {
		deck := sampleDeck("unsourced", hosted, created)
		if err := db.InsertDeck(ctx, &deck); err != nil {
			t.Errorf("Expected decks without a source to coexist, got %v", err)
		}
	}
}
