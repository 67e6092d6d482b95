package parser

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/conorfennell/pocketdeck/internal/domain"
)

const sampleTable = `front,back,tags,difficulty
Big, Large
Fast,Quick,adjectives
Happy,Glad,emotions,Advanced
lonely
"Hello, world",Greeting,,intermediate
`

func TestParseCSV(t *testing.T) {
	cards, err := ParseCSV(strings.NewReader(sampleTable))
	if err != nil {
		t.Fatalf("ParseCSV() returned an unexpected error: %v", err)
	}
	checkSampleCards(t, cards)
}

func TestParseXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.xlsx")

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"front", "back", "tags", "difficulty"},
		{"Big", " Large"},
		{"Fast", "Quick", "adjectives"},
		{"Happy", "Glad", "emotions", "Advanced"},
		{"lonely"},
		{"Hello, world", "Greeting", "", "intermediate"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save spreadsheet: %v", err)
	}

	cards, err := ParseXLSX(path, "")
	if err != nil {
		t.Fatalf("ParseXLSX() returned an unexpected error: %v", err)
	}
	checkSampleCards(t, cards)
}

func checkSampleCards(t *testing.T, cards []domain.Card) {
	t.Helper()
	if len(cards) != 4 {
		t.Fatalf("Expected 4 cards, but got %d", len(cards))
	}

	want := []struct {
		front, back, tags string
		difficulty        domain.Difficulty
	}{
		{"Big", "Large", "", domain.Beginner},
		{"Fast", "Quick", "adjectives", domain.Beginner},
		{"Happy", "Glad", "emotions", domain.Advanced},
		{"Hello, world", "Greeting", "", domain.Intermediate},
	}
	for i, w := range want {
		c := cards[i]
		if c.Front != w.front || c.Back != w.back || c.Tags != w.tags || c.Difficulty != w.difficulty {
			t.Errorf("card %d: expected %s/%s/%s/%s, but got %s/%s/%s/%s",
				i, w.front, w.back, w.tags, w.difficulty, c.Front, c.Back, c.Tags, c.Difficulty)
		}
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	md := filepath.Join(dir, "deck.md")
	csvPath := filepath.Join(dir, "deck.CSV")
	txt := filepath.Join(dir, "notes.txt")

	if err := os.WriteFile(md, []byte("Q: One\nA: 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(csvPath, []byte(sampleTable), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(txt, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	if cards, err := ParseFile(md); err != nil || len(cards) != 1 {
		t.Errorf("Expected 1 markdown card, got %d (err %v)", len(cards), err)
	}
	if cards, err := ParseFile(csvPath); err != nil || len(cards) != 4 {
		t.Errorf("Expected 4 csv cards, got %d (err %v)", len(cards), err)
	}
	if _, err := ParseFile(txt); err == nil {
		t.Error("Expected an error for an unsupported extension")
	}
	if Supported(txt) || !Supported(csvPath) {
		t.Error("Supported() disagrees with ParseFile")
	}
}

func TestParseCSVDifficultyColumn(t *testing.T) {
	table := "front,back,tags,difficulty\n" +
		"one,1,,Advanced\n" +
		"two,2,,all\n" +
		"three,3,,\n" +
		"four,4,,expert\n"
	cards, err := ParseCSV(strings.NewReader(table))
	if err != nil {
		t.Fatalf("ParseCSV() returned an unexpected error: %v", err)
	}

	want := []domain.Difficulty{domain.Advanced, domain.Beginner, domain.Beginner, domain.Beginner}
	if len(cards) != len(want) {
		t.Fatalf("Expected %d cards, but got %d", len(want), len(cards))
	}
	for i, c := range cards {
		if c.Difficulty != want[i] {
			t.Errorf("Expected card %q to have difficulty %q, but got %q", c.Front, want[i], c.Difficulty)
		}
	}
}
