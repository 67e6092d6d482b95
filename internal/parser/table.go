package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/conorfennell/pocketdeck/internal/domain"
)

// A card table has the columns front, back, tags and difficulty. Only the
// first two are required. The first row is a header and is skipped.

// ParseCSV reads a card table in CSV form.
func ParseCSV(r io.Reader) ([]domain.Card, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return cardsFromRows(rows), nil
}

// ParseXLSX reads a card table from a spreadsheet. An empty sheet name
// selects the first sheet in the workbook.
func ParseXLSX(path, sheet string) ([]domain.Card, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	return cardsFromRows(rows), nil
}

func cardsFromRows(rows [][]string) []domain.Card {
	var cards []domain.Card
	for i, row := range rows {
		if i == 0 {
			continue
		}
		card, ok := cardFromRow(row)
		if !ok {
			if !blank(row) {
				slog.Debug("Skipping invalid card row", "row", i+1, "columns", len(row))
			}
			continue
		}
		cards = append(cards, card)
	}
	return cards
}

func cardFromRow(row []string) (domain.Card, bool) {
	cols := make([]string, len(row))
	for i, c := range row {
		cols[i] = strings.TrimSpace(c)
	}
	if len(cols) < 2 {
		return domain.Card{}, false
	}

	card := domain.NewCard(cols[0], cols[1])
	if len(cols) > 2 {
		card.Tags = cols[2]
	}
	card.Difficulty = domain.Beginner
	if len(cols) > 3 {
		if d := domain.ParseDifficulty(cols[3]); d != domain.Unset {
			card.Difficulty = d
		}
	}
	return card, true
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
