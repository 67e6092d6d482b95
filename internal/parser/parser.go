package parser

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/conorfennell/pocketdeck/internal/domain"
)

const (
	frontPrefix      = "Q:"
	backPrefix       = "A:"
	tagsPrefix       = "C:"
	difficultyPrefix = "D:"
)

type state int

const (
	seeking state = iota
	readingFront
	readingBack
	readingTags
	readingDifficulty
)

var prefixes = []struct {
	prefix string
	state  state
}{
	{frontPrefix, readingFront},
	{backPrefix, readingBack},
	{tagsPrefix, readingTags},
	{difficultyPrefix, readingDifficulty},
}

// ParseFile reads a card file and extracts all cards. The format is
// chosen by extension: .md, .csv or .xlsx.
func ParseFile(path string) ([]domain.Card, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return ParseXLSX(path, "")
	case ".csv":
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return ParseCSV(file)
	case ".md", ".markdown":
		file, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return Parse(file)
	}
	return nil, fmt.Errorf("unsupported card file %s", path)
}

// Supported reports whether ParseFile understands the file's extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".csv", ".xlsx":
		return true
	}
	return false
}

// Parse reads Q:/A:/C:/D: blocks from r and extracts all cards. Blocks may
// span several lines; a new Q: or a "---" line finishes the current card.
func Parse(r io.Reader) ([]domain.Card, error) {
	scanner := bufio.NewScanner(r)
	var cards []domain.Card
	var current domain.Card
	var block []string
	currentState := seeking

	flushBlock := func() {
		if len(block) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(block, "\n"))
		switch currentState {
		case readingFront:
			current.Front = content
		case readingBack:
			current.Back = content
		case readingTags:
			current.Tags = content
		case readingDifficulty:
			current.Difficulty = domain.ParseDifficulty(content)
		}
		block = nil
	}

	finishCard := func() {
		flushBlock()
		if current.Front != "" {
			card := domain.NewCard(current.Front, current.Back)
			card.Tags = current.Tags
			card.Difficulty = current.Difficulty
			cards = append(cards, card)
		}
		current = domain.Card{}
		currentState = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		if line == "---" {
			finishCard()
			continue
		}

		next, rest, ok := matchPrefix(line)
		if !ok {
			if currentState != seeking {
				block = append(block, line)
			}
			continue
		}

		if next == readingFront && currentState != seeking {
			finishCard()
		} else {
			flushBlock()
		}
		currentState = next
		block = append(block, rest)
	}

	finishCard()

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return cards, nil
}

func matchPrefix(line string) (state, string, bool) {
	for _, p := range prefixes {
		if strings.HasPrefix(line, p.prefix) {
			return p.state, strings.TrimPrefix(line[len(p.prefix):], " "), true
		}
	}
	return seeking, "", false
}
