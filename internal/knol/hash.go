// Package knol derives a stable identity for a card from its content, so a
// card edited only in case or surrounding whitespace keeps its schedule.
package knol

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"

	"github.com/conorfennell/pocketdeck/internal/domain"
)

var crlf = strings.NewReplacer("\r\n", "\n")

// Normalize returns the identity text of a card: front, back and tags,
// each lowercased and trimmed with CRLF line endings folded, one per line.
// Difficulty is left out so relabelling a card keeps its review history.
func Normalize(card domain.Card) string {
	var b strings.Builder
	writeFields(&b, card)
	return b.String()
}

// Hash is the hex SHA-256 of Normalize(card).
func Hash(card domain.Card) string {
	h := sha256.New()
	writeFields(h, card)
	return hex.EncodeToString(h.Sum(nil))
}

func writeFields(w io.Writer, card domain.Card) {
	for i, field := range [...]string{card.Front, card.Back, card.Tags} {
		if i > 0 {
			io.WriteString(w, "\n")
		}
		crlf.WriteString(w, strings.TrimSpace(strings.ToLower(field)))
	}
}
