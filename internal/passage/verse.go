// Package passage fetches, caches, and parses chapter text: the translated
// passage, the original-language verses, and per-word grammatical lookups.
package passage

import (
	"regexp"
	"strings"
)

// Verse is one numbered verse of a rendered chapter.
type Verse struct {
	Number string
	Text   string
}

// verseLine matches "<number>. <content>".
var verseLine = regexp.MustCompile(`^(\d+)\.\s+(.+)$`)

// ParseVerses splits chapter text into verses. Lines that do not match the
// "<number>. <content>" pattern are silently dropped; gaps in numbering are
// tolerated.
func ParseVerses(text string) []Verse {
	var verses []Verse
	for _, line := range strings.Split(text, "\n") {
		m := verseLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		verses = append(verses, Verse{Number: m[1], Text: m[2]})
	}
	return verses
}
