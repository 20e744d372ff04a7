// Package bible holds the canon metadata used for navigation: book names,
// chapter counts, and the original language of each book.
package bible

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Language is the original language of a book.
type Language string

const (
	Hebrew Language = "Hebrew"
	Greek  Language = "Greek"
)

// Testament identifies which testament a book belongs to.
type Testament int

const (
	OldTestament Testament = iota
	NewTestament
)

// Book holds metadata for a single book of the Bible.
type Book struct {
	Name      string
	Chapters  int
	Language  Language
	Testament Testament
}

// Books contains all 66 canonical books in canonical order.
var Books = []Book{
	{"Genesis", 50, Hebrew, OldTestament},
	{"Exodus", 40, Hebrew, OldTestament},
	{"Leviticus", 27, Hebrew, OldTestament},
	{"Numbers", 36, Hebrew, OldTestament},
	{"Deuteronomy", 34, Hebrew, OldTestament},
	{"Joshua", 24, Hebrew, OldTestament},
	{"Judges", 21, Hebrew, OldTestament},
	{"Ruth", 4, Hebrew, OldTestament},
	{"1 Samuel", 31, Hebrew, OldTestament},
	{"2 Samuel", 24, Hebrew, OldTestament},
	{"1 Kings", 22, Hebrew, OldTestament},
	{"2 Kings", 25, Hebrew, OldTestament},
	{"1 Chronicles", 29, Hebrew, OldTestament},
	{"2 Chronicles", 36, Hebrew, OldTestament},
	{"Ezra", 10, Hebrew, OldTestament},
	{"Nehemiah", 13, Hebrew, OldTestament},
	{"Esther", 10, Hebrew, OldTestament},
	{"Job", 42, Hebrew, OldTestament},
	{"Psalms", 150, Hebrew, OldTestament},
	{"Proverbs", 31, Hebrew, OldTestament},
	{"Ecclesiastes", 12, Hebrew, OldTestament},
	{"Song of Solomon", 8, Hebrew, OldTestament},
	{"Isaiah", 66, Hebrew, OldTestament},
	{"Jeremiah", 52, Hebrew, OldTestament},
	{"Lamentations", 5, Hebrew, OldTestament},
	{"Ezekiel", 48, Hebrew, OldTestament},
	{"Daniel", 12, Hebrew, OldTestament},
	{"Hosea", 14, Hebrew, OldTestament},
	{"Joel", 3, Hebrew, OldTestament},
	{"Amos", 9, Hebrew, OldTestament},
	{"Obadiah", 1, Hebrew, OldTestament},
	{"Jonah", 4, Hebrew, OldTestament},
	{"Micah", 7, Hebrew, OldTestament},
	{"Nahum", 3, Hebrew, OldTestament},
	{"Habakkuk", 3, Hebrew, OldTestament},
	{"Zephaniah", 3, Hebrew, OldTestament},
	{"Haggai", 2, Hebrew, OldTestament},
	{"Zechariah", 14, Hebrew, OldTestament},
	{"Malachi", 4, Hebrew, OldTestament},
	{"Matthew", 28, Greek, NewTestament},
	{"Mark", 16, Greek, NewTestament},
	{"Luke", 24, Greek, NewTestament},
	{"John", 21, Greek, NewTestament},
	{"Acts", 28, Greek, NewTestament},
	{"Romans", 16, Greek, NewTestament},
	{"1 Corinthians", 16, Greek, NewTestament},
	{"2 Corinthians", 13, Greek, NewTestament},
	{"Galatians", 6, Greek, NewTestament},
	{"Ephesians", 6, Greek, NewTestament},
	{"Philippians", 4, Greek, NewTestament},
	{"Colossians", 4, Greek, NewTestament},
	{"1 Thessalonians", 5, Greek, NewTestament},
	{"2 Thessalonians", 3, Greek, NewTestament},
	{"1 Timothy", 6, Greek, NewTestament},
	{"2 Timothy", 4, Greek, NewTestament},
	{"Titus", 3, Greek, NewTestament},
	{"Philemon", 1, Greek, NewTestament},
	{"Hebrews", 13, Greek, NewTestament},
	{"James", 5, Greek, NewTestament},
	{"1 Peter", 5, Greek, NewTestament},
	{"2 Peter", 3, Greek, NewTestament},
	{"1 John", 5, Greek, NewTestament},
	{"2 John", 1, Greek, NewTestament},
	{"3 John", 1, Greek, NewTestament},
	{"Jude", 1, Greek, NewTestament},
	{"Revelation", 22, Greek, NewTestament},
}

// Find returns the book with the given name (case-insensitive exact match
// first, then fuzzy). Returns an error if nothing matches.
func Find(name string) (Book, error) {
	for _, b := range Books {
		if strings.EqualFold(b.Name, name) {
			return b, nil
		}
	}

	names := make([]string, len(Books))
	for i, b := range Books {
		names[i] = b.Name
	}
	matches := fuzzy.Find(name, names)
	if len(matches) == 0 {
		return Book{}, fmt.Errorf("unknown book: %q", name)
	}
	return Books[matches[0].Index], nil
}

// Next returns the chapter following (book, chapter), crossing book
// boundaries. ok is false at Revelation 22.
func Next(book Book, chapter int) (Book, int, bool) {
	if chapter < book.Chapters {
		return book, chapter + 1, true
	}
	for i, b := range Books {
		if b.Name == book.Name && i+1 < len(Books) {
			return Books[i+1], 1, true
		}
	}
	return book, chapter, false
}

// Previous returns the chapter preceding (book, chapter), crossing book
// boundaries. ok is false at Genesis 1.
func Previous(book Book, chapter int) (Book, int, bool) {
	if chapter > 1 {
		return book, chapter - 1, true
	}
	for i, b := range Books {
		if b.Name == book.Name && i > 0 {
			prev := Books[i-1]
			return prev, prev.Chapters, true
		}
	}
	return book, chapter, false
}
