// Package tracker persists which chapters the user has marked as read.
package tracker

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

const keyPrefix = "read:"

// Status maps a book name to the set of chapter numbers marked read.
// Books with no read chapters have no entry.
type Status map[string]map[int]bool

// Tracker records read chapters in a local BadgerDB database. Every
// Toggle is written synchronously, so state survives a crash.
type Tracker struct {
	db *badger.DB
}

// Options configures where the tracker stores its data.
type Options struct {
	// Dir is the directory for the database files. Required unless
	// InMemory is set.
	Dir string

	// InMemory keeps all state in memory. Used by tests.
	InMemory bool
}

// Open opens the reading tracker database.
func Open(opts Options) (*Tracker, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("tracker: Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(nil)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("tracker: open database: %w", err)
	}
	return &Tracker{db: db}, nil
}

// Close closes the underlying database.
func (t *Tracker) Close() error {
	return t.db.Close()
}

func chapterKey(book string, chapter int) []byte {
	return []byte(fmt.Sprintf("%s%s:%d", keyPrefix, book, chapter))
}

// Toggle flips the read state of a chapter and returns the new state.
func (t *Tracker) Toggle(book string, chapter int) (bool, error) {
	key := chapterKey(book, chapter)
	var read bool
	err := t.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return txn.Delete(key)
		case errors.Is(err, badger.ErrKeyNotFound):
			read = true
			return txn.Set(key, []byte{1})
		default:
			return err
		}
	})
	if err != nil {
		return false, fmt.Errorf("tracker: toggle %s %d: %w", book, chapter, err)
	}
	return read, nil
}

// Snapshot loads the full read state.
func (t *Tracker) Snapshot() (Status, error) {
	status := Status{}
	prefix := []byte(keyPrefix)
	err := t.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		iterOpts.PrefetchValues = false
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			book, chapter, ok := parseKey(it.Item().Key())
			if !ok {
				continue
			}
			if status[book] == nil {
				status[book] = map[int]bool{}
			}
			status[book][chapter] = true
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tracker: snapshot: %w", err)
	}
	return status, nil
}

// parseKey splits "read:{book}:{chapter}". The chapter is the segment
// after the last colon, so book names containing spaces or digits are fine.
func parseKey(key []byte) (string, int, bool) {
	rest := strings.TrimPrefix(string(key), keyPrefix)
	i := strings.LastIndexByte(rest, ':')
	if i < 1 {
		return "", 0, false
	}
	chapter, err := strconv.Atoi(rest[i+1:])
	if err != nil {
		return "", 0, false
	}
	return rest[:i], chapter, true
}

// IsRead reports whether a chapter is marked read in a snapshot.
func IsRead(status Status, book string, chapter int) bool {
	return status[book][chapter]
}

// ReadChapters returns the sorted chapters marked read for a book.
func ReadChapters(status Status, book string) []int {
	chapters := make([]int, 0, len(status[book]))
	for c := range status[book] {
		chapters = append(chapters, c)
	}
	sort.Ints(chapters)
	return chapters
}
