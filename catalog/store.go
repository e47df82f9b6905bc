package catalog

import (
	"fmt"
	"sort"

	"github.com/r3labs/diff/v3"
	"go.uber.org/zap"

	"github.com/alanbriolat/audio-archiver/generic"
)

// A Store is the full title -> Entry mapping, loaded from and persisted to a Database.
type Store struct {
	db      Database
	entries map[string]*Entry
	log     *zap.SugaredLogger
}

// MergeReport summarises what a Merge changed.
type MergeReport struct {
	Added   int
	Updated int
}

// Load reads the persisted record from db. A database with nothing in it gives an empty Store.
func Load(db Database) (*Store, error) {
	if db == nil {
		db = NilDatabase{}
	}
	entries, err := db.Load()
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = make(map[string]*Entry)
	}
	for title, e := range entries {
		if e == nil {
			e = newEntry()
			entries[title] = e
		}
		e.normalize()
	}
	return &Store{
		db:      db,
		entries: entries,
		log:     zap.S().Named("catalog"),
	}, nil
}

// Merge folds catalog items into the store. New titles are created, URLs from the catalog always replace stored
// ones, and a stored filename is forgotten only when the URL for that format actually changed.
func (s *Store) Merge(items []Item) MergeReport {
	var report MergeReport
	touched := make(map[string]entrySnapshot)
	for _, item := range items {
		e, ok := s.entries[item.Title]
		if !ok {
			e = newEntry()
			s.entries[item.Title] = e
			report.Added++
			touched[item.Title] = entrySnapshot{}
		} else if _, seen := touched[item.Title]; !seen {
			touched[item.Title] = e.snapshot()
		}
		if old, had := e.Formats[item.Format]; had && old != item.URL {
			e.Filenames[item.Format] = generic.None[string]()
		}
		e.Formats[item.Format] = item.URL
		e.normalize()
	}

	for title, before := range touched {
		if before.Formats == nil {
			s.log.Debugw("new title", "title", title)
			continue
		}
		changes, err := diff.Diff(before, s.entries[title].snapshot())
		if err != nil {
			s.log.Warnw("failed to diff catalog entry", "title", title, "error", err)
			continue
		}
		if len(changes) > 0 {
			report.Updated++
		}
		for _, change := range changes {
			s.log.Debugw("catalog entry changed", "title", title, "path", change.Path, "from", change.From, "to", change.To)
		}
	}
	return report
}

// Persist saves the whole store to its Database.
func (s *Store) Persist() error {
	if err := s.db.Save(s.entries); err != nil {
		return fmt.Errorf("failed to persist catalog: %w", err)
	}
	return nil
}

// Titles returns every title in the store in sorted order.
func (s *Store) Titles() []string {
	titles := make([]string, 0, len(s.entries))
	for title := range s.entries {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return titles
}

func (s *Store) Get(title string) (*Entry, bool) {
	e, ok := s.entries[title]
	return e, ok
}

func (s *Store) Len() int {
	return len(s.entries)
}

// SetFilename records the resolved filename for one format of a title.
func (s *Store) SetFilename(title string, tag FormatTag, filename string) error {
	e, ok := s.entries[title]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTitle, title)
	}
	e.Filenames[tag] = generic.Some(filename)
	return nil
}
