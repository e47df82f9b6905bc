// Package fixture reads a catalog from a JSON file instead of the remote service, for offline runs and tests.
//
// The file maps each title to its formats and URLs:
//
//	{"Spare Parts": {"mp3": "https://...", "audiobook": "https://..."}}
package fixture

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/alanbriolat/audio-archiver/catalog"
)

type Source struct {
	Path string
}

func New(path string) *Source {
	return &Source{Path: path}
}

func (s *Source) Catalog(_ context.Context) ([]catalog.Item, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes fixture JSON into items, ordered by title then format so merges are deterministic.
func Parse(data []byte) ([]catalog.Item, error) {
	raw := map[string]map[string]string{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse catalog fixture: %w", err)
	}
	var items []catalog.Item
	for title, formats := range raw {
		for format, url := range formats {
			items = append(items, catalog.Item{Title: title, Format: catalog.FormatTag(format), URL: url})
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Title != items[j].Title {
			return items[i].Title < items[j].Title
		}
		return items[i].Format < items[j].Format
	})
	return items, nil
}
