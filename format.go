package audio_archiver

import (
	"github.com/alanbriolat/audio-archiver/catalog"
	"github.com/alanbriolat/audio-archiver/generic"
)

// A Choice is the format and URL picked for one title.
type Choice struct {
	Format catalog.FormatTag
	URL    string
}

// A Task is one file to fetch. It is derived from the catalog on every run and never persisted.
type Task struct {
	Title    string
	Format   catalog.FormatTag
	URL      string
	Filename string
}

// FormatOrder returns the order formats are tried in: preferred first (if it is a known format), then the rest of
// catalog.KnownFormats in their fixed priority order.
func FormatOrder(preferred catalog.FormatTag) []catalog.FormatTag {
	order := make([]catalog.FormatTag, 0, len(catalog.KnownFormats))
	if preferred.IsKnown() {
		order = append(order, preferred)
	}
	for _, tag := range catalog.KnownFormats {
		if tag != preferred {
			order = append(order, tag)
		}
	}
	return order
}

// Select picks which format of entry to download. It never panics: an entry with no recognised format gives an Err
// wrapping ErrNoAvailableFormat.
func Select(entry *catalog.Entry, preferred catalog.FormatTag) generic.Result[Choice] {
	if entry == nil {
		return generic.Err[Choice](ErrNoAvailableFormat)
	}
	for _, tag := range FormatOrder(preferred) {
		if url, ok := entry.URL(tag); ok {
			return generic.Ok(Choice{Format: tag, URL: url})
		}
	}
	return generic.Err[Choice](ErrNoAvailableFormat)
}
