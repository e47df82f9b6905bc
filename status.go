package audio_archiver

import (
	"os"
	"path/filepath"

	"github.com/alanbriolat/audio-archiver/catalog"
	"github.com/alanbriolat/audio-archiver/generic"
)

// A TitleStatus is what the store knows about one title and whether its file is on disk.
type TitleStatus struct {
	Title    string
	Format   catalog.FormatTag
	Filename generic.Option[string]
	Present  bool
	// Err is set when no format could be chosen.
	Err error
}

// Status reports on every title in store, in title order, without touching the network.
func Status(store *catalog.Store, targetDir string, preferred catalog.FormatTag) []TitleStatus {
	var statuses []TitleStatus
	for _, title := range store.Titles() {
		entry, _ := store.Get(title)
		status := TitleStatus{Title: title}
		choice, err := Select(entry, preferred).Parts()
		if err != nil {
			status.Err = err
			statuses = append(statuses, status)
			continue
		}
		status.Format = choice.Format
		status.Filename = entry.Filename(choice.Format)
		if filename, ok := status.Filename.Get(); ok {
			if info, err := os.Stat(filepath.Join(targetDir, filename)); err == nil && info.Mode().IsRegular() {
				status.Present = true
			}
		}
		statuses = append(statuses, status)
	}
	return statuses
}
