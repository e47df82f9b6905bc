package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultFilename is the name of the catalog record kept in the target directory.
const DefaultFilename = "bf-download.json"

// FileDatabase keeps the catalog as an indented JSON object keyed by title, so it can be inspected and hand-edited
// between runs.
type FileDatabase struct {
	Path string
}

func NewFileDatabase(path string) *FileDatabase {
	return &FileDatabase{Path: path}
}

func (d *FileDatabase) Load() (map[string]*Entry, error) {
	data, err := os.ReadFile(d.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]*Entry{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	entries := map[string]*Entry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", d.Path, err)
	}
	return entries, nil
}

// Save writes to a temporary file in the same directory and renames it over the record, so a reader never sees a
// partially written catalog.
func (d *FileDatabase) Save(entries map[string]*Entry) (err error) {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(d.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(d.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary catalog: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write catalog: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync catalog: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close catalog: %w", err)
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), d.Path); err != nil {
		return fmt.Errorf("failed to replace catalog: %w", err)
	}
	return nil
}
