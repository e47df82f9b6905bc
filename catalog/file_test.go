package catalog

import (
	"os"
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
)

func TestFileDatabaseHandEdited(t *testing.T) {
	assert := assert_.New(t)
	path := filepath.Join(t.TempDir(), DefaultFilename)
	// Hand-written record with a missing filenames map
	assert.NoError(os.WriteFile(path, []byte(`{
  "Dust Breeding": {"formats": {"mp3": "https://example.com/dust"}}
}`), 0644))

	store, err := Load(NewFileDatabase(path))
	assert.NoError(err)
	e, ok := store.Get("Dust Breeding")
	assert.True(ok)
	assert.Len(e.Filenames, len(KnownFormats))
}

func TestFileDatabaseCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFilename)
	assert_.NoError(t, os.WriteFile(path, []byte(`{"half":`), 0644))
	_, err := Load(NewFileDatabase(path))
	assert_.Error(t, err)
}

func TestFileDatabaseSaveLeavesNoTemporaryFiles(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()
	db := NewFileDatabase(filepath.Join(dir, DefaultFilename))
	assert.NoError(db.Save(map[string]*Entry{"A": newEntry()}))
	assert.NoError(db.Save(map[string]*Entry{"B": newEntry()}))

	names, err := os.ReadDir(dir)
	assert.NoError(err)
	assert.Len(names, 1)
	assert.Equal(DefaultFilename, names[0].Name())

	entries, err := db.Load()
	assert.NoError(err)
	assert.Contains(entries, "B")
	assert.NotContains(entries, "A")
}
