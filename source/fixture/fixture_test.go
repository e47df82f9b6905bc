package fixture

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"

	"github.com/alanbriolat/audio-archiver/catalog"
)

func TestCatalog(t *testing.T) {
	assert := assert_.New(t)
	path := filepath.Join(t.TempDir(), "catalog.json")
	assert.NoError(os.WriteFile(path, []byte(`{
  "Zagreus": {"mp3": "https://example.com/z/mp3"},
  "Jubilee": {"mp3": "https://example.com/j/mp3", "audiobook": "https://example.com/j/ab"}
}`), 0644))

	items, err := New(path).Catalog(context.Background())
	assert.NoError(err)
	assert.Equal([]catalog.Item{
		{Title: "Jubilee", Format: catalog.FormatAudiobook, URL: "https://example.com/j/ab"},
		{Title: "Jubilee", Format: catalog.FormatMP3, URL: "https://example.com/j/mp3"},
		{Title: "Zagreus", Format: catalog.FormatMP3, URL: "https://example.com/z/mp3"},
	}, items)
}

func TestCatalogErrors(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.json")).Catalog(context.Background())
	assert_.Error(t, err)
	_, err = Parse([]byte(`["not", "a", "map"]`))
	assert_.Error(t, err)
}
