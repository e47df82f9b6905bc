package audio_archiver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"
)

func writeArchive(t *testing.T, dir string, name string, entries ...zipEntry) string {
	path := filepath.Join(dir, name)
	require_.NoError(t, os.WriteFile(path, makeZip(t, entries...), 0644))
	return path
}

func TestIsArchiveName(t *testing.T) {
	assert := assert_.New(t)
	assert.True(IsArchiveName("Chimes.zip"))
	assert.True(IsArchiveName("CHIMES.ZIP"))
	assert.False(IsArchiveName("chimes.mp3"))
	assert.False(IsArchiveName("zip"))
}

func TestIsJunkEntry(t *testing.T) {
	assert := assert_.New(t)
	for _, name := range []string{
		"__MACOSX/", "__MACOSX/Disc1/._track1.mp3", ".DS_Store", "Disc1/.DS_Store", "._cover.jpg", "Thumbs.db", "art/desktop.ini",
		"__MACOSX\\._track1.mp3", "Disc1\\__MACOSX\\track1.mp3", "Disc1\\.DS_Store",
	} {
		assert.True(IsJunkEntry(name), name)
	}
	for _, name := range []string{"track1.mp3", "Disc1/track1.mp3", "MACOSX/track.mp3", "_cover.jpg"} {
		assert.False(IsJunkEntry(name), name)
	}
}

func TestDestination(t *testing.T) {
	assert := assert_.New(t)
	n := NewNormalizer(t.TempDir())

	cases := map[string]string{
		"cover.jpg":         filepath.Join("the-chimes-of-midnight", "cover.jpg"),
		"./track1.mp3":      filepath.Join("the-chimes-of-midnight", "track1.mp3"),
		"Disc1/track1.mp3":  filepath.Join("Disc1", "track1.mp3"),
		"Disc1\\track2.mp3": filepath.Join("Disc1", "track2.mp3"),
		"a/./b/../c/d.mp3":  filepath.Join("a", "c", "d.mp3"),
	}
	for name, expected := range cases {
		dest, err := n.Destination("The Chimes of Midnight", name)
		assert.NoError(err, name)
		assert.Equal(expected, dest, name)
	}

	for _, name := range []string{"../evil.mp3", "/etc/passwd", "Disc1/../../evil.mp3"} {
		_, err := n.Destination("The Chimes of Midnight", name)
		assert.Error(err, name)
	}

	dest, err := n.Destination("!!!", "track1.mp3")
	assert.NoError(err)
	assert.Equal(filepath.Join("unknown", "track1.mp3"), dest)
}

func TestNormalizeFlat(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	archive := writeArchive(t, dir, "chimes.zip",
		zipEntry{"cover.jpg", "jpeg"},
		zipEntry{"track1.mp3", "track one"},
		zipEntry{".DS_Store", "junk"},
		zipEntry{"__MACOSX/._track1.mp3", "junk"},
		zipEntry{"__MACOSX\\._cover.jpg", "junk"},
	)

	result, err := NewNormalizer(out).Normalize(context.Background(), "The Chimes of Midnight", archive)
	require.NoError(err)
	assert.Equal(ExtractResult{Written: 2, Junk: 3, Bytes: int64(len("jpeg") + len("track one"))}, result)
	assert.ElementsMatch([]string{
		"the-chimes-of-midnight/cover.jpg",
		"the-chimes-of-midnight/track1.mp3",
	}, listFiles(t, out))
	data, err := os.ReadFile(filepath.Join(out, "the-chimes-of-midnight", "track1.mp3"))
	require.NoError(err)
	assert.Equal("track one", string(data))

	// Running again finds everything already in place.
	result, err = NewNormalizer(out).Normalize(context.Background(), "The Chimes of Midnight", archive)
	require.NoError(err)
	assert.Equal(ExtractResult{Unchanged: 2, Junk: 3}, result)
}

func TestNormalizeNested(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	archive := writeArchive(t, dir, "dalek-empire.zip",
		zipEntry{"Disc1/", ""},
		zipEntry{"Disc1/track1.mp3", "one"},
		zipEntry{"Disc2/track1.mp3", "two"},
		zipEntry{"__MACOSX/Disc1/._track1.mp3", "junk"},
		zipEntry{"Disc1/Thumbs.db", "junk"},
	)

	result, err := NewNormalizer(out).Normalize(context.Background(), "Dalek Empire", archive)
	assert.NoError(err)
	assert.Equal(2, result.Written)
	assert.ElementsMatch([]string{"Disc1/track1.mp3", "Disc2/track1.mp3"}, listFiles(t, out))
	assert.NoDirExists(filepath.Join(out, "__MACOSX"))
}

func TestNormalizeReplacesPartialExtraction(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	archive := writeArchive(t, dir, "a.zip", zipEntry{"A/track1.mp3", "complete track"})
	assert.NoError(os.MkdirAll(filepath.Join(out, "A"), 0755))
	assert.NoError(os.WriteFile(filepath.Join(out, "A", "track1.mp3"), []byte("compl"), 0644))

	result, err := NewNormalizer(out).Normalize(context.Background(), "A", archive)
	assert.NoError(err)
	assert.Equal(1, result.Written)
	data, _ := os.ReadFile(filepath.Join(out, "A", "track1.mp3"))
	assert.Equal("complete track", string(data))
}

func TestNormalizeNotArchive(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "fake.zip")
	assert.NoError(os.WriteFile(path, []byte("this is an mp3, honest"), 0644))

	_, err := NewNormalizer(filepath.Join(dir, "out")).Normalize(context.Background(), "Fake", path)
	assert.ErrorIs(err, ErrExtractionFailed)
	assert.ErrorIs(err, ErrNotArchive)
	assert.NoDirExists(filepath.Join(dir, "out"))
}

func TestNormalizeRejectsEscapingEntries(t *testing.T) {
	assert := assert_.New(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	archive := writeArchive(t, dir, "evil.zip", zipEntry{"../evil.txt", "gotcha"})

	_, err := NewNormalizer(out).Normalize(context.Background(), "Evil", archive)
	assert.ErrorIs(err, ErrExtractionFailed)
	assert.NoFileExists(filepath.Join(dir, "evil.txt"))
}

func TestNormalizeCancelled(t *testing.T) {
	dir := t.TempDir()
	archive := writeArchive(t, dir, "a.zip", zipEntry{"track1.mp3", "one"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewNormalizer(filepath.Join(dir, "out")).Normalize(ctx, "A", archive)
	assert_.ErrorIs(t, err, context.Canceled)
}
