package audio_archiver

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/alanbriolat/audio-archiver/generic"
)

// fallbackSlug names the directory for flat archives whose title slugifies to nothing.
const fallbackSlug = "unknown"

var (
	archiveExtensions = generic.NewSet(".zip")
	junkDirectories   = generic.NewSet("__MACOSX")
	junkFiles         = generic.NewSet(".DS_Store", "Thumbs.db", "desktop.ini")
)

// IsArchiveName returns true if filename has an archive extension. The content still has to be checked.
func IsArchiveName(filename string) bool {
	return archiveExtensions.Contains(strings.ToLower(filepath.Ext(filename)))
}

// IsJunkEntry returns true for archive entries that are packaging debris rather than content: macOS resource fork
// directories and AppleDouble files, Finder and Explorer metadata.
func IsJunkEntry(name string) bool {
	name = strings.ReplaceAll(name, "\\", "/")
	parts := strings.Split(strings.Trim(name, "/"), "/")
	for _, part := range parts[:len(parts)-1] {
		if junkDirectories.Contains(part) {
			return true
		}
	}
	base := parts[len(parts)-1]
	return junkDirectories.Contains(base) || junkFiles.Contains(base) || strings.HasPrefix(base, "._")
}

// ExtractResult counts what Normalize did with one archive.
type ExtractResult struct {
	Written   int
	Unchanged int
	Junk      int
	Bytes     int64
}

// A Normalizer unpacks downloaded archives into outputDir. Entries that already sit in a directory inside the
// archive keep that path; entries stored at the top level go into a directory named by slugifying the title.
type Normalizer struct {
	outputDir string
}

func NewNormalizer(outputDir string) *Normalizer {
	return &Normalizer{outputDir: outputDir}
}

// Destination returns the path (relative to the output directory) an archive entry extracts to, or an error if the
// entry would land outside it.
func (n *Normalizer) Destination(title string, name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	clean := path.Clean(strings.TrimPrefix(name, "./"))
	if path.IsAbs(clean) || !filepath.IsLocal(filepath.FromSlash(clean)) {
		return "", fmt.Errorf("unsafe archive entry %q", name)
	}
	if strings.Contains(clean, "/") {
		return filepath.FromSlash(clean), nil
	}
	slug := Slugify(title)
	if slug == "" {
		slug = fallbackSlug
	}
	return filepath.Join(slug, clean), nil
}

// Normalize extracts the archive at archivePath for title. Entries whose destination already holds a file of the
// right size are left alone, so an interrupted extraction simply carries on when repeated. Nothing is rolled back
// on failure. Errors wrap ErrExtractionFailed (and ErrNotArchive if the content is not an archive at all).
func (n *Normalizer) Normalize(ctx context.Context, title string, archivePath string) (result ExtractResult, err error) {
	log := Logger(ctx).Named("extract").Sugar().With("title", title, "archive", filepath.Base(archivePath))

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		if r != nil {
			_ = r.Close()
		}
		return result, fmt.Errorf("%w: %w: %w", ErrExtractionFailed, ErrNotArchive, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
		}
		if IsJunkEntry(f.Name) {
			result.Junk++
			continue
		}
		if f.FileInfo().IsDir() {
			continue
		}
		rel, err := n.Destination(title, f.Name)
		if err != nil {
			return result, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
		}
		dest := filepath.Join(n.outputDir, rel)

		if info, err := os.Stat(dest); err == nil && info.Mode().IsRegular() && uint64(info.Size()) == f.UncompressedSize64 {
			result.Unchanged++
			continue
		}
		log.Debugw("extracting", "entry", f.Name, "dest", rel)
		written, err := extractFile(f, dest)
		if err != nil {
			return result, fmt.Errorf("%w: %s: %w", ErrExtractionFailed, f.Name, err)
		}
		result.Written++
		result.Bytes += written
	}
	log.Infow("archive normalized", "written", result.Written, "unchanged", result.Unchanged, "junk", result.Junk)
	return result, nil
}

func extractFile(f *zip.File, dest string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, err
	}
	src, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return 0, err
	}
	written, err := io.Copy(out, src)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return written, err
	}
	if !f.Modified.IsZero() {
		if err := os.Chtimes(dest, f.Modified, f.Modified); err != nil && !errors.Is(err, os.ErrPermission) {
			return written, err
		}
	}
	return written, nil
}
