package util

import (
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
)

var (
	ErrNoFilename = errors.New("cannot extract valid filename")
)

// FilenameFromContentDisposition extracts the filename parameter of a Content-Disposition header value, decoding
// RFC 2231 extended values, and reduces it to a safe single path element.
func FilenameFromContentDisposition(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", fmt.Errorf("%w: no Content-Disposition", ErrNoFilename)
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		// Plenty of servers send filename=Some Name.zip without quoting it.
		if filename, ok := unquotedFilename(header); ok {
			return SanitizeFilename(filename)
		}
		return "", fmt.Errorf("%w: %v", ErrNoFilename, err)
	}
	filename, ok := params["filename"]
	if !ok {
		return "", fmt.Errorf("%w: no filename parameter", ErrNoFilename)
	}
	return SanitizeFilename(filename)
}

// unquotedFilename takes the text after filename= up to the next ';'. Quoted values are left to mime, which has
// already rejected them.
func unquotedFilename(header string) (string, bool) {
	for _, param := range strings.Split(header, ";")[1:] {
		key, value, found := strings.Cut(param, "=")
		if !found || !strings.EqualFold(strings.TrimSpace(key), "filename") {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" || strings.ContainsRune(value, '"') {
			return "", false
		}
		return value, true
	}
	return "", false
}

// SanitizeFilename keeps only the final element of a (possibly Windows-style) path, so a remote name can never
// place a file outside the target directory.
func SanitizeFilename(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimSpace(path.Base(strings.Trim(name, "/")))
	if name == "" || name == "/" {
		return "", ErrNoFilename
	}
	// Don't allow "filenames" that are just ".", "..", etc.
	if strings.ReplaceAll(name, ".", "") == "" {
		return "", ErrNoFilename
	}
	if strings.ContainsRune(name, 0) {
		return "", ErrNoFilename
	}
	return name, nil
}
