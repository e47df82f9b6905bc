package audio_archiver

import (
	"archive/zip"
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	require_ "github.com/stretchr/testify/require"

	"github.com/alanbriolat/audio-archiver/catalog"
)

// remoteFile is one download served by fileServer.
type remoteFile struct {
	filename string
	body     []byte
	// noDisposition omits Content-Disposition, so the filename cannot be resolved.
	noDisposition bool
	// rejectHead answers HEAD with 405, as some servers do.
	rejectHead bool
	// truncateAt, if positive, ends the GET body early after that many bytes.
	truncateAt int
	// stall makes GET send a few bytes and then wait for the client to go away.
	stall bool
	// delay holds the response back until the client gives up or the time passes.
	delay time.Duration
}

// fileServer serves remoteFiles by path and counts requests.
type fileServer struct {
	*httptest.Server
	mu     sync.Mutex
	files  map[string]remoteFile
	heads  int
	gets   int
	ranged int
	// onGet is called with the lock held for each full GET of a known file.
	onGet func(r *http.Request)
}

func newFileServer(t *testing.T, files map[string]remoteFile) *fileServer {
	s := &fileServer{files: files}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *fileServer) url(path string) string {
	return s.URL + path
}

func (s *fileServer) counts() (heads int, gets int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.heads, s.gets
}

func (s *fileServer) rangedGets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ranged
}

func (s *fileServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	f, ok := s.files[r.URL.Path]
	switch r.Method {
	case http.MethodHead:
		s.heads++
	case http.MethodGet:
		s.gets++
		if r.Header.Get("Range") != "" {
			s.ranged++
		} else if ok && s.onGet != nil {
			s.onGet(r)
		}
	}
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if f.delay > 0 {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(f.delay):
		}
	}
	if r.Method == http.MethodHead && f.rejectHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !f.noDisposition {
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, f.filename))
	}
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Length", fmt.Sprint(len(f.body)))
		return
	}
	if r.Header.Get("Range") != "" {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes 0-0/%d", len(f.body)))
		w.WriteHeader(http.StatusPartialContent)
		_, _ = w.Write(f.body[:1])
		return
	}
	w.Header().Set("Content-Length", fmt.Sprint(len(f.body)))
	switch {
	case f.stall:
		_, _ = w.Write(f.body[:len(f.body)/2])
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	case f.truncateAt > 0:
		_, _ = w.Write(f.body[:f.truncateAt])
	default:
		_, _ = w.Write(f.body)
	}
}

type zipEntry struct {
	name    string
	content string
}

func makeZip(t *testing.T, entries ...zipEntry) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, e := range entries {
		f, err := w.Create(e.name)
		require_.NoError(t, err)
		_, err = f.Write([]byte(e.content))
		require_.NoError(t, err)
	}
	require_.NoError(t, w.Close())
	return buf.Bytes()
}

func newStore(t *testing.T, items ...catalog.Item) *catalog.Store {
	store, err := catalog.Load(catalog.NilDatabase{})
	require_.NoError(t, err)
	store.Merge(items)
	return store
}

// listFiles returns every file under dir as slash-separated relative paths.
func listFiles(t *testing.T, dir string) []string {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			rel, _ := filepath.Rel(dir, path)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	require_.NoError(t, err)
	return files
}

func hasPartials(files []string) bool {
	for _, f := range files {
		if strings.HasSuffix(f, ".part") {
			return true
		}
	}
	return false
}
