// Package bigfinish reads the purchased library from the Big Finish website: log in with a form POST, fetch the
// account page listing every title, and pick out the download buttons.
package bigfinish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/alanbriolat/audio-archiver/catalog"
)

const (
	DefaultBaseURL = "https://www.bigfinish.com"
	loginPath      = "/customers/login"
	libraryPath    = "/customers/my_account/perpage:0"
)

var (
	ErrNoCredentials = errors.New("no credentials")
	ErrNotLoggedIn   = errors.New("not logged in")
)

// Source is a catalog source backed by the website. The client must be the one later used to fetch downloads,
// because the download links only work with the session cookie set by Login.
type Source struct {
	client   *http.Client
	base     *url.URL
	user     string
	password string
	saveHTML string
	log      *zap.SugaredLogger
}

func New(client *http.Client, baseURL string, user string, password string) (*Source, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Source{
		client:   client,
		base:     base,
		user:     user,
		password: password,
		log:      zap.S().Named("bigfinish"),
	}, nil
}

// WithSaveHTML makes Catalog write the raw library page to path, for inspection or a later offline run.
func (s *Source) WithSaveHTML(path string) *Source {
	s.saveHTML = path
	return s
}

func (s *Source) Catalog(ctx context.Context) ([]catalog.Item, error) {
	if err := s.Login(ctx); err != nil {
		return nil, err
	}
	html, err := s.LibraryHTML(ctx)
	if err != nil {
		return nil, err
	}
	if s.saveHTML != "" {
		if err := os.WriteFile(s.saveHTML, html, 0600); err != nil {
			s.log.Warnw("failed to save library page", "path", s.saveHTML, "error", err)
		} else {
			s.log.Infow("saved library page", "path", s.saveHTML)
		}
	}
	s.log.Debug("parsing library")
	items, err := ParseLibraryHTML(html, s.base)
	if err != nil {
		return nil, err
	}
	s.log.Infow("read library", "items", len(items))
	return items, nil
}

// Login visits the front page for its cookies, then posts the login form. Whether it worked only shows once the
// library page is fetched.
func (s *Source) Login(ctx context.Context) error {
	if s.user == "" || s.password == "" {
		return ErrNoCredentials
	}
	s.log.Infow("logging in", "user", s.user)
	if _, err := s.get(ctx, s.base.String()+"/"); err != nil {
		return fmt.Errorf("failed to load front page: %w", err)
	}

	form := url.Values{}
	form.Set("_method", "POST")
	form.Set("data[post_action]", "login")
	form.Set("data[Customer][email_address]", s.user)
	form.Set("data[Customer][password]", s.password)
	form.Set("data[remember_me]", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base.String()+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 400 {
		return fmt.Errorf("login failed: HTTP %s", resp.Status)
	}
	s.log.Debugw("login completed", "status", resp.StatusCode)
	return nil
}

// LibraryHTML fetches the account page listing the whole library.
func (s *Source) LibraryHTML(ctx context.Context) ([]byte, error) {
	s.log.Info("retrieving complete library")
	return s.get(ctx, s.base.String()+libraryPath)
}

func (s *Source) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected HTTP status %s from %s", resp.Status, u)
	}
	return io.ReadAll(resp.Body)
}

// FileSource reads a previously saved library page instead of logging in.
type FileSource struct {
	Path string
	Base *url.URL
}

func NewFileSource(path string, baseURL string) (*FileSource, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	return &FileSource{Path: path, Base: base}, nil
}

func (s *FileSource) Catalog(_ context.Context) ([]catalog.Item, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseLibrary(f, s.Base)
}
