package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"
)

func TestClientSetsUserAgentAndKeepsCookies(t *testing.T) {
	assert := assert_.New(t)
	var agents []string
	var cookies []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents = append(agents, r.Header.Get("User-Agent"))
		if c, err := r.Cookie("session"); err == nil {
			cookies = append(cookies, c.Value)
		}
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
	}))
	defer server.Close()

	client, err := NewClient(Options{UserAgent: "test-agent"})
	require_.NoError(t, err)
	for i := 0; i < 2; i++ {
		resp, err := client.Get(server.URL)
		require_.NoError(t, err)
		resp.Body.Close()
	}
	assert.Equal([]string{"test-agent", "test-agent"}, agents)
	assert.Equal([]string{"abc"}, cookies)
}

func TestRateLimitHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client, err := NewClient(Options{RequestsPerSecond: 0.01, Burst: 1})
	require_.NoError(t, err)
	resp, err := client.Get(server.URL)
	require_.NoError(t, err)
	resp.Body.Close()

	// The next token is 100s away, so a short deadline must fail instead of blocking.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	require_.NoError(t, err)
	_, err = client.Do(req)
	assert_.Error(t, err)
}
