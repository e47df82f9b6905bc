package config

import (
	"os"
	"path/filepath"
	"testing"

	assert_ "github.com/stretchr/testify/assert"
	require_ "github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	assert := assert_.New(t)
	t.Setenv("HOME", t.TempDir())

	cfg, exists, err := Load("")
	assert.NoError(err)
	assert.False(exists)
	assert.Equal("mp3", cfg.Download.Prefer)
	assert.Equal("json", cfg.Download.Database)
	assert.Equal(30, cfg.Download.ProbeTimeoutSeconds)
	assert.True(filepath.IsAbs(cfg.Paths.TargetDir))
}

func TestLoadFile(t *testing.T) {
	assert := assert_.New(t)
	require := require_.New(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, "config.toml")
	require.NoError(os.WriteFile(path, []byte(`
[account]
user = " someone@example.com "
base_url = "http://localhost:8080/"

[paths]
target_dir = "~/Audio"

[download]
prefer = "Audiobook"
database = "bolt"
rate_limit = 0.5
`), 0644))

	cfg, exists, err := Load(path)
	require.NoError(err)
	assert.True(exists)
	assert.Equal("someone@example.com", cfg.Account.User)
	assert.Equal("http://localhost:8080", cfg.Account.BaseURL)
	assert.Equal(filepath.Join(home, "Audio"), cfg.Paths.TargetDir)
	assert.Equal("audiobook", cfg.Download.Prefer)
	assert.Equal("bolt", cfg.Download.Database)
	assert.Equal(0.5, cfg.Download.RateLimit)
	assert.Equal(1, cfg.Download.Burst)
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"unknown format": "[download]\nprefer = \"flac\"\n",
		"unknown field":  "[download]\nspeed = 3\n",
		"bad database":   "[download]\ndatabase = \"sqlite\"\n",
		"bad timeout":    "[download]\nprobe_timeout_seconds = 0\n",
		"not toml":       "this is = = not toml",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".toml")
			require_.NoError(t, os.WriteFile(path, []byte(content), 0644))
			_, _, err := Load(path)
			assert_.Error(t, err)
		})
	}
}
