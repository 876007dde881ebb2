package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_Defaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(filepath.Join(dir, "config.toml")))

	assert.Equal(t, dir, GetConfigDir())
	assert.Equal(t, "http://localhost:8787", GetString("api.base_url"))
	assert.Equal(t, 10, GetInt("api.timeout"))
	assert.Equal(t, 10*time.Second, GetSeconds("api.timeout"))
	assert.Equal(t, "local", GetString("drafts.backend"))
	assert.Equal(t, 500*time.Millisecond, GetMillis("drafts.autosave_ms"))
	assert.Equal(t, time.Second, GetMillis("tracking.scroll_flush_ms"))
	assert.Equal(t, filepath.Join(dir, "state.json"), GetStatePath())
	assert.Equal(t, filepath.Join(dir, "studyctl.log"), GetString("log.file"))
}

func TestInit_ReadsTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[api]
base_url = "https://study.example"
timeout = 3

[drafts]
backend = "remote"
autosave_ms = 250
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	require.NoError(t, Init(path))

	assert.Equal(t, "https://study.example", GetString("api.base_url"))
	assert.Equal(t, 3, GetInt("api.timeout"))
	assert.Equal(t, "remote", GetString("drafts.backend"))
	assert.Equal(t, 250*time.Millisecond, GetMillis("drafts.autosave_ms"))
	assert.Equal(t, "text", GetString("output.format"))
}

func TestInit_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "location")
	require.NoError(t, Init(filepath.Join(dir, "config.toml")))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSetOverridesForProcess(t *testing.T) {
	require.NoError(t, Init(filepath.Join(t.TempDir(), "config.toml")))
	Set("output.format", "json")
	assert.Equal(t, "json", GetString("output.format"))
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "logs/studyctl.log"), expandHome("~/logs/studyctl.log"))
	assert.Equal(t, "/var/log/x", expandHome("/var/log/x"))
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("STUDYCTL_API_BASE_URL", "https://env.example")
	require.NoError(t, Init(filepath.Join(t.TempDir(), "config.toml")))
	assert.Equal(t, "https://env.example", GetString("api.base_url"))
}

func TestDefaultDirFromEnv(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "home")
	t.Setenv(DirEnv, dir)
	require.NoError(t, Init(""))
	assert.Equal(t, dir, GetConfigDir())
	assert.Equal(t, filepath.Join(dir, "state.json"), GetStatePath())
}
