package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	c, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.Listen.Address)
	assert.Equal(t, "wavesync.db", c.Database.Sqlite.Filename)
	assert.Equal(t, "memory", c.Realtime.Type)
	assert.Equal(t, time.Second, c.Player.PollInterval)
	assert.Equal(t, 30*time.Minute, c.Player.IdleTimeout)
	assert.Equal(t, 10*time.Second, c.RequestTimeout)
	assert.Equal(t, []string{"*"}, c.Cors.Origins)
}

func TestLoadFileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "wavesync.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
listen:
  address: ":9000"
log:
  level: debug
search:
  apikey: from-file
request_timeout: 3s
player:
  fallbacktracks:
    - videoid: jfKfPfyJRdk
      title: lofi hip hop radio
      artist: Lofi Girl
`), 0o644))

	t.Setenv("WAVESYNC_SEARCH_APIKEY", "from-env")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	Flags(fs)
	require.NoError(t, fs.Parse([]string{"--config", file, "--loglevel", "warn"}))

	c, err := Load(fs)
	require.NoError(t, err)
	assert.Equal(t, ":9000", c.Listen.Address)
	assert.Equal(t, "from-env", c.Search.APIKey)
	assert.Equal(t, "warn", c.Log.Level)
	assert.Equal(t, 3*time.Second, c.RequestTimeout)
	require.Len(t, c.Player.FallbackTracks, 1)
	assert.Equal(t, "jfKfPfyJRdk", c.Player.FallbackTracks[0].VideoID)
	assert.Equal(t, "Lofi Girl", c.Player.FallbackTracks[0].Artist)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("WAVESYNC_STORAGE_TYPE", "gcs")
	_, err := Load(nil)
	assert.Error(t, err)

	t.Setenv("WAVESYNC_STORAGE_BUCKET", "avatars")
	_, err = Load(nil)
	assert.NoError(t, err)
}

func TestEnvKeyReplacer(t *testing.T) {
	assert.Equal(t, "database_sqlite_filename", EnvKeyReplacer.Replace("database.sqlite.filename"))
}
