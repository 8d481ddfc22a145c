package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erikbos/wavesync/config"
)

func TestSetupLogfile(t *testing.T) {
	l := logrus.New()
	path := filepath.Join(t.TempDir(), "server.log")

	closer, err := setup(l, config.Log{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)

	l.WithField("track", "jfKfPfyJRdk").Debug("playing")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"track":"jfKfPfyJRdk"`)
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
}

func TestSetupDefaultsAndErrors(t *testing.T) {
	l := logrus.New()

	_, err := setup(l, config.Log{Level: "nonsense", Output: "none"})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())

	_, err = setup(l, config.Log{Format: "xml"})
	assert.Error(t, err)
}
