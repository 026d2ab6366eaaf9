package applog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsInvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "not-a-level"})
	require.Error(t, err)
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	_, err := New(Config{Level: "info", Format: "xml"})
	require.Error(t, err)
}

func TestNewDefaultsToTextFormat(t *testing.T) {
	log, err := New(DefaultConfig())
	require.NoError(t, err)
	require.IsType(t, &logrus.TextFormatter{}, log.Formatter)
	require.Equal(t, logrus.InfoLevel, log.Level)
}

func TestNewWithFilePathAddsRotatingHook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netstackd.log")
	log, err := New(Config{Level: "info", Format: "json", FilePath: path})
	require.NoError(t, err)
	require.Len(t, log.Hooks[logrus.InfoLevel], 1)

	log.Info("hello")
	_, err = os.Stat(path)
	require.NoError(t, err)
}
