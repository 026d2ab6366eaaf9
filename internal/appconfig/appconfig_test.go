package appconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	require.Equal(t, "0.0.0.0:8303", cfg.Listen)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, 25, cfg.Net.SnapshotHistory)
}

func TestLoadWithNoPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
}

func TestLoadFromYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "netstackd.yaml")
	contents := `
listen: "0.0.0.0:9999"
log:
  level: debug
net:
  snapshot_history: 10
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9999", cfg.Listen)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, 10, cfg.Net.SnapshotHistory)
	require.Equal(t, Default().Metrics, cfg.Metrics)
}

func TestLoadUnknownFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
