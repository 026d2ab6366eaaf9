// Package appconfig loads the demo binaries' configuration from a YAML
// file with environment-variable overrides, via viper, mirroring the
// loader pattern in the retrieved pack's otus config package.
package appconfig

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/teeworlds-go/netstack/internal/applog"
)

// Config is the full configuration surface for cmd/netstackd.
type Config struct {
	Listen  string        `mapstructure:"listen"`
	Log     applog.Config `mapstructure:"log"`
	Net     NetConfig     `mapstructure:"net"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// NetConfig exposes the connection-level timers and caps defined by
// pkg/conn.Config and pkg/snapshot.History as config-file knobs instead
// of compiled-in constants.
type NetConfig struct {
	KeepaliveInterval time.Duration `mapstructure:"keepalive_interval"`
	Timeout           time.Duration `mapstructure:"timeout"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	ResendInterval    time.Duration `mapstructure:"resend_interval"`
	SnapshotHistory   int           `mapstructure:"snapshot_history"`
}

// MetricsConfig controls the demo server's Prometheus HTTP exporter.
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// Default returns the configuration used when no file and no
// environment overrides are present.
func Default() Config {
	return Config{
		Listen: "0.0.0.0:8303",
		Log:    applog.DefaultConfig(),
		Net: NetConfig{
			KeepaliveInterval: 25 * time.Second,
			Timeout:           10 * time.Second,
			ConnectTimeout:    10 * time.Second,
			ResendInterval:    50 * time.Millisecond,
			SnapshotHistory:   25,
		},
		Metrics: MetricsConfig{Listen: "127.0.0.1:9303"},
	}
}

// Load reads path (YAML) with NETSTACKD_-prefixed environment overrides
// layered on top, falling back to Default for anything left unset. An
// empty path skips the file and returns Default with env overrides only.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("NETSTACKD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	// AutomaticEnv only consults the environment for keys viper already
	// knows, so bind every config key for overrides without a file.
	for _, key := range []string{
		"listen", "metrics.listen",
		"log.level", "log.format", "log.file_path", "log.max_size_mb",
		"log.max_backups", "log.max_age_days", "log.compress",
		"net.keepalive_interval", "net.timeout", "net.connect_timeout",
		"net.resend_interval", "net.snapshot_history",
	} {
		_ = v.BindEnv(key)
	}

	if path != "" {
		dir := filepath.Dir(path)
		base := filepath.Base(path)
		ext := filepath.Ext(base)
		v.SetConfigName(strings.TrimSuffix(base, ext))
		v.SetConfigType(strings.TrimPrefix(ext, "."))
		v.AddConfigPath(dir)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("appconfig: reading %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("appconfig: unmarshalling config: %w", err)
	}
	return cfg, nil
}
