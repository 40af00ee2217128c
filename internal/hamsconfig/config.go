// Package hamsconfig loads the sample daemon's configuration file and
// environment overrides. It is a collaborator of the HaMS core, not
// part of it — the core never parses configuration itself.
package hamsconfig

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// KickProbe describes a dead-man probe to register on startup.
type KickProbe struct {
	Name   string        `mapstructure:"name"`
	Margin time.Duration `mapstructure:"margin"`
	Ready  bool          `mapstructure:"ready"`
}

// Config is the sample daemon's configuration.
type Config struct {
	Name        string        `mapstructure:"name"`
	Version     string        `mapstructure:"version"`
	BindAddress string        `mapstructure:"bind_address"`
	GracePeriod time.Duration `mapstructure:"grace_period"`
	KickProbes  []KickProbe   `mapstructure:"kick_probes"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("name", "hamsd")
	v.SetDefault("bind_address", "0.0.0.0:8079")
	v.SetDefault("grace_period", 5*time.Second)
}

// Load reads configuration from file (YAML) and environment overrides,
// in the manner of sonobuoy's pkg/worker.LoadConfig: a config name/type,
// a couple of search paths, and an env var that forces a specific file.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigName("hamsd")
	v.AddConfigPath("/etc/hamsd")
	v.AddConfigPath(".")

	if forced := os.Getenv("HAMSD_CONFIG"); forced != "" {
		v.SetConfigFile(forced)
	}

	v.SetEnvPrefix("hamsd")
	_ = v.BindEnv("bind_address", "HAMSD_BIND_ADDRESS")
	_ = v.BindEnv("name", "HAMSD_NAME")

	setDefaults(v)

	cfg := &Config{}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "reading hamsd config")
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decoding hamsd config")
	}

	return cfg, nil
}
