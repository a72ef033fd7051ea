// Package config defines the Config struct cmd/ibackup resolves from cobra
// flags, environment variables, and an optional config file, via viper. The
// core package internal/backup never reads config itself — cmd/ibackup
// resolves Config and passes explicit values into backup.Open/backup.Options.
package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the values cmd/ibackup resolves before calling into
// internal/backup.
type Config struct {
	// UseOldFileConvention selects the pre-content-addressed physical blob
	// layout (<root>/<file_id> instead of <root>/<aa>/<file_id>).
	UseOldFileConvention bool `mapstructure:"use-old-file-convention"`
	// BypassManifest skips manifest-key unwrap and treats the backup as if
	// it were unencrypted; useful for diagnosing malformed key bags.
	BypassManifest bool `mapstructure:"bypass-manifest"`
	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `mapstructure:"log-level"`
}

// Load builds a viper instance bound to an optional config file,
// IBACKUP_<FLAG_NAME> environment variable overrides, and flags (in
// increasing order of priority), then unmarshals the result into a Config.
// flags is bound via viper.BindPFlags so an explicitly passed flag always
// wins over the config file or environment; nil skips flag binding.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("IBACKUP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "warn")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
