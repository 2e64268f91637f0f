// Package config loads exosky settings from defaults, an optional config
// file, EXOSKY_* environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/litescript/exosky/internal/catalog"
)

// EnvPrefix is the prefix for environment overrides, e.g. EXOSKY_API_URL.
const EnvPrefix = "EXOSKY"

// Config holds runtime settings.
type Config struct {
	APIURL            string        `mapstructure:"api_url"`
	LimitingMagnitude float64       `mapstructure:"limiting_magnitude"`
	ExoplanetLimit    int           `mapstructure:"exoplanet_limit"`
	Timeout           time.Duration `mapstructure:"timeout"`
	LogLevel          string        `mapstructure:"log_level"`
	LogFile           string        `mapstructure:"log_file"`
	DownloadDir       string        `mapstructure:"download_dir"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("api_url", catalog.DefaultBaseURL)
	v.SetDefault("limiting_magnitude", catalog.DefaultLimitingMagnitude)
	v.SetDefault("exoplanet_limit", catalog.DefaultExoplanetLimit)
	v.SetDefault("timeout", catalog.DefaultTimeout)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "exosky.log")
	v.SetDefault("download_dir", ".")
}

// Load reads configuration into a Config. configFile may be empty, in which
// case exosky.yaml is looked up in the working directory and
// $HOME/.config/exosky; a missing file is not an error.
func Load(v *viper.Viper, configFile string) (Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("exosky")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/exosky")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return errors.New("api_url must not be empty")
	}
	if c.ExoplanetLimit <= 0 {
		return fmt.Errorf("exoplanet_limit must be positive, got %d", c.ExoplanetLimit)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// ClientOptions returns the catalog client options for this config.
func (c Config) ClientOptions() []catalog.ClientOption {
	return []catalog.ClientOption{
		catalog.WithBaseURL(c.APIURL),
		catalog.WithTimeout(c.Timeout),
	}
}
