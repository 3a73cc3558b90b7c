package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	DataForSEO DataForSEOConfig `yaml:"dataforseo" mapstructure:"dataforseo"`
	Places     PlacesConfig     `yaml:"places" mapstructure:"places"`
	Grid       GridConfig       `yaml:"grid" mapstructure:"grid"`
	Poll       PollConfig       `yaml:"poll" mapstructure:"poll"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// DataForSEOConfig holds provider credentials and task defaults.
type DataForSEOConfig struct {
	Login        string  `yaml:"login" mapstructure:"login"`
	Password     string  `yaml:"password" mapstructure:"password"`
	BaseURL      string  `yaml:"base_url" mapstructure:"base_url"`
	Depth        int     `yaml:"depth" mapstructure:"depth"`
	Device       string  `yaml:"device" mapstructure:"device"`
	LanguageCode string  `yaml:"language_code" mapstructure:"language_code"`
	RatePerSec   float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// PlacesConfig holds the Places API key used for target resolution.
type PlacesConfig struct {
	Key string `yaml:"key" mapstructure:"key"`
}

// GridConfig holds default grid shape parameters.
type GridConfig struct {
	Size          int     `yaml:"size" mapstructure:"size"`
	SpacingMeters float64 `yaml:"spacing_meters" mapstructure:"spacing_meters"`
	Zoom          string  `yaml:"zoom" mapstructure:"zoom"`
	ProfilesPath  string  `yaml:"profiles_path" mapstructure:"profiles_path"`
}

// PollConfig configures the poll loop cadence.
type PollConfig struct {
	IntervalMS      int `yaml:"interval_ms" mapstructure:"interval_ms"`
	ErrorIntervalMS int `yaml:"error_interval_ms" mapstructure:"error_interval_ms"`
	MaxAttempts     int `yaml:"max_attempts" mapstructure:"max_attempts"`
	Concurrency     int `yaml:"concurrency" mapstructure:"concurrency"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RANKGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Secrets default to empty so env-only values still bind
	// through Unmarshal.
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "rankgrid.db")
	v.SetDefault("store.database_url", "")
	v.SetDefault("dataforseo.login", "")
	v.SetDefault("dataforseo.password", "")
	v.SetDefault("dataforseo.base_url", "")
	v.SetDefault("places.key", "")
	v.SetDefault("grid.profiles_path", "")
	v.SetDefault("dataforseo.depth", 50)
	v.SetDefault("dataforseo.device", "desktop")
	v.SetDefault("dataforseo.language_code", "en")
	v.SetDefault("dataforseo.rate_per_sec", 12)
	v.SetDefault("grid.size", 5)
	v.SetDefault("grid.spacing_meters", 804.672) // half a mile
	v.SetDefault("grid.zoom", "15z")
	v.SetDefault("poll.interval_ms", 2200)
	v.SetDefault("poll.error_interval_ms", 2500)
	v.SetDefault("poll.max_attempts", 0)
	v.SetDefault("poll.concurrency", 8)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration required for the given mode is
// present. Modes: "run", "resolve", "serve", "store".
func (c *Config) Validate(mode string) error {
	switch mode {
	case "run":
		return c.validateProvider()
	case "resolve":
		if c.Places.Key == "" {
			return eris.New("config: places.key is required (set RANKGRID_PLACES_KEY)")
		}
		return nil
	case "serve":
		if c.Server.Port < 1 || c.Server.Port > 65535 {
			return eris.Errorf("config: invalid server.port %d", c.Server.Port)
		}
		if err := c.validateProvider(); err != nil {
			return err
		}
		return c.validateStore()
	case "store":
		return c.validateStore()
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}
}

func (c *Config) validateProvider() error {
	var missing []string
	if c.DataForSEO.Login == "" {
		missing = append(missing, "dataforseo.login")
	}
	if c.DataForSEO.Password == "" {
		missing = append(missing, "dataforseo.password")
	}
	if len(missing) > 0 {
		return eris.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case "sqlite":
		if c.Store.Path == "" {
			return eris.New("config: store.path is required for the sqlite driver")
		}
		return nil
	case "postgres":
		if c.Store.DatabaseURL == "" {
			return eris.New("config: store.database_url is required for the postgres driver")
		}
		return nil
	default:
		return eris.Errorf("config: unknown store.driver %q", c.Store.Driver)
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
