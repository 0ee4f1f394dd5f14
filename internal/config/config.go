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
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Import   ImportConfig   `yaml:"import" mapstructure:"import"`
	Realtime RealtimeConfig `yaml:"realtime" mapstructure:"realtime"`
	Stats    StatsConfig    `yaml:"stats" mapstructure:"stats"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port               int      `yaml:"port" mapstructure:"port"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins" mapstructure:"cors_allowed_origins"`
	ImportMaxBytes     int64    `yaml:"import_max_bytes" mapstructure:"import_max_bytes"`
	ImportRatePerMin   int      `yaml:"import_rate_per_min" mapstructure:"import_rate_per_min"`
}

// ImportConfig configures CSV and spreadsheet ingestion.
type ImportConfig struct {
	MaxRows         int    `yaml:"max_rows" mapstructure:"max_rows"`
	DefaultEncoding string `yaml:"default_encoding" mapstructure:"default_encoding"`
}

// RealtimeConfig configures change-event delivery.
type RealtimeConfig struct {
	Buffer int `yaml:"buffer" mapstructure:"buffer"`
}

// StatsConfig configures the periodic CRM gauge refresh.
type StatsConfig struct {
	RefreshSecs   int `yaml:"refresh_secs" mapstructure:"refresh_secs"`
	LookbackHours int `yaml:"lookback_hours" mapstructure:"lookback_hours"`
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
	v.SetEnvPrefix("ESTATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "estate-crm.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("server.import_max_bytes", 10<<20)
	v.SetDefault("server.import_rate_per_min", 30)
	v.SetDefault("import.max_rows", 50000)
	v.SetDefault("import.default_encoding", "utf-8")
	v.SetDefault("realtime.buffer", 64)
	v.SetDefault("stats.refresh_secs", 60)
	v.SetDefault("stats.lookback_hours", 24)
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

// Validate checks the settings a command mode depends on. Mode is "cli"
// for one-shot commands and "serve" for the API server.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		problems = append(problems, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		problems = append(problems, "store.database_url is required")
	}
	if c.Store.Driver == "postgres" && c.Store.MinConns > c.Store.MaxConns {
		problems = append(problems, "store.min_conns must not exceed store.max_conns")
	}
	if c.Import.MaxRows < 0 {
		problems = append(problems, "import.max_rows must be >= 0")
	}

	switch mode {
	case "cli":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be > 0 and <= 65535")
		}
		if c.Server.ImportMaxBytes <= 0 {
			problems = append(problems, "server.import_max_bytes must be > 0")
		}
		if c.Server.ImportRatePerMin <= 0 {
			problems = append(problems, "server.import_rate_per_min must be > 0")
		}
		if c.Realtime.Buffer <= 0 {
			problems = append(problems, "realtime.buffer must be > 0")
		}
		if c.Stats.RefreshSecs <= 0 {
			problems = append(problems, "stats.refresh_secs must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
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
