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
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Gateway GatewayConfig `yaml:"gateway" mapstructure:"gateway"`
	Places  PlacesConfig  `yaml:"places" mapstructure:"places"`
	Send    SendConfig    `yaml:"send" mapstructure:"send"`
	Ingest  IngestConfig  `yaml:"ingest" mapstructure:"ingest"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// GatewayConfig holds the WhatsApp gateway connection settings.
type GatewayConfig struct {
	BaseURL string  `yaml:"base_url" mapstructure:"base_url"`
	Token   string  `yaml:"token" mapstructure:"token"`
	RateRPS float64 `yaml:"rate_rps" mapstructure:"rate_rps"`
}

// PlacesConfig holds the local search API settings.
type PlacesConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	Language string `yaml:"language" mapstructure:"language"`
}

// SendConfig configures the delivery run.
type SendConfig struct {
	BatchLimit     int     `yaml:"batch_limit" mapstructure:"batch_limit"`
	IntervalSecs   int     `yaml:"interval_secs" mapstructure:"interval_secs"`
	JitterFraction float64 `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
	TemplatesPath  string  `yaml:"templates_path" mapstructure:"templates_path"`
	ReadyTimeout   int     `yaml:"ready_timeout_secs" mapstructure:"ready_timeout_secs"`
}

// IngestConfig configures lead acquisition.
type IngestConfig struct {
	Location            string   `yaml:"location" mapstructure:"location"`
	Coordinates         string   `yaml:"coordinates" mapstructure:"coordinates"`
	MaxPages            int      `yaml:"max_pages" mapstructure:"max_pages"`
	PageIntervalSecs    int      `yaml:"page_interval_secs" mapstructure:"page_interval_secs"`
	MaxConcurrentNiches int      `yaml:"max_concurrent_niches" mapstructure:"max_concurrent_niches"`
	Niches              []string `yaml:"niches" mapstructure:"niches"`
}

// ServerConfig configures the webhook server.
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
	v.SetEnvPrefix("PROSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Empty defaults keep env-only keys visible to Unmarshal.
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("gateway.token", "")
	v.SetDefault("places.key", "")
	v.SetDefault("send.templates_path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("gateway.base_url", "http://localhost:3000")
	v.SetDefault("gateway.rate_rps", 1.0)
	v.SetDefault("places.base_url", "https://serpapi.com")
	v.SetDefault("places.language", "pt-BR")
	v.SetDefault("send.batch_limit", 15)
	v.SetDefault("send.interval_secs", 5)
	v.SetDefault("send.jitter_fraction", 0.0)
	v.SetDefault("send.ready_timeout_secs", 120)
	v.SetDefault("ingest.location", "Salvador, Bahia")
	v.SetDefault("ingest.coordinates", "@-12.9711,-38.5108,15z")
	v.SetDefault("ingest.max_pages", 3)
	v.SetDefault("ingest.page_interval_secs", 2)
	v.SetDefault("ingest.max_concurrent_niches", 1)
	v.SetDefault("ingest.niches", []string{"pizzaria", "hamburgueria", "comida japonesa", "delivery"})

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
