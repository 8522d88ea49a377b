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
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
	CodeSets   CodeSetConfig    `yaml:"codesets" mapstructure:"codesets"`
	Rules      RulesConfig      `yaml:"rules" mapstructure:"rules"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-history database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ValidationConfig configures a validation pass.
type ValidationConfig struct {
	Standards        []string `yaml:"standards" mapstructure:"standards"`
	Concurrency      int      `yaml:"concurrency" mapstructure:"concurrency"`
	IdentifierFields []string `yaml:"identifier_fields" mapstructure:"identifier_fields"`
}

// CodeSetConfig selects the reference code-set source. An empty Dir uses the
// embedded reference release.
type CodeSetConfig struct {
	Dir     string `yaml:"dir" mapstructure:"dir"`
	Version string `yaml:"version" mapstructure:"version"`
}

// RulesConfig selects the rule definitions source. An empty Path uses the
// embedded defaults.
type RulesConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
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
	v.SetEnvPrefix("VALIDATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "validata.db")
	v.SetDefault("validation.standards", []string{"tg263", "icd10", "icdo", "cpqr", "cpac"})
	v.SetDefault("validation.concurrency", 4)
	v.SetDefault("validation.identifier_fields", []string{"Patient ID", "Treatment ID"})
	v.SetDefault("codesets.dir", "")
	v.SetDefault("codesets.version", "")
	v.SetDefault("rules.path", "")
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
