package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config is the runtime configuration of the sqlseed command.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Seeds    SeedsConfig    `mapstructure:"seeds"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig selects the database and how to reach it. An empty Dialect
// follows Driver.
type DatabaseConfig struct {
	URL     string        `mapstructure:"url"`
	Driver  string        `mapstructure:"driver"`
	Dialect string        `mapstructure:"dialect"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SeedsConfig lists SQL seed inputs and whether the built-in Users seed is
// registered.
type SeedsConfig struct {
	Paths   []string `mapstructure:"paths"`
	Builtin bool     `mapstructure:"builtin"`
}

// LogConfig configures the logrus logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.url", "")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dialect", "")
	v.SetDefault("database.timeout", 30*time.Second)

	v.SetDefault("seeds.paths", []string{})
	v.SetDefault("seeds.builtin", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// loadConfig reads defaults, an optional YAML file and the environment.
// DATABASE_URL maps to database.url and so on.
func loadConfig(v *viper.Viper, file string) (*Config, error) {
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("sqlseed")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.Seeds.Paths = splitInputs(cfg.Seeds.Paths...)
	return &cfg, nil
}

func newLogger(cfg LogConfig) (*logrus.Logger, error) {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)
	switch cfg.Format {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
	return logger, nil
}

// splitInputs flattens comma-separated values and drops blanks.
func splitInputs(inputs ...string) []string {
	var cleaned []string
	for _, input := range inputs {
		for _, part := range strings.Split(input, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				cleaned = append(cleaned, part)
			}
		}
	}
	return cleaned
}
